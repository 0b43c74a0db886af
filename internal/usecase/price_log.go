package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/voyager-tech/go-backend/internal/domain"
	"github.com/voyager-tech/go-backend/pkg/e"
)

// PriceLog — журнал наблюдений цены только на добавление.
// Повторное наблюдение той же цены — новая строка, а не слияние.
type PriceLog struct {
	priceRepo PriceRepository
	now       func() time.Time
}

func NewPriceLog(priceRepo PriceRepository) *PriceLog {
	return &PriceLog{
		priceRepo: priceRepo,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AppendPrice добавляет наблюдение и возвращает ID новой строки.
// observedAt == nil — время приёма.
func (l *PriceLog) AppendPrice(
	ctx context.Context,
	productID int64,
	amount decimal.Decimal,
	currency string,
	observedAt *time.Time,
) (int64, error) {
	const op = "PriceLog.AppendPrice"

	if productID <= 0 {
		return 0, e.Wrap(op, e.ErrInvalidID)
	}

	if err := domain.ValidateAmount(amount); err != nil {
		return 0, e.Wrap(op, err)
	}

	code, err := domain.NormalizeCurrency(currency, "")
	if err != nil {
		return 0, e.Wrap(op, err)
	}

	at := l.now()
	if observedAt != nil && !observedAt.IsZero() {
		at = *observedAt
	}

	price, err := l.priceRepo.Append(ctx, domain.NewPrice(productID, amount, code, at))
	if err != nil {
		return 0, e.Wrap(op, err)
	}

	return price.ID, nil
}

// LatestPrice возвращает наблюдение с максимальным временем; found == false, если наблюдений нет.
func (l *PriceLog) LatestPrice(ctx context.Context, productID int64) (*domain.Price, bool, error) {
	const op = "PriceLog.LatestPrice"

	if productID <= 0 {
		return nil, false, e.Wrap(op, e.ErrInvalidID)
	}

	price, found, err := l.priceRepo.Latest(ctx, productID)
	if err != nil {
		return nil, false, e.Wrap(op, err)
	}

	return price, found, nil
}

// History возвращает не более limit наблюдений, от новых к старым.
func (l *PriceLog) History(ctx context.Context, productID int64, limit int) ([]domain.Price, error) {
	const op = "PriceLog.History"

	if productID <= 0 {
		return nil, e.Wrap(op, e.ErrInvalidID)
	}
	if limit <= 0 {
		return nil, e.Wrap(op, e.ErrInvalidLimit)
	}

	history, err := l.priceRepo.History(ctx, productID, limit)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return history, nil
}
