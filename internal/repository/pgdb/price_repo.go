package pgdb

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
	"github.com/voyager-tech/go-backend/internal/domain"
	"github.com/voyager-tech/go-backend/internal/repository/pgdb/converter"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/postgres"
)

// PriceRepo — журнал цен поверх PostgreSQL. Строки только добавляются.
// Сумма передаётся и читается текстом, чтобы не терять точность NUMERIC(12,2).
type PriceRepo struct {
	db   postgres.DB
	conv converter.PriceConverter
}

func NewPriceRepo(db postgres.DB, conv converter.PriceConverter) *PriceRepo {
	return &PriceRepo{db: db, conv: conv}
}

// Append вставляет новое наблюдение цены.
func (p *PriceRepo) Append(ctx context.Context, price *domain.Price) (*domain.Price, error) {
	model := p.conv.ToModel(price)

	query := `
		INSERT INTO prices (product_id, price, currency, scraped_at)
		VALUES ($1, $2::NUMERIC, $3, $4)
		RETURNING id;
	`

	if err := conn(ctx, p.db).QueryRow(ctx, query,
		model.ProductID, model.Price, model.Currency, model.ScrapedAt,
	).Scan(&model.ID); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}

	return p.conv.ToEntity(model)
}

// Latest возвращает наблюдение с максимальным scraped_at; found == false, если наблюдений нет.
func (p *PriceRepo) Latest(ctx context.Context, productID int64) (*domain.Price, bool, error) {
	query := `
		SELECT id, product_id, price::TEXT, currency, scraped_at
		FROM prices
		WHERE product_id = $1
		ORDER BY scraped_at DESC, id DESC
		LIMIT 1;
	`

	var model converter.PriceModel
	err := conn(ctx, p.db).QueryRow(ctx, query, productID).
		Scan(&model.ID, &model.ProductID, &model.Price, &model.Currency, &model.ScrapedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}

	price, err := p.conv.ToEntity(&model)
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	return price, true, nil
}

// History возвращает не более limit наблюдений от новых к старым.
func (p *PriceRepo) History(ctx context.Context, productID int64, limit int) ([]domain.Price, error) {
	query := `
		SELECT id, product_id, price::TEXT, currency, scraped_at
		FROM prices
		WHERE product_id = $1
		ORDER BY scraped_at DESC, id DESC
		LIMIT $2;
	`

	rows, err := conn(ctx, p.db).Query(ctx, query, productID, limit)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}
	defer rows.Close()

	result := make([]domain.Price, 0)
	for rows.Next() {
		var model converter.PriceModel
		if err := rows.Scan(&model.ID, &model.ProductID, &model.Price, &model.Currency, &model.ScrapedAt); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		price, err := p.conv.ToEntity(&model)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		result = append(result, *price)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), postgres.MapError(err))
	}

	return result, nil
}
