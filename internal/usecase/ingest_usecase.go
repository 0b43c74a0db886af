package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/voyager-tech/go-backend/internal/cfg"
	"github.com/voyager-tech/go-backend/internal/domain"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/logger"
	"github.com/voyager-tech/go-backend/pkg/postgres"
	"github.com/voyager-tech/go-backend/pkg/tr"
)

// IngestUseCase принимает батч скрапинга одной транзакцией: все позиции или ни одной.
type IngestUseCase struct {
	resolver    *Resolver
	priceLog    *PriceLog
	productRepo ProductRepository
	outboxRepo  OutboxRepository // nil — события не пишутся
	cacheRepo   CacheRepository  // nil — кэш выключен
	dbPool      transaction.Transactional
	logger      logger.Logger
	cfg         *cfg.CatalogCfg
	now         func() time.Time
}

func NewIngestUC(
	resolver *Resolver,
	priceLog *PriceLog,
	productRepo ProductRepository,
	outboxRepo OutboxRepository,
	cacheRepo CacheRepository,
	dbPool transaction.Transactional,
	logger logger.Logger,
	cfg *cfg.CatalogCfg,
) *IngestUseCase {
	return &IngestUseCase{
		resolver:    resolver,
		priceLog:    priceLog,
		productRepo: productRepo,
		outboxRepo:  outboxRepo,
		cacheRepo:   cacheRepo,
		dbPool:      dbPool,
		logger:      logger,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// validItem — позиция батча после проверки
type validItem struct {
	index    int
	input    ProductInput
	amount   decimal.Decimal
	currency string // пусто — валюта магазина
}

// Ingest разрешает магазин, затем для каждой позиции товар и новое наблюдение цены.
// Все позиции проверяются до начала транзакции; ошибка любой позиции отклоняет весь батч.
func (u *IngestUseCase) Ingest(ctx context.Context, req *IngestReq) (res *IngestRes, err error) {
	const op = "IngestUseCase.Ingest"

	items, batchCategory, err := u.validate(ctx, req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	scrapedAt := req.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = u.now()
	}
	scrapedAt = scrapedAt.UTC()

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, u.dbPool)
	if err != nil {
		return nil, e.Wrap(op, postgres.MapError(err))
	}
	// Любая ошибка откатывает весь батч
	defer func() {
		if err != nil && tx.IsActive() {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				u.logger.Warnf("ingest rollback failed: %v", e.Wrap(op, rbErr))
			}
		}
	}()
	txCtx := tr.WithTx(ctx, tx.Transaction())

	store, err := u.resolver.ResolveStore(txCtx, req.StoreURL)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	var (
		touched = make(map[int64]struct{}, len(items))
		created = make([]int64, 0)
		renamed = make([]int64, 0)
	)
	for _, it := range items {
		it.input.ScrapedAt = scrapedAt

		resolved, err := u.resolver.ResolveProduct(txCtx, store.ID, it.input)
		if err != nil {
			return nil, e.Wrap(op, atItem(err, it.index))
		}

		id := resolved.Product.ID
		if _, seen := touched[id]; !seen {
			switch {
			case resolved.Created:
				created = append(created, id)
			case resolved.Changes.Name:
				renamed = append(renamed, id)
			}
		}
		touched[id] = struct{}{}

		currency := it.currency
		if currency == "" {
			currency = store.Currency
		}

		if _, err := u.priceLog.AppendPrice(txCtx, id, it.amount, currency, &scrapedAt); err != nil {
			return nil, e.Wrap(op, atItem(err, it.index))
		}
	}

	var missing []int64
	if req.Options.MarkMissing {
		missing, err = u.productRepo.MarkMissing(txCtx, store.ID, batchCategory, scrapedAt)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	if u.outboxRepo != nil {
		event := CatalogIngested{
			EventID:         uuid.NewString(),
			StoreID:         store.ID,
			StoreName:       store.Name,
			ProductsTouched: len(touched),
			PricesAppended:  len(items),
			CreatedIDs:      created,
			RenamedIDs:      renamed,
			MissingIDs:      missing,
			ScrapedAt:       scrapedAt,
		}
		if err = u.writeEvent(txCtx, &event); err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, e.Wrap(op, postgres.MapError(err))
	}

	u.invalidate(ctx, touched, missing)

	u.logger.Infof(
		"batch ingested: store=%s products=%d prices=%d created=%d missing=%d",
		store.Name, len(touched), len(items), len(created), len(missing),
	)

	return NewIngestRes(store.ID, len(touched), len(items), len(created), len(missing)), nil
}

// validate проверяет весь батч до записи и разрешает slug-и категорий.
func (u *IngestUseCase) validate(ctx context.Context, req *IngestReq) ([]validItem, *int64, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, nil, e.ErrEmptyBatch
	}

	if _, err := domain.ParseHTTPURL(req.StoreURL); err != nil {
		return nil, nil, renameField(err, "store_url")
	}

	if u.cfg.MaxBatchSize > 0 && len(req.Items) > u.cfg.MaxBatchSize {
		return nil, nil, fmt.Errorf("%w: %d items, max %d", e.ErrBatchTooLarge, len(req.Items), u.cfg.MaxBatchSize)
	}

	batchCategory, err := u.resolver.ResolveCategory(ctx, req.Options.DefaultCategory)
	if err != nil {
		return nil, nil, err
	}

	categories := make(map[string]*int64)
	items := make([]validItem, 0, len(req.Items))
	for i, item := range req.Items {
		input := ProductInput{
			Name:       item.Name,
			URL:        item.URL,
			Image:      item.Image,
			CategoryID: batchCategory,
			InStock:    true,
		}
		if item.InStock != nil {
			input.InStock = *item.InStock
		}

		if err := validateProductFields(&input); err != nil {
			return nil, nil, e.AtIndex(err, i)
		}

		if err := domain.ValidateAmount(item.Price); err != nil {
			return nil, nil, e.AtIndex(err, i)
		}

		var currency string
		if strings.TrimSpace(item.Currency) != "" {
			currency, err = domain.NormalizeCurrency(item.Currency, "")
			if err != nil {
				return nil, nil, e.AtIndex(err, i)
			}
		}

		if slug := strings.ToLower(strings.TrimSpace(item.Category)); slug != "" {
			id, ok := categories[slug]
			if !ok {
				id, err = u.resolver.ResolveCategory(ctx, slug)
				if err != nil {
					return nil, nil, e.AtIndex(err, i)
				}
				categories[slug] = id
			}
			input.CategoryID = id
		}

		items = append(items, validItem{
			index:    i,
			input:    input,
			amount:   item.Price,
			currency: currency,
		})
	}

	return items, batchCategory, nil
}

// writeEvent пишет событие в outbox в той же транзакции, что и батч.
func (u *IngestUseCase) writeEvent(ctx context.Context, event *CatalogIngested) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	eventID, err := uuid.Parse(event.EventID)
	if err != nil {
		return err
	}

	_, err = u.outboxRepo.Create(ctx, NewOutboxEvent(eventID, EventCatalogIngested, event.StoreID, payload, u.now()))
	return err
}

// invalidate удаляет из кэша товары, изменённые батчем. Ошибки кэша не влияют на результат.
func (u *IngestUseCase) invalidate(ctx context.Context, touched map[int64]struct{}, missing []int64) {
	if u.cacheRepo == nil {
		return
	}

	ids := make([]int64, 0, len(touched)+len(missing))
	for id := range touched {
		ids = append(ids, id)
	}
	ids = append(ids, missing...)

	// батч уже закоммичен: отмена запроса не должна оставить в кэше старые карточки
	if err := u.cacheRepo.DeleteProducts(context.WithoutCancel(ctx), ids); err != nil {
		u.logger.Warnf("Failed to invalidate products: %v", err)
	}
}

// atItem привязывает ошибку к позиции батча.
func atItem(err error, index int) error {
	var v *e.ValidationError
	if errors.As(err, &v) {
		return e.AtIndex(err, index)
	}

	return fmt.Errorf("item %d: %w", index, err)
}

func renameField(err error, field string) error {
	var v *e.ValidationError
	if errors.As(err, &v) {
		return e.NewValidationError(v.Index, field, v.Reason)
	}

	return err
}
