package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/logger"
)

type ingestFixture struct {
	uc   *IngestUseCase
	f    *fakeCatalog
	mock pgxmock.PgxPoolIface
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	f := newFakeCatalog()
	conf := testCatalogCfg()
	uc := NewIngestUC(newTestResolver(f), NewPriceLog(f), f, f, f, mock, logger.NewNop(), conf)

	return &ingestFixture{uc: uc, f: f, mock: mock}
}

func item(name, price, url string) IngestItem {
	return IngestItem{Name: name, Price: decimal.RequireFromString(price), URL: url}
}

func (fx *ingestFixture) ingest(t *testing.T, req *IngestReq) *IngestRes {
	t.Helper()

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	res, err := fx.uc.Ingest(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, fx.mock.ExpectationsWereMet())

	return res
}

func TestIngest_RescrapeUpdatesProductAndAppendsHistory(t *testing.T) {
	fx := newIngestFixture(t)
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	res := fx.ingest(t, &IngestReq{
		StoreURL:  "https://s.com",
		Items:     []IngestItem{item("RAM 8GB", "19.99", "https://s.com/p1")},
		ScrapedAt: t1,
	})
	assert.Equal(t, 1, res.ProductsTouched)
	assert.Equal(t, 1, res.PricesAppended)
	assert.Equal(t, 1, res.ProductsCreated)

	res = fx.ingest(t, &IngestReq{
		StoreURL:  "https://s.com",
		Items:     []IngestItem{item("RAM 8GB v2", "17.99", "https://s.com/p1")},
		ScrapedAt: t1.Add(time.Hour),
	})
	assert.Equal(t, 1, res.ProductsTouched)
	assert.Equal(t, 1, res.PricesAppended)
	assert.Equal(t, 0, res.ProductsCreated)

	require.Len(t, fx.f.products, 1)
	p, ok := fx.f.product(res.StoreID, "https://s.com/p1")
	require.True(t, ok)
	assert.Equal(t, "RAM 8GB v2", p.Name)
	assert.Equal(t, "ram 8gb v2", p.SearchText)

	require.Len(t, fx.f.prices, 2)
	assert.Equal(t, "19.99", fx.f.prices[0].Amount.StringFixed(2))
	assert.Equal(t, "17.99", fx.f.prices[1].Amount.StringFixed(2))
	assert.Equal(t, "MKD", fx.f.prices[1].Currency)

	// второе событие фиксирует переименование
	require.Len(t, fx.f.outbox, 2)
	var ev CatalogIngested
	require.NoError(t, json.Unmarshal(fx.f.outbox[1].Payload, &ev))
	assert.Equal(t, []int64{p.ID}, ev.RenamedIDs)
	assert.Empty(t, ev.CreatedIDs)
	assert.Equal(t, "s.com", ev.StoreName)
	assert.Equal(t, EventCatalogIngested, fx.f.outbox[1].EventType)
}

func TestIngest_HostCaseDoesNotSplitProductIdentity(t *testing.T) {
	fx := newIngestFixture(t)

	first := fx.ingest(t, &IngestReq{
		StoreURL: "https://s.com",
		Items:    []IngestItem{item("RAM 8GB", "19.99", "https://s.com/p1")},
	})
	second := fx.ingest(t, &IngestReq{
		StoreURL: "https://S.com",
		Items:    []IngestItem{item("RAM 8GB", "17.99", "https://S.COM/p1#specs")},
	})

	assert.Equal(t, first.StoreID, second.StoreID)
	assert.Equal(t, 0, second.ProductsCreated)
	assert.Len(t, fx.f.products, 1)
	assert.Len(t, fx.f.prices, 2)

	_, ok := fx.f.product(first.StoreID, "https://s.com/p1")
	assert.True(t, ok)
}

func TestIngest_TwiceSameInputGrowsHistoryOnly(t *testing.T) {
	fx := newIngestFixture(t)
	req := &IngestReq{
		StoreURL: "https://s.com",
		Items: []IngestItem{
			item("CPU A", "100", "https://s.com/a"),
			item("CPU B", "200", "https://s.com/b"),
			item("CPU A", "99", "https://s.com/a"),
		},
	}

	first := fx.ingest(t, req)
	second := fx.ingest(t, req)

	assert.Equal(t, 2, first.ProductsTouched)
	assert.Equal(t, first.ProductsTouched, second.ProductsTouched)
	assert.Equal(t, 3, first.PricesAppended)
	assert.Equal(t, 3, second.PricesAppended)
	assert.Len(t, fx.f.products, 2)
	assert.Len(t, fx.f.prices, 6)
}

func TestIngest_InvalidItemRejectsWholeBatch(t *testing.T) {
	fx := newIngestFixture(t)

	_, err := fx.uc.Ingest(context.Background(), &IngestReq{
		StoreURL: "https://s.com",
		Items: []IngestItem{
			item("a", "1", "https://s.com/1"),
			item("b", "2", "https://s.com/2"),
			item("c", "-5", "https://s.com/3"),
			item("d", "4", "https://s.com/4"),
			item("e", "5", "https://s.com/5"),
		},
	})

	require.ErrorIs(t, err, e.ErrValidation)
	var v *e.ValidationError
	require.True(t, errors.As(err, &v))
	assert.Equal(t, 2, v.Index)
	assert.Equal(t, "price", v.Field)

	assert.Empty(t, fx.f.stores)
	assert.Empty(t, fx.f.products)
	assert.Empty(t, fx.f.prices)
	assert.Empty(t, fx.f.outbox)
	// транзакция даже не открывалась
	require.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestIngest_ValidationReportsFieldAndIndex(t *testing.T) {
	cases := []struct {
		name  string
		item  IngestItem
		field string
	}{
		{"empty url", item("x", "1", ""), "url"},
		{"malformed url", item("x", "1", "::nope"), "url"},
		{"empty name", item(" ", "1", "https://s.com/x"), "name"},
		{"too many decimals", item("x", "1.999", "https://s.com/x"), "price"},
		{"bad currency", IngestItem{Name: "x", Price: decimal.NewFromInt(1), URL: "https://s.com/x", Currency: "EURO"}, "currency"},
		{"unknown category", IngestItem{Name: "x", Price: decimal.NewFromInt(1), URL: "https://s.com/x", Category: "toaster"}, "category"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newIngestFixture(t)

			_, err := fx.uc.Ingest(context.Background(), &IngestReq{
				StoreURL: "https://s.com",
				Items:    []IngestItem{item("ok", "1", "https://s.com/ok"), tc.item},
			})

			var v *e.ValidationError
			require.True(t, errors.As(err, &v), "%v", err)
			assert.Equal(t, 1, v.Index)
			assert.Equal(t, tc.field, v.Field)
		})
	}
}

func TestIngest_BatchLevelRejects(t *testing.T) {
	fx := newIngestFixture(t)
	ctx := context.Background()

	_, err := fx.uc.Ingest(ctx, &IngestReq{StoreURL: "https://s.com"})
	assert.ErrorIs(t, err, e.ErrEmptyBatch)

	_, err = fx.uc.Ingest(ctx, &IngestReq{StoreURL: "", Items: []IngestItem{item("a", "1", "https://s.com/1")}})
	var v *e.ValidationError
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "store_url", v.Field)
	assert.Equal(t, -1, v.Index)

	big := make([]IngestItem, 11)
	for i := range big {
		big[i] = item("a", "1", "https://s.com/1")
	}
	_, err = fx.uc.Ingest(ctx, &IngestReq{StoreURL: "https://s.com", Items: big})
	assert.ErrorIs(t, err, e.ErrBatchTooLarge)

	_, err = fx.uc.Ingest(ctx, &IngestReq{
		StoreURL: "https://s.com",
		Items:    []IngestItem{item("a", "1", "https://s.com/1")},
		Options:  IngestOptions{DefaultCategory: "toaster"},
	})
	assert.ErrorIs(t, err, e.ErrValidation)
}

func TestIngest_StorageFailureRollsBack(t *testing.T) {
	fx := newIngestFixture(t)
	fx.f.failPriceAt = 2
	fx.f.cache[1] = ProductInfo{ID: 1}

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	_, err := fx.uc.Ingest(context.Background(), &IngestReq{
		StoreURL: "https://s.com",
		Items: []IngestItem{
			item("a", "1", "https://s.com/1"),
			item("b", "2", "https://s.com/2"),
		},
	})

	require.ErrorIs(t, err, errStorageDown)
	assert.Contains(t, err.Error(), "item 1")
	assert.Empty(t, fx.f.outbox)
	assert.Empty(t, fx.f.evicted)
	require.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestIngest_CategoryAndCurrency(t *testing.T) {
	fx := newIngestFixture(t)
	inStock := false

	res := fx.ingest(t, &IngestReq{
		StoreURL: "https://s.com",
		Options:  IngestOptions{DefaultCategory: "laptop"},
		Items: []IngestItem{
			item("Laptop X", "999.00", "https://s.com/x"),
			{Name: "RAM Y", Price: decimal.NewFromInt(20), URL: "https://s.com/y", Category: "ram", Currency: "eur", InStock: &inStock},
		},
	})
	require.Equal(t, 2, res.ProductsTouched)

	x, _ := fx.f.product(res.StoreID, "https://s.com/x")
	y, _ := fx.f.product(res.StoreID, "https://s.com/y")
	require.NotNil(t, x.CategoryID)
	require.NotNil(t, y.CategoryID)
	assert.Equal(t, int64(10), *x.CategoryID)
	assert.Equal(t, int64(4), *y.CategoryID)
	assert.True(t, x.InStock)
	assert.False(t, y.InStock)

	assert.Equal(t, "MKD", fx.f.prices[0].Currency)
	assert.Equal(t, "EUR", fx.f.prices[1].Currency)
}

func TestIngest_MarkMissingSoftDeletesAndRestores(t *testing.T) {
	fx := newIngestFixture(t)
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first := fx.ingest(t, &IngestReq{
		StoreURL:  "https://s.com",
		ScrapedAt: t1,
		Items: []IngestItem{
			item("A", "1", "https://s.com/a"),
			item("B", "2", "https://s.com/b"),
		},
	})

	second := fx.ingest(t, &IngestReq{
		StoreURL:  "https://s.com",
		ScrapedAt: t1.Add(time.Hour),
		Options:   IngestOptions{MarkMissing: true},
		Items:     []IngestItem{item("A", "1", "https://s.com/a")},
	})
	assert.Equal(t, 1, second.MarkedMissing)

	b, _ := fx.f.product(first.StoreID, "https://s.com/b")
	assert.True(t, b.IsDeleted)
	assert.Contains(t, fx.f.evicted, b.ID)

	fx.ingest(t, &IngestReq{
		StoreURL:  "https://s.com",
		ScrapedAt: t1.Add(2 * time.Hour),
		Items:     []IngestItem{item("B", "2", "https://s.com/b")},
	})
	b, _ = fx.f.product(first.StoreID, "https://s.com/b")
	assert.False(t, b.IsDeleted)
	assert.Nil(t, b.DeletedAt)
	// история удалённого товара не тронута
	assert.Len(t, fx.f.prices, 4)
}

func TestIngest_InvalidatesCacheAfterCommit(t *testing.T) {
	fx := newIngestFixture(t)

	res := fx.ingest(t, &IngestReq{
		StoreURL: "https://s.com",
		Items:    []IngestItem{item("A", "1", "https://s.com/a")},
	})

	a, _ := fx.f.product(res.StoreID, "https://s.com/a")
	assert.Equal(t, []int64{a.ID}, fx.f.evicted)
}

func TestIngest_WithoutOutboxAndCache(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	f := newFakeCatalog()
	uc := NewIngestUC(newTestResolver(f), NewPriceLog(f), f, nil, nil, mock, logger.NewNop(), testCatalogCfg())

	mock.ExpectBegin()
	mock.ExpectCommit()

	res, err := uc.Ingest(context.Background(), &IngestReq{
		StoreURL: "https://s.com",
		Items:    []IngestItem{item("A", "1", "https://s.com/a")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.PricesAppended)
	assert.Empty(t, f.outbox)
	require.NoError(t, mock.ExpectationsWereMet())
}
