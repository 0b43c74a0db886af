package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyager-tech/go-backend/internal/cfg"
	"github.com/voyager-tech/go-backend/internal/domain"
	"github.com/voyager-tech/go-backend/internal/usecase"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/logger"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeIngest struct {
	got *usecase.IngestReq
	res *usecase.IngestRes
	err error
}

func (f *fakeIngest) Ingest(_ context.Context, req *usecase.IngestReq) (*usecase.IngestRes, error) {
	f.got = req
	return f.res, f.err
}

type fakeCatalog struct {
	products  []usecase.ProductInfo
	history   []domain.Price
	stores    []domain.Store
	lastLimit int
	lastQuery string
	err       error
}

func (f *fakeCatalog) RecentProducts(_ context.Context, limit int) ([]usecase.ProductInfo, error) {
	f.lastLimit = limit
	if limit <= 0 {
		return nil, e.ErrInvalidLimit
	}
	return f.products, f.err
}

func (f *fakeCatalog) SearchProducts(_ context.Context, query string, limit int) ([]usecase.ProductInfo, error) {
	f.lastLimit, f.lastQuery = limit, query
	return f.products, f.err
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) (*usecase.ProductInfo, bool, error) {
	for _, p := range f.products {
		if p.ID == id {
			return &p, true, nil
		}
	}
	return nil, false, f.err
}

func (f *fakeCatalog) PriceHistory(_ context.Context, id int64, limit int) ([]domain.Price, bool, error) {
	f.lastLimit = limit
	if _, found, _ := f.GetProduct(context.Background(), id); !found {
		return nil, false, nil
	}
	return f.history, true, nil
}

func (f *fakeCatalog) ListStores(context.Context) ([]domain.Store, error) { return f.stores, f.err }

func (f *fakeCatalog) GetStore(_ context.Context, id int64) (*domain.Store, bool, error) {
	for _, s := range f.stores {
		if s.ID == id {
			return &s, true, nil
		}
	}
	return nil, false, nil
}

func (f *fakeCatalog) Stats(context.Context) (*usecase.Stats, error) {
	return &usecase.Stats{Stores: len64(f.stores), Products: len64(f.products), Prices: len64(f.history)}, f.err
}

func len64[T any](s []T) int64 { return int64(len(s)) }

type pingerFunc func(ctx context.Context) error

func (p pingerFunc) Ping(ctx context.Context) error { return p(ctx) }

func newTestRouter(ingest usecase.IngestUC, catalog usecase.CatalogUC, checks map[string]Pinger) http.Handler {
	mux := chi.NewRouter()
	NewRouter(mux, logger.NewNop()).Init(ingest, catalog, checks, &cfg.CatalogCfg{
		RecentLimit:  20,
		SearchLimit:  50,
		HistoryLimit: 100,
	})
	return mux
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func sampleProduct() usecase.ProductInfo {
	return usecase.ProductInfo{
		ID: 1, StoreID: 1, StoreName: "s.com", Name: "RAM 8GB", URL: "https://s.com/p1",
		InStock: true, CreatedAt: now,
		Price: &usecase.LatestPrice{Amount: decimal.RequireFromString("1999.9"), Currency: "MKD", ScrapedAt: now},
	}
}

func TestRecentProducts_DefaultLimit(t *testing.T) {
	catalog := &fakeCatalog{products: []usecase.ProductInfo{sampleProduct()}}
	h := newTestRouter(&fakeIngest{}, catalog, nil)

	rec, body := do(t, h, http.MethodGet, "/api/v1/products", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, catalog.lastLimit)
	assert.Equal(t, float64(1), body["count"])

	products := body["products"].([]any)
	first := products[0].(map[string]any)
	assert.Equal(t, "1999.90", first["price"])
	assert.Equal(t, "MKD", first["currency"])
	assert.Equal(t, "s.com", first["store_name"])
}

func TestRecentProducts_BadLimit(t *testing.T) {
	h := newTestRouter(&fakeIngest{}, &fakeCatalog{}, nil)

	rec, _ := do(t, h, http.MethodGet, "/api/v1/products?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/products?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchProducts_EchoesQuery(t *testing.T) {
	catalog := &fakeCatalog{products: []usecase.ProductInfo{sampleProduct()}}
	h := newTestRouter(&fakeIngest{}, catalog, nil)

	rec, body := do(t, h, http.MethodGet, "/api/v1/products/search?q=RAM&limit=5", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "RAM", body["query"])
	assert.Equal(t, "RAM", catalog.lastQuery)
	assert.Equal(t, 5, catalog.lastLimit)
}

func TestGetProduct(t *testing.T) {
	h := newTestRouter(&fakeIngest{}, &fakeCatalog{products: []usecase.ProductInfo{sampleProduct()}}, nil)

	rec, body := do(t, h, http.MethodGet, "/api/v1/products/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "RAM 8GB", body["name"])

	rec, _ = do(t, h, http.MethodGet, "/api/v1/products/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/products/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPriceHistory(t *testing.T) {
	catalog := &fakeCatalog{
		products: []usecase.ProductInfo{sampleProduct()},
		history: []domain.Price{
			{ID: 2, ProductID: 1, Amount: decimal.RequireFromString("17.99"), Currency: "MKD", ScrapedAt: now.Add(time.Hour)},
			{ID: 1, ProductID: 1, Amount: decimal.RequireFromString("19.99"), Currency: "MKD", ScrapedAt: now},
		},
	}
	h := newTestRouter(&fakeIngest{}, catalog, nil)

	rec, body := do(t, h, http.MethodGet, "/api/v1/products/1/history", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, catalog.lastLimit)
	assert.Equal(t, float64(1), body["product_id"])
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, "17.99", body["history"].([]any)[0].(map[string]any)["price"])

	rec, _ = do(t, h, http.MethodGet, "/api/v1/products/7/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStores(t *testing.T) {
	catalog := &fakeCatalog{stores: []domain.Store{{ID: 1, Name: "s.com", URL: "https://s.com", Currency: "MKD", CreatedAt: now}}}
	h := newTestRouter(&fakeIngest{}, catalog, nil)

	rec, body := do(t, h, http.MethodGet, "/api/v1/stores", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, _ = do(t, h, http.MethodGet, "/api/v1/stores/2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngest_Success(t *testing.T) {
	ingest := &fakeIngest{res: usecase.NewIngestRes(3, 2, 2, 1, 0)}
	h := newTestRouter(ingest, &fakeCatalog{}, nil)

	payload := `{
		"store_url": "https://www.s.com",
		"category": "ram",
		"items": [
			{"name": "RAM 8GB", "price": 1999.9, "url": "https://www.s.com/p1"},
			{"name": "RAM 16GB", "price": "3499.00", "url": "https://www.s.com/p2", "in_stock": false}
		]
	}`
	rec, body := do(t, h, http.MethodPost, "/api/v1/scraper/ingest", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["products_touched"])
	assert.Equal(t, float64(2), body["prices_appended"])

	require.NotNil(t, ingest.got)
	assert.Equal(t, "ram", ingest.got.Options.DefaultCategory)
	require.Len(t, ingest.got.Items, 2)
	assert.Equal(t, "3499", ingest.got.Items[1].Price.String())
	require.NotNil(t, ingest.got.Items[1].InStock)
	assert.False(t, *ingest.got.Items[1].InStock)
}

func TestIngest_ValidationErrorCarriesIndex(t *testing.T) {
	ingest := &fakeIngest{err: e.Wrap("IngestUseCase.Ingest", e.NewValidationError(2, "price", "must be non-negative"))}
	h := newTestRouter(ingest, &fakeCatalog{}, nil)

	payload := `{"store_url": "https://s.com", "items": [{"name": "a", "price": 1, "url": "https://s.com/a"}]}`
	rec, body := do(t, h, http.MethodPost, "/api/v1/scraper/ingest", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, float64(2), body["index"])
	assert.Equal(t, "price", body["field"])
}

func TestIngest_MissingPrice(t *testing.T) {
	ingest := &fakeIngest{}
	h := newTestRouter(ingest, &fakeCatalog{}, nil)

	payload := `{"store_url": "https://s.com", "items": [
		{"name": "a", "price": 1, "url": "https://s.com/a"},
		{"name": "b", "url": "https://s.com/b"}
	]}`
	rec, body := do(t, h, http.MethodPost, "/api/v1/scraper/ingest", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, float64(1), body["index"])
	assert.Nil(t, ingest.got)
}

func TestIngest_MalformedBody(t *testing.T) {
	h := newTestRouter(&fakeIngest{}, &fakeCatalog{}, nil)

	rec, _ := do(t, h, http.MethodPost, "/api/v1/scraper/ingest", `{"store_url": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/scraper/ingest", `{"store": "https://s.com", "items": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_StorageUnavailable(t *testing.T) {
	ingest := &fakeIngest{err: e.Wrap("IngestUseCase.Ingest", e.ErrStorageUnavailable)}
	h := newTestRouter(ingest, &fakeCatalog{}, nil)

	payload := `{"store_url": "https://s.com", "items": [{"name": "a", "price": 1, "url": "https://s.com/a"}]}`
	rec, body := do(t, h, http.MethodPost, "/api/v1/scraper/ingest", payload)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, e.ErrStorageUnavailable.Error(), body["message"])
}

func TestStats(t *testing.T) {
	catalog := &fakeCatalog{products: []usecase.ProductInfo{sampleProduct()}}
	h := newTestRouter(&fakeIngest{}, catalog, nil)

	rec, body := do(t, h, http.MethodGet, "/api/v1/scraper/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["products"])
}

func TestHealth(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") })

	h := newTestRouter(&fakeIngest{}, &fakeCatalog{}, map[string]Pinger{"postgres": ok})
	rec, body := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	h = newTestRouter(&fakeIngest{}, &fakeCatalog{}, map[string]Pinger{"postgres": ok, "redis": down})
	rec, body = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "unavailable", body["checks"].(map[string]any)["redis"])
}

func TestToHTTPResponse_InternalErrorsHidden(t *testing.T) {
	resp := ToHTTPResponse(errors.New("pq: relation products does not exist"))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, e.ErrInternalServerError.Error(), resp.Message)
}
