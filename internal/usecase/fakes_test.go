package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/voyager-tech/go-backend/internal/domain"
)

var errStorageDown = errors.New("storage down")

type productKey struct {
	storeID int64
	url     string
}

// fakeCatalog — хранилище в памяти, реализующее все репозитории usecase.
type fakeCatalog struct {
	mu sync.Mutex

	storeSeq   int64
	productSeq int64
	priceSeq   int64

	stores     map[string]*domain.Store
	products   map[productKey]*domain.Product
	prices     []domain.Price
	categories map[string]domain.Category
	outbox     []*OutboxEvent
	cache      map[int64]ProductInfo
	generation map[int64]int64
	evicted    []int64

	// afterGetInfo вызывается после чтения карточки из хранилища, до возврата результата
	afterGetInfo func()

	upsertCalls int
	failPriceAt int // номер вызова Append, который падает; 0 — никогда
	priceCalls  int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		stores:   make(map[string]*domain.Store),
		products: make(map[productKey]*domain.Product),
		categories: map[string]domain.Category{
			"ram":    {ID: 4, Name: "Memory", Slug: "ram"},
			"laptop": {ID: 10, Name: "Laptops", Slug: "laptop"},
		},
		cache:      make(map[int64]ProductInfo),
		generation: make(map[int64]int64),
	}
}

// StoreRepository

func (f *fakeCatalog) Resolve(_ context.Context, store *domain.Store) (*domain.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.stores[store.Name]; ok {
		cp := *s
		return &cp, nil
	}

	f.storeSeq++
	s := *store
	s.ID = f.storeSeq
	s.CreatedAt = time.Now()
	f.stores[s.Name] = &s

	cp := s
	return &cp, nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id int64) (*domain.Store, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.stores {
		if s.ID == id {
			cp := *s
			return &cp, true, nil
		}
	}

	return nil, false, nil
}

func (f *fakeCatalog) List(_ context.Context) ([]domain.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stores := make([]domain.Store, 0, len(f.stores))
	for _, s := range f.stores {
		stores = append(stores, *s)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].Name < stores[j].Name })

	return stores, nil
}

// CategoryRepository

func (f *fakeCatalog) GetBySlug(_ context.Context, slug string) (*domain.Category, bool, error) {
	c, ok := f.categories[slug]
	if !ok {
		return nil, false, nil
	}

	return &c, true, nil
}

// ProductRepository

func (f *fakeCatalog) Upsert(_ context.Context, p *domain.Product) (*UpsertProductRes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++

	key := productKey{p.StoreID, p.URL}
	existing, ok := f.products[key]
	if !ok {
		f.productSeq++
		created := *p
		created.ID = f.productSeq
		created.CreatedAt = time.Now()
		f.products[key] = &created

		cp := created
		return NewUpsertProductRes(&cp, nil, true), nil
	}

	prev := *existing
	next, _ := prev.ApplyUpdate(domain.ScrapedFields{
		Name:       p.Name,
		Image:      p.Image,
		CategoryID: p.CategoryID,
		InStock:    p.InStock,
		ScrapedAt:  *p.LastScrapedAt,
	})
	f.products[key] = &next

	cp := next
	return NewUpsertProductRes(&cp, &prev, false), nil
}

func (f *fakeCatalog) info(p *domain.Product) ProductInfo {
	info := ProductInfo{
		ID:            p.ID,
		StoreID:       p.StoreID,
		CategoryID:    p.CategoryID,
		Name:          p.Name,
		URL:           p.URL,
		Image:         p.Image,
		InStock:       p.InStock,
		IsDeleted:     p.IsDeleted,
		LastScrapedAt: p.LastScrapedAt,
		CreatedAt:     p.CreatedAt,
	}
	if latest, ok := f.latest(p.ID); ok {
		info.Price = &LatestPrice{Amount: latest.Amount, Currency: latest.Currency, ScrapedAt: latest.ScrapedAt}
	}

	return info
}

func (f *fakeCatalog) GetInfo(_ context.Context, id int64, includeDeleted bool) (*ProductInfo, bool, error) {
	info, found := f.readInfo(id, includeDeleted)
	if f.afterGetInfo != nil {
		f.afterGetInfo()
	}

	return info, found, nil
}

func (f *fakeCatalog) readInfo(id int64, includeDeleted bool) (*ProductInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.products {
		if p.ID == id && (includeDeleted || !p.IsDeleted) {
			info := f.info(p)
			return &info, true
		}
	}

	return nil, false
}

func (f *fakeCatalog) sorted(includeDeleted bool, match func(*domain.Product) bool) []*domain.Product {
	var out []*domain.Product
	for _, p := range f.products {
		if (includeDeleted || !p.IsDeleted) && match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastScrapedAt.Equal(*out[j].LastScrapedAt) {
			return out[i].LastScrapedAt.After(*out[j].LastScrapedAt)
		}
		return out[i].ID > out[j].ID
	})

	return out
}

func (f *fakeCatalog) Recent(_ context.Context, limit int, includeDeleted bool) ([]ProductInfo, error) {
	return f.collect(limit, includeDeleted, func(*domain.Product) bool { return true }), nil
}

func (f *fakeCatalog) Search(_ context.Context, normalized string, limit int, includeDeleted bool) ([]ProductInfo, error) {
	return f.collect(limit, includeDeleted, func(p *domain.Product) bool {
		return strings.Contains(p.SearchText, normalized)
	}), nil
}

func (f *fakeCatalog) collect(limit int, includeDeleted bool, match func(*domain.Product) bool) []ProductInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	res := make([]ProductInfo, 0)
	for _, p := range f.sorted(includeDeleted, match) {
		if len(res) == limit {
			break
		}
		res = append(res, f.info(p))
	}

	return res
}

func (f *fakeCatalog) MarkMissing(_ context.Context, storeID int64, categoryID *int64, before time.Time) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []int64
	for _, p := range f.products {
		if p.StoreID != storeID || p.IsDeleted || !p.LastScrapedAt.Before(before) {
			continue
		}
		if categoryID != nil && (p.CategoryID == nil || *p.CategoryID != *categoryID) {
			continue
		}
		at := before
		p.IsDeleted = true
		p.DeletedAt = &at
		ids = append(ids, p.ID)
	}

	return ids, nil
}

func (f *fakeCatalog) product(storeID int64, url string) (*domain.Product, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.products[productKey{storeID, url}]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

// PriceRepository

func (f *fakeCatalog) Append(_ context.Context, price *domain.Price) (*domain.Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.priceCalls++
	if f.failPriceAt > 0 && f.priceCalls == f.failPriceAt {
		return nil, errStorageDown
	}

	f.priceSeq++
	p := *price
	p.ID = f.priceSeq
	f.prices = append(f.prices, p)

	cp := p
	return &cp, nil
}

func (f *fakeCatalog) latest(productID int64) (domain.Price, bool) {
	var (
		best  domain.Price
		found bool
	)
	for _, p := range f.prices {
		if p.ProductID != productID {
			continue
		}
		if !found || p.ScrapedAt.After(best.ScrapedAt) || (p.ScrapedAt.Equal(best.ScrapedAt) && p.ID > best.ID) {
			best, found = p, true
		}
	}

	return best, found
}

func (f *fakeCatalog) Latest(_ context.Context, productID int64) (*domain.Price, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.latest(productID)
	if !ok {
		return nil, false, nil
	}

	return &p, true, nil
}

func (f *fakeCatalog) History(_ context.Context, productID int64, limit int) ([]domain.Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.Price
	for _, p := range f.prices {
		if p.ProductID == productID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ScrapedAt.Equal(out[j].ScrapedAt) {
			return out[i].ScrapedAt.After(out[j].ScrapedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

// StatsRepository

func (f *fakeCatalog) Counts(_ context.Context) (*Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return &Stats{
		Stores:   int64(len(f.stores)),
		Products: int64(len(f.products)),
		Prices:   int64(len(f.prices)),
	}, nil
}

// OutboxRepository

func (f *fakeCatalog) Create(_ context.Context, event *OutboxEvent) (*OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ev := *event
	ev.ID = int64(len(f.outbox) + 1)
	f.outbox = append(f.outbox, &ev)

	return &ev, nil
}

func (f *fakeCatalog) GetAndMarkAsProcessing(_ context.Context, limit int) ([]*OutboxEvent, error) {
	return nil, nil
}

func (f *fakeCatalog) MarkAsProcessed(_ context.Context, id int64) error { return nil }

func (f *fakeCatalog) Release(_ context.Context, id int64) error { return nil }

func (f *fakeCatalog) ReleaseStale(_ context.Context, _ time.Duration) (int64, error) { return 0, nil }

// CacheRepository

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) (*ProductInfo, int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.cache[id]
	if !ok {
		return nil, f.generation[id], false, nil
	}

	return &p, f.generation[id], true, nil
}

func (f *fakeCatalog) SetProduct(_ context.Context, product ProductInfo, generation int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.generation[product.ID] != generation {
		return nil
	}
	f.cache[product.ID] = product
	return nil
}

func (f *fakeCatalog) DeleteProducts(_ context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range ids {
		delete(f.cache, id)
		f.generation[id]++
	}
	f.evicted = append(f.evicted, ids...)

	return nil
}
