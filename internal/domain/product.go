package domain

import (
	"time"
)

// Metadata — произвольные атрибуты товара без схемы
type Metadata map[string]any

// Product описывает идентичность "этот товар в этом магазине".
// Ключ идентичности — пара (StoreID, URL).
type Product struct {
	ID            int64
	StoreID       int64
	CategoryID    *int64
	Name          string
	URL           string
	Image         *string
	Metadata      Metadata
	InStock       bool
	IsDeleted     bool
	DeletedAt     *time.Time
	LastScrapedAt *time.Time
	SearchText    string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// ScrapedFields — изменяемые поля товара, пришедшие из очередного скрапинга.
type ScrapedFields struct {
	Name       string
	Image      *string
	CategoryID *int64
	InStock    bool
	ScrapedAt  time.Time
}

// ProductChanges перечисляет, какие поля изменились при применении скрапинга.
type ProductChanges struct {
	Name       bool
	Image      bool
	Category   bool
	InStock    bool
	Restored   bool // товар был мягко удалён и снова появился
	SearchText bool
}

// Any сообщает, изменилось ли хоть одно содержательное поле (время скрапинга не учитывается).
func (c ProductChanges) Any() bool {
	return c.Name || c.Image || c.Category || c.InStock || c.Restored
}

// NewProduct создаёт товар при первом обнаружении.
func NewProduct(storeID int64, url string, f ScrapedFields) *Product {
	scrapedAt := f.ScrapedAt
	return &Product{
		StoreID:       storeID,
		CategoryID:    f.CategoryID,
		Name:          f.Name,
		URL:           url,
		Image:         f.Image,
		Metadata:      Metadata{},
		InStock:       f.InStock,
		LastScrapedAt: &scrapedAt,
		SearchText:    NormalizeSearchText(f.Name),
	}
}

// ApplyUpdate применяет свежие данные скрапинга к существующему товару и возвращает
// изменённую копию. ID, StoreID, URL и CreatedAt не меняются никогда.
// Отсутствующие в скрапинге изображение и категория сохраняют прежние значения,
// поисковый текст пересчитывается только при смене названия,
// время последнего скрапинга только растёт.
// Те же правила реализованы в upsert-запросе репозитория.
func (p Product) ApplyUpdate(f ScrapedFields) (Product, ProductChanges) {
	var changes ProductChanges
	next := p

	if f.Name != p.Name {
		next.Name = f.Name
		next.SearchText = NormalizeSearchText(f.Name)
		changes.Name = true
		changes.SearchText = next.SearchText != p.SearchText
	}

	if f.Image != nil && (p.Image == nil || *p.Image != *f.Image) {
		img := *f.Image
		next.Image = &img
		changes.Image = true
	}

	if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
		cat := *f.CategoryID
		next.CategoryID = &cat
		changes.Category = true
	}

	if f.InStock != p.InStock {
		next.InStock = f.InStock
		changes.InStock = true
	}

	if p.IsDeleted {
		next.IsDeleted = false
		next.DeletedAt = nil
		changes.Restored = true
	}

	if p.LastScrapedAt == nil || f.ScrapedAt.After(*p.LastScrapedAt) {
		scrapedAt := f.ScrapedAt
		next.LastScrapedAt = &scrapedAt
	}

	return next, changes
}
