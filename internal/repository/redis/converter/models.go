package converter

import "time"

// ProductInfoRedisModel — карточка товара в кэше. Цена хранится строкой, чтобы не терять точность.
type ProductInfoRedisModel struct {
	ID            int64            `json:"id"`
	StoreID       int64            `json:"store_id"`
	StoreName     string           `json:"store_name"`
	CategoryID    *int64           `json:"category_id,omitempty"`
	CategoryName  *string          `json:"category_name,omitempty"`
	Name          string           `json:"name"`
	URL           string           `json:"url"`
	Image         *string          `json:"image,omitempty"`
	InStock       bool             `json:"in_stock"`
	IsDeleted     bool             `json:"is_deleted"`
	LastScrapedAt *time.Time       `json:"last_scraped_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	Price         *PriceRedisModel `json:"price,omitempty"`
}

type PriceRedisModel struct {
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	ScrapedAt time.Time `json:"scraped_at"`
}
