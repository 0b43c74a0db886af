package converter

import (
	"time"

	"github.com/google/uuid"
)

// StoreModel представляет запись таблицы stores в PostgreSQL.
type StoreModel struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	URL       string    `db:"url"`
	Currency  string    `db:"currency"`
	CreatedAt time.Time `db:"created_at"`
}

// CategoryModel представляет запись таблицы categories в PostgreSQL.
type CategoryModel struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// ProductModel представляет запись таблицы products в PostgreSQL.
type ProductModel struct {
	ID            int64      `db:"id"`
	StoreID       int64      `db:"store_id"`
	CategoryID    *int64     `db:"category_id"`
	Name          string     `db:"name"`
	URL           string     `db:"url"`
	Image         *string    `db:"image"`
	Metadata      []byte     `db:"metadata"`
	InStock       bool       `db:"in_stock"`
	IsDeleted     bool       `db:"is_deleted"`
	DeletedAt     *time.Time `db:"deleted_at"`
	LastScrapedAt *time.Time `db:"last_scraped_at"`
	SearchText    string     `db:"search_text"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     *time.Time `db:"updated_at"`
}

// PrevProductModel — изменяемые поля строки products до upsert.
// Все поля nullable: при вставке предыдущей строки нет.
type PrevProductModel struct {
	ID            *int64
	CategoryID    *int64
	Name          *string
	Image         *string
	InStock       *bool
	IsDeleted     *bool
	DeletedAt     *time.Time
	LastScrapedAt *time.Time
	SearchText    *string
}

// PriceModel представляет запись таблицы prices. Сумма читается как текст NUMERIC.
type PriceModel struct {
	ID        int64     `db:"id"`
	ProductID int64     `db:"product_id"`
	Price     string    `db:"price"`
	Currency  string    `db:"currency"`
	ScrapedAt time.Time `db:"scraped_at"`
}

// ProductInfoModel — строка выборки товара с магазином, категорией и последней ценой.
type ProductInfoModel struct {
	ID             int64
	StoreID        int64
	StoreName      string
	CategoryID     *int64
	CategoryName   *string
	Name           string
	URL            string
	Image          *string
	InStock        bool
	IsDeleted      bool
	LastScrapedAt  *time.Time
	CreatedAt      time.Time
	Price          *string
	PriceCurrency  *string
	PriceScrapedAt *time.Time
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID          int64      `db:"id"`
	EventID     uuid.UUID  `db:"event_id"`
	EventType   string     `db:"event_type"`
	StoreID     int64      `db:"store_id"`
	Payload     []byte     `db:"payload"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}
