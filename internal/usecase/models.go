package usecase

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/voyager-tech/go-backend/internal/domain"
)

// INGEST

// IngestItem — одна позиция, полученная со страницы магазина.
type IngestItem struct {
	Name     string
	Price    decimal.Decimal
	URL      string
	Currency string // пусто — валюта магазина
	Image    *string
	Category string // slug категории, пусто — категория батча
	InStock  *bool  // nil — в наличии
}

// IngestOptions — параметры батча.
type IngestOptions struct {
	DefaultCategory string // slug, применяется к позициям без категории
	MarkMissing     bool   // мягко удалить товары магазина, отсутствующие в батче
}

// IngestReq — запрос на приём батча.
type IngestReq struct {
	StoreURL  string
	Items     []IngestItem
	Options   IngestOptions
	ScrapedAt time.Time // нулевое значение — время приёма
}

// IngestRes — результат приёма батча.
type IngestRes struct {
	StoreID         int64
	ProductsTouched int
	PricesAppended  int
	ProductsCreated int
	MarkedMissing   int
}

// RESOLVER

// ProductInput — данные для разрешения идентичности товара.
type ProductInput struct {
	Name       string
	URL        string
	Image      *string
	CategoryID *int64
	InStock    bool
	ScrapedAt  time.Time
}

// ResolvedProduct — итог разрешения: сохранённый товар и что изменилось.
type ResolvedProduct struct {
	Product *domain.Product
	Created bool
	Changes domain.ProductChanges
}

// QUERIES

// LatestPrice — последнее наблюдение цены в выдаче каталога.
type LatestPrice struct {
	Amount    decimal.Decimal
	Currency  string
	ScrapedAt time.Time
}

// ProductInfo — DTO товара для выдачи, с магазином, категорией и последней ценой.
type ProductInfo struct {
	ID            int64
	StoreID       int64
	StoreName     string
	CategoryID    *int64
	CategoryName  *string
	Name          string
	URL           string
	Image         *string
	InStock       bool
	IsDeleted     bool
	LastScrapedAt *time.Time
	CreatedAt     time.Time
	Price         *LatestPrice
}

// Stats — агрегированные счётчики каталога.
type Stats struct {
	Stores   int64
	Products int64
	Prices   int64
}

// REPOSITORIES

// UpsertProductRes — результат upsert: строка после записи и строка до неё.
// Previous == nil, если строка создана этим вызовом.
type UpsertProductRes struct {
	Product  *domain.Product
	Previous *domain.Product
	Created  bool
}

func NewUpsertProductRes(product *domain.Product, previous *domain.Product, created bool) *UpsertProductRes {
	return &UpsertProductRes{
		Product:  product,
		Previous: previous,
		Created:  created,
	}
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
)

// EventCatalogIngested — тип события об успешном приёме батча
const EventCatalogIngested = "catalog.ingested"

type OutboxEvent struct {
	ID          int64
	EventID     uuid.UUID
	EventType   string
	StoreID     int64
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// CatalogIngested — полезная нагрузка события catalog.ingested.
type CatalogIngested struct {
	EventID         string    `json:"event_id"`
	StoreID         int64     `json:"store_id"`
	StoreName       string    `json:"store_name"`
	ProductsTouched int       `json:"products_touched"`
	PricesAppended  int       `json:"prices_appended"`
	CreatedIDs      []int64   `json:"created_ids"`
	RenamedIDs      []int64   `json:"renamed_ids"`
	MissingIDs      []int64   `json:"missing_ids,omitempty"`
	ScrapedAt       time.Time `json:"scraped_at"`
}

// INFRASTRUCTURE

type WriteRawMessageReq struct {
	Key       int64 // store_id: события одного магазина попадают в одну партицию
	EventID   uuid.UUID
	EventType string
	Payload   []byte
}

// MAPPERS

func NewOutboxEvent(eventID uuid.UUID, eventType string, storeID int64, payload []byte, createdAt time.Time) *OutboxEvent {
	return &OutboxEvent{
		EventID:   eventID,
		EventType: eventType,
		StoreID:   storeID,
		Payload:   payload,
		Status:    Pending,
		CreatedAt: createdAt,
	}
}

func NewWriteRawMessageReq(event *OutboxEvent) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:       event.StoreID,
		EventID:   event.EventID,
		EventType: event.EventType,
		Payload:   event.Payload,
	}
}

func NewIngestRes(storeID int64, touched, appended, created, missing int) *IngestRes {
	return &IngestRes{
		StoreID:         storeID,
		ProductsTouched: touched,
		PricesAppended:  appended,
		ProductsCreated: created,
		MarkedMissing:   missing,
	}
}
