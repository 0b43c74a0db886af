package usecase

import (
	"context"

	"github.com/voyager-tech/go-backend/internal/domain"
)

// IngestUC — приём батча скрапинга.
type IngestUC interface {
	Ingest(ctx context.Context, req *IngestReq) (*IngestRes, error)
}

// CatalogUC — операции чтения каталога.
type CatalogUC interface {
	RecentProducts(ctx context.Context, limit int) ([]ProductInfo, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]ProductInfo, error)
	GetProduct(ctx context.Context, id int64) (*ProductInfo, bool, error)
	PriceHistory(ctx context.Context, productID int64, limit int) ([]domain.Price, bool, error)
	ListStores(ctx context.Context) ([]domain.Store, error)
	GetStore(ctx context.Context, id int64) (*domain.Store, bool, error)
	Stats(ctx context.Context) (*Stats, error)
}
