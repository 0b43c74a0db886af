package http

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/voyager-tech/go-backend/internal/domain"
	"github.com/voyager-tech/go-backend/internal/usecase"
	"github.com/voyager-tech/go-backend/pkg/e"
)

type ProductResponse struct {
	ID             int64      `json:"id"`
	StoreID        int64      `json:"store_id"`
	StoreName      string     `json:"store_name"`
	CategoryID     *int64     `json:"category_id"`
	Category       *string    `json:"category"`
	Name           string     `json:"name"`
	URL            string     `json:"url"`
	Image          *string    `json:"image"`
	InStock        bool       `json:"in_stock"`
	IsDeleted      bool       `json:"is_deleted"`
	LastScrapedAt  *time.Time `json:"last_scraped_at"`
	CreatedAt      time.Time  `json:"created_at"`
	Price          *string    `json:"price"`
	Currency       *string    `json:"currency"`
	PriceScrapedAt *time.Time `json:"price_scraped_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Count    int               `json:"count"`
	Query    *string           `json:"query,omitempty"`
}

type PricePointResponse struct {
	ID        int64     `json:"id"`
	Price     string    `json:"price"`
	Currency  string    `json:"currency"`
	ScrapedAt time.Time `json:"scraped_at"`
}

type PriceHistoryResponse struct {
	ProductID int64                `json:"product_id"`
	History   []PricePointResponse `json:"history"`
	Count     int                  `json:"count"`
}

type StoreResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

type StoreListResponse struct {
	Stores []StoreResponse `json:"stores"`
	Count  int             `json:"count"`
}

type StatsResponse struct {
	Stores   int64 `json:"stores"`
	Products int64 `json:"products"`
	Prices   int64 `json:"prices"`
}

// IngestItemRequest — позиция батча. price принимается и числом, и строкой.
type IngestItemRequest struct {
	Name     string           `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	URL      string           `json:"url"`
	Currency string           `json:"currency,omitempty"`
	Image    *string          `json:"image,omitempty"`
	Category string           `json:"category,omitempty"`
	InStock  *bool            `json:"in_stock,omitempty"`
}

type IngestRequest struct {
	StoreURL    string              `json:"store_url"`
	Category    string              `json:"category,omitempty"`
	MarkMissing bool                `json:"mark_missing,omitempty"`
	ScrapedAt   *time.Time          `json:"scraped_at,omitempty"`
	Items       []IngestItemRequest `json:"items"`
}

type IngestResponse struct {
	StoreID         int64 `json:"store_id"`
	ProductsTouched int   `json:"products_touched"`
	PricesAppended  int   `json:"prices_appended"`
	ProductsCreated int   `json:"products_created"`
	MarkedMissing   int   `json:"marked_missing"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func toProductResponse(p usecase.ProductInfo) ProductResponse {
	resp := ProductResponse{
		ID:            p.ID,
		StoreID:       p.StoreID,
		StoreName:     p.StoreName,
		CategoryID:    p.CategoryID,
		Category:      p.CategoryName,
		Name:          p.Name,
		URL:           p.URL,
		Image:         p.Image,
		InStock:       p.InStock,
		IsDeleted:     p.IsDeleted,
		LastScrapedAt: p.LastScrapedAt,
		CreatedAt:     p.CreatedAt,
	}

	if p.Price != nil {
		amount := p.Price.Amount.StringFixed(domain.PriceScale)
		currency := p.Price.Currency
		scrapedAt := p.Price.ScrapedAt
		resp.Price, resp.Currency, resp.PriceScrapedAt = &amount, &currency, &scrapedAt
	}

	return resp
}

func toProductListResponse(products []usecase.ProductInfo) ProductListResponse {
	resp := ProductListResponse{Products: make([]ProductResponse, 0, len(products))}
	for _, p := range products {
		resp.Products = append(resp.Products, toProductResponse(p))
	}
	resp.Count = len(resp.Products)

	return resp
}

func toPriceHistoryResponse(productID int64, prices []domain.Price) PriceHistoryResponse {
	resp := PriceHistoryResponse{ProductID: productID, History: make([]PricePointResponse, 0, len(prices))}
	for _, p := range prices {
		resp.History = append(resp.History, PricePointResponse{
			ID:        p.ID,
			Price:     p.Amount.StringFixed(domain.PriceScale),
			Currency:  p.Currency,
			ScrapedAt: p.ScrapedAt,
		})
	}
	resp.Count = len(resp.History)

	return resp
}

func toStoreResponse(s domain.Store) StoreResponse {
	return StoreResponse{
		ID:        s.ID,
		Name:      s.Name,
		URL:       s.URL,
		Currency:  s.Currency,
		CreatedAt: s.CreatedAt,
	}
}

// toUseCase проверяет только то, что теряется при декодировании (наличие цены);
// остальные правила применяет usecase.
func (r *IngestRequest) toUseCase() (*usecase.IngestReq, error) {
	items := make([]usecase.IngestItem, 0, len(r.Items))
	for i, it := range r.Items {
		if it.Price == nil {
			return nil, e.NewValidationError(i, "price", "is required")
		}
		items = append(items, usecase.IngestItem{
			Name:     it.Name,
			Price:    *it.Price,
			URL:      it.URL,
			Currency: it.Currency,
			Image:    it.Image,
			Category: it.Category,
			InStock:  it.InStock,
		})
	}

	req := &usecase.IngestReq{
		StoreURL: r.StoreURL,
		Items:    items,
		Options: usecase.IngestOptions{
			DefaultCategory: r.Category,
			MarkMissing:     r.MarkMissing,
		},
	}
	if r.ScrapedAt != nil {
		req.ScrapedAt = r.ScrapedAt.UTC()
	}

	return req, nil
}
