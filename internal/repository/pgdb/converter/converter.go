package converter

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/voyager-tech/go-backend/internal/domain"
	"github.com/voyager-tech/go-backend/internal/usecase"
)

// StoreConverter преобразует Store между domain и моделью PostgreSQL.
type StoreConverter interface {
	ToModel(entity *domain.Store) *StoreModel
	ToEntity(model *StoreModel) *domain.Store
}

// CategoryConverter преобразует Category между domain и моделью PostgreSQL.
type CategoryConverter interface {
	ToEntity(model *CategoryModel) *domain.Category
}

// ProductConverter преобразует Product между domain и моделью PostgreSQL.
type ProductConverter interface {
	ToModel(entity *domain.Product) (*ProductModel, error)
	ToEntity(model *ProductModel) (*domain.Product, error)
	// ToPrevious восстанавливает строку до upsert поверх строки после него.
	ToPrevious(current *domain.Product, prev *PrevProductModel) *domain.Product
	ToInfo(model *ProductInfoModel) (*usecase.ProductInfo, error)
}

// PriceConverter преобразует Price между domain и моделью PostgreSQL.
type PriceConverter interface {
	ToModel(entity *domain.Price) *PriceModel
	ToEntity(model *PriceModel) (*domain.Price, error)
}

// OutboxEventConverter преобразует OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter interface {
	ToModel(entity *usecase.OutboxEvent) *OutboxEventModel
	ToEntity(model *OutboxEventModel) *usecase.OutboxEvent
	ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent
}

type StoreConv struct{}

func (StoreConv) ToModel(entity *domain.Store) *StoreModel {
	return &StoreModel{
		ID:        entity.ID,
		Name:      entity.Name,
		URL:       entity.URL,
		Currency:  entity.Currency,
		CreatedAt: entity.CreatedAt,
	}
}

func (StoreConv) ToEntity(model *StoreModel) *domain.Store {
	return &domain.Store{
		ID:        model.ID,
		Name:      model.Name,
		URL:       model.URL,
		Currency:  model.Currency,
		CreatedAt: model.CreatedAt,
	}
}

type CategoryConv struct{}

func (CategoryConv) ToEntity(model *CategoryModel) *domain.Category {
	return &domain.Category{
		ID:          model.ID,
		Name:        model.Name,
		Slug:        model.Slug,
		Description: model.Description,
		CreatedAt:   model.CreatedAt,
	}
}

type ProductConv struct{}

func (ProductConv) ToModel(entity *domain.Product) (*ProductModel, error) {
	metadata := []byte("{}")
	if len(entity.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(entity.Metadata); err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
	}

	return &ProductModel{
		ID:            entity.ID,
		StoreID:       entity.StoreID,
		CategoryID:    entity.CategoryID,
		Name:          entity.Name,
		URL:           entity.URL,
		Image:         entity.Image,
		Metadata:      metadata,
		InStock:       entity.InStock,
		IsDeleted:     entity.IsDeleted,
		DeletedAt:     entity.DeletedAt,
		LastScrapedAt: entity.LastScrapedAt,
		SearchText:    entity.SearchText,
		CreatedAt:     entity.CreatedAt,
		UpdatedAt:     entity.UpdatedAt,
	}, nil
}

func (ProductConv) ToEntity(model *ProductModel) (*domain.Product, error) {
	metadata := domain.Metadata{}
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata of product %d: %w", model.ID, err)
		}
	}

	return &domain.Product{
		ID:            model.ID,
		StoreID:       model.StoreID,
		CategoryID:    model.CategoryID,
		Name:          model.Name,
		URL:           model.URL,
		Image:         model.Image,
		Metadata:      metadata,
		InStock:       model.InStock,
		IsDeleted:     model.IsDeleted,
		DeletedAt:     model.DeletedAt,
		LastScrapedAt: model.LastScrapedAt,
		SearchText:    model.SearchText,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}, nil
}

func (ProductConv) ToPrevious(current *domain.Product, prev *PrevProductModel) *domain.Product {
	if prev == nil || prev.ID == nil {
		return nil
	}

	p := *current
	p.CategoryID = prev.CategoryID
	p.Image = prev.Image
	p.DeletedAt = prev.DeletedAt
	p.LastScrapedAt = prev.LastScrapedAt
	if prev.Name != nil {
		p.Name = *prev.Name
	}
	if prev.InStock != nil {
		p.InStock = *prev.InStock
	}
	if prev.IsDeleted != nil {
		p.IsDeleted = *prev.IsDeleted
	}
	if prev.SearchText != nil {
		p.SearchText = *prev.SearchText
	}

	return &p
}

func (ProductConv) ToInfo(model *ProductInfoModel) (*usecase.ProductInfo, error) {
	info := &usecase.ProductInfo{
		ID:            model.ID,
		StoreID:       model.StoreID,
		StoreName:     model.StoreName,
		CategoryID:    model.CategoryID,
		CategoryName:  model.CategoryName,
		Name:          model.Name,
		URL:           model.URL,
		Image:         model.Image,
		InStock:       model.InStock,
		IsDeleted:     model.IsDeleted,
		LastScrapedAt: model.LastScrapedAt,
		CreatedAt:     model.CreatedAt,
	}

	if model.Price != nil && model.PriceCurrency != nil && model.PriceScrapedAt != nil {
		amount, err := decimal.NewFromString(*model.Price)
		if err != nil {
			return nil, fmt.Errorf("parse price of product %d: %w", model.ID, err)
		}
		info.Price = &usecase.LatestPrice{
			Amount:    amount,
			Currency:  *model.PriceCurrency,
			ScrapedAt: *model.PriceScrapedAt,
		}
	}

	return info, nil
}

type PriceConv struct{}

func (PriceConv) ToModel(entity *domain.Price) *PriceModel {
	return &PriceModel{
		ID:        entity.ID,
		ProductID: entity.ProductID,
		Price:     entity.Amount.StringFixed(domain.PriceScale),
		Currency:  entity.Currency,
		ScrapedAt: entity.ScrapedAt,
	}
}

func (PriceConv) ToEntity(model *PriceModel) (*domain.Price, error) {
	amount, err := decimal.NewFromString(model.Price)
	if err != nil {
		return nil, fmt.Errorf("parse price %d: %w", model.ID, err)
	}

	return &domain.Price{
		ID:        model.ID,
		ProductID: model.ProductID,
		Amount:    amount,
		Currency:  model.Currency,
		ScrapedAt: model.ScrapedAt,
	}, nil
}

type OutboxEventConv struct{}

func (OutboxEventConv) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	return &OutboxEventModel{
		ID:          entity.ID,
		EventID:     entity.EventID,
		EventType:   entity.EventType,
		StoreID:     entity.StoreID,
		Payload:     entity.Payload,
		Status:      string(entity.Status),
		CreatedAt:   entity.CreatedAt,
		ProcessedAt: entity.ProcessedAt,
	}
}

func (OutboxEventConv) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	return &usecase.OutboxEvent{
		ID:          model.ID,
		EventID:     model.EventID,
		EventType:   model.EventType,
		StoreID:     model.StoreID,
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		CreatedAt:   model.CreatedAt,
		ProcessedAt: model.ProcessedAt,
	}
}

func (c OutboxEventConv) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	result := make([]*usecase.OutboxEvent, 0, len(models))
	for _, m := range models {
		result = append(result, c.ToEntity(m))
	}

	return result
}
