package converter

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/voyager-tech/go-backend/internal/domain"
	"github.com/voyager-tech/go-backend/internal/usecase"
)

type ProductInfoConverter interface {
	ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel
	ToUseCase(model *ProductInfoRedisModel) (*usecase.ProductInfo, error)
}

type ProductInfoConv struct{}

func (ProductInfoConv) ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel {
	model := &ProductInfoRedisModel{
		ID:            entity.ID,
		StoreID:       entity.StoreID,
		StoreName:     entity.StoreName,
		CategoryID:    entity.CategoryID,
		CategoryName:  entity.CategoryName,
		Name:          entity.Name,
		URL:           entity.URL,
		Image:         entity.Image,
		InStock:       entity.InStock,
		IsDeleted:     entity.IsDeleted,
		LastScrapedAt: entity.LastScrapedAt,
		CreatedAt:     entity.CreatedAt,
	}

	if entity.Price != nil {
		model.Price = &PriceRedisModel{
			Amount:    entity.Price.Amount.StringFixed(domain.PriceScale),
			Currency:  entity.Price.Currency,
			ScrapedAt: entity.Price.ScrapedAt,
		}
	}

	return model
}

func (ProductInfoConv) ToUseCase(model *ProductInfoRedisModel) (*usecase.ProductInfo, error) {
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

	if model.Price != nil {
		amount, err := decimal.NewFromString(model.Price.Amount)
		if err != nil {
			return nil, fmt.Errorf("parse cached price of product %d: %w", model.ID, err)
		}
		info.Price = &usecase.LatestPrice{
			Amount:    amount,
			Currency:  model.Price.Currency,
			ScrapedAt: model.Price.ScrapedAt,
		}
	}

	return info, nil
}
