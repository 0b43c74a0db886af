package http

import (
	"net/http"

	"github.com/voyager-tech/go-backend/internal/cfg"
	"github.com/voyager-tech/go-backend/internal/usecase"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/logger"
)

type ProductHandler struct {
	catalogUsecase usecase.CatalogUC
	cfg            *cfg.CatalogCfg
	logger         logger.Logger
}

func NewProductHandler(catalogUsecase usecase.CatalogUC, cfg *cfg.CatalogCfg, logger logger.Logger) *ProductHandler {
	return &ProductHandler{catalogUsecase: catalogUsecase, cfg: cfg, logger: logger}
}

// recentProducts
//
//	@Summary		Недавно обновлённые товары
//	@Tags			products
//	@Produce		json
//	@Param			limit	query		int	false	"Максимум товаров"
//	@Success		200		{object}	ProductListResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/products [get]
func (p *ProductHandler) recentProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, p.cfg.RecentLimit)
	if err != nil {
		WriteError(w, err)
		return
	}

	products, err := p.catalogUsecase.RecentProducts(r.Context(), limit)
	if err != nil {
		p.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toProductListResponse(products))
}

// searchProducts
//
//	@Summary		Поиск товаров по названию
//	@Description	Регистр, пунктуация и диакритика не учитываются
//	@Tags			products
//	@Produce		json
//	@Param			q		query		string	true	"Строка поиска"
//	@Param			limit	query		int		false	"Максимум товаров"
//	@Success		200		{object}	ProductListResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/products/search [get]
func (p *ProductHandler) searchProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, p.cfg.SearchLimit)
	if err != nil {
		WriteError(w, err)
		return
	}

	query := r.URL.Query().Get("q")
	products, err := p.catalogUsecase.SearchProducts(r.Context(), query, limit)
	if err != nil {
		p.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	resp := toProductListResponse(products)
	resp.Query = &query
	WriteSuccess(w, http.StatusOK, resp)
}

// getProduct
//
//	@Summary		Товар с последней ценой
//	@Tags			products
//	@Produce		json
//	@Param			id	path		int	true	"ID товара"
//	@Success		200	{object}	ProductResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/products/{id} [get]
func (p *ProductHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	product, found, err := p.catalogUsecase.GetProduct(r.Context(), id)
	if err != nil {
		p.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}
	if !found {
		WriteError(w, e.ErrNotFound)
		return
	}

	WriteSuccess(w, http.StatusOK, toProductResponse(*product))
}

// priceHistory
//
//	@Summary		История цен товара
//	@Description	От новых наблюдений к старым
//	@Tags			products
//	@Produce		json
//	@Param			id		path		int	true	"ID товара"
//	@Param			limit	query		int	false	"Максимум наблюдений"
//	@Success		200		{object}	PriceHistoryResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/products/{id}/history [get]
func (p *ProductHandler) priceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	limit, err := parseLimit(r, p.cfg.HistoryLimit)
	if err != nil {
		WriteError(w, err)
		return
	}

	history, found, err := p.catalogUsecase.PriceHistory(r.Context(), id, limit)
	if err != nil {
		p.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}
	if !found {
		WriteError(w, e.ErrNotFound)
		return
	}

	WriteSuccess(w, http.StatusOK, toPriceHistoryResponse(id, history))
}
