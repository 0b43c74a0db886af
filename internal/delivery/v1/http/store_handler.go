package http

import (
	"net/http"

	"github.com/voyager-tech/go-backend/internal/usecase"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/logger"
)

type StoreHandler struct {
	catalogUsecase usecase.CatalogUC
	logger         logger.Logger
}

func NewStoreHandler(catalogUsecase usecase.CatalogUC, logger logger.Logger) *StoreHandler {
	return &StoreHandler{catalogUsecase: catalogUsecase, logger: logger}
}

// listStores
//
//	@Summary	Все магазины по имени
//	@Tags		stores
//	@Produce	json
//	@Success	200	{object}	StoreListResponse
//	@Router		/stores [get]
func (s *StoreHandler) listStores(w http.ResponseWriter, r *http.Request) {
	stores, err := s.catalogUsecase.ListStores(r.Context())
	if err != nil {
		s.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	resp := StoreListResponse{Stores: make([]StoreResponse, 0, len(stores))}
	for _, st := range stores {
		resp.Stores = append(resp.Stores, toStoreResponse(st))
	}
	resp.Count = len(resp.Stores)

	WriteSuccess(w, http.StatusOK, resp)
}

// getStore
//
//	@Summary	Магазин по ID
//	@Tags		stores
//	@Produce	json
//	@Param		id	path		int	true	"ID магазина"
//	@Success	200	{object}	StoreResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/stores/{id} [get]
func (s *StoreHandler) getStore(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	store, found, err := s.catalogUsecase.GetStore(r.Context(), id)
	if err != nil {
		s.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}
	if !found {
		WriteError(w, e.ErrNotFound)
		return
	}

	WriteSuccess(w, http.StatusOK, toStoreResponse(*store))
}
