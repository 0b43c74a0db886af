package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/voyager-tech/go-backend/internal/usecase"
	"github.com/voyager-tech/go-backend/pkg/e"
	"github.com/voyager-tech/go-backend/pkg/logger"
)

const maxIngestBodySize = 16 << 20

type ScraperHandler struct {
	ingestUsecase  usecase.IngestUC
	catalogUsecase usecase.CatalogUC
	logger         logger.Logger
}

func NewScraperHandler(ingestUsecase usecase.IngestUC, catalogUsecase usecase.CatalogUC, logger logger.Logger) *ScraperHandler {
	return &ScraperHandler{ingestUsecase: ingestUsecase, catalogUsecase: catalogUsecase, logger: logger}
}

// ingest
//
//	@Summary		Приём батча скрапинга
//	@Description	Все позиции принимаются одной транзакцией или отклоняются целиком
//	@Tags			scraper
//	@Accept			json
//	@Produce		json
//	@Param			batch	body		IngestRequest	true	"Батч одного магазина"
//	@Success		200		{object}	IngestResponse
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации, index указывает на позицию"
//	@Failure		503		{object}	ErrorResponse
//	@Router			/scraper/ingest [post]
func (s *ScraperHandler) ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBodySize)

	var body IngestRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, e.ErrBatchTooLarge)
			return
		}
		s.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, e.Wrap(err.Error(), e.ErrStatusBadRequest))
		return
	}

	req, err := body.toUseCase()
	if err != nil {
		WriteError(w, err)
		return
	}

	res, err := s.ingestUsecase.Ingest(r.Context(), req)
	if err != nil {
		s.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, IngestResponse{
		StoreID:         res.StoreID,
		ProductsTouched: res.ProductsTouched,
		PricesAppended:  res.PricesAppended,
		ProductsCreated: res.ProductsCreated,
		MarkedMissing:   res.MarkedMissing,
	})
}

// stats
//
//	@Summary	Счётчики каталога
//	@Tags		scraper
//	@Produce	json
//	@Success	200	{object}	StatsResponse
//	@Router		/scraper/stats [get]
func (s *ScraperHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.catalogUsecase.Stats(r.Context())
	if err != nil {
		s.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, StatsResponse{
		Stores:   stats.Stores,
		Products: stats.Products,
		Prices:   stats.Prices,
	})
}
