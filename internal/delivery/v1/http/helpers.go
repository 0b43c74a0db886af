package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/voyager-tech/go-backend/pkg/e"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Index   *int   `json:"index,omitempty"` // позиция в батче для ошибок валидации элемента
	Field   string `json:"field,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// ToHTTPResponse переводит ошибку ядра в HTTP-ответ. Внутренние детали наружу не отдаются.
func ToHTTPResponse(err error) *ErrorResponse {
	var v *e.ValidationError
	switch {
	case errors.As(err, &v):
		resp := NewErrorResponse(http.StatusBadRequest, v.Error())
		resp.Field, resp.Reason = v.Field, v.Reason
		if v.Index >= 0 {
			idx := v.Index
			resp.Index = &idx
		}
		return resp
	case errors.Is(err, e.ErrInvalidLimit):
		return NewErrorResponse(http.StatusBadRequest, e.ErrInvalidLimit.Error())
	case errors.Is(err, e.ErrInvalidID):
		return NewErrorResponse(http.StatusBadRequest, e.ErrInvalidID.Error())
	case errors.Is(err, e.ErrEmptyBatch):
		return NewErrorResponse(http.StatusBadRequest, e.ErrEmptyBatch.Error())
	case errors.Is(err, e.ErrBatchTooLarge):
		return NewErrorResponse(http.StatusRequestEntityTooLarge, e.ErrBatchTooLarge.Error())
	case errors.Is(err, e.ErrValidation), errors.Is(err, e.ErrStatusBadRequest):
		return NewErrorResponse(http.StatusBadRequest, e.ErrStatusBadRequest.Error())
	case errors.Is(err, e.ErrNotFound):
		return NewErrorResponse(http.StatusNotFound, e.ErrNotFound.Error())
	case errors.Is(err, e.ErrConflict):
		return NewErrorResponse(http.StatusConflict, e.ErrConflict.Error())
	case errors.Is(err, e.ErrStorageUnavailable):
		return NewErrorResponse(http.StatusServiceUnavailable, e.ErrStorageUnavailable.Error())
	default:
		return NewErrorResponse(http.StatusInternalServerError, e.ErrInternalServerError.Error())
	}
}

func WriteError(w http.ResponseWriter, err error) {
	resp := ToHTTPResponse(err)
	WriteSuccess(w, resp.Code, resp)
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// parseID читает положительный идентификатор из параметра пути.
func parseID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, e.ErrInvalidID
	}

	return id, nil
}

// parseLimit читает ?limit=; при отсутствии параметра возвращает def.
// Неположительные значения отклоняет usecase.
func parseLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, e.ErrInvalidLimit
	}

	return limit, nil
}
