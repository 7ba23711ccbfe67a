package handlers

import (
	"context"
	"errors"
	"net/http"
	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"taskManager/internal/service"

	"go.uber.org/zap"
)

func handleBusinessError(w http.ResponseWriter, r *http.Request, err error) bool {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		return false
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)
	logger.Warn("HTTP: Бизнес-ошибка",
		zap.String("error_code", businessErr.Code),
		zap.String("error", businessErr.Message),
		zap.Int("http_status", statusCode),
		zap.String("client_ip", r.RemoteAddr))

	payload := []Payload{
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
	}
	if len(businessErr.Details) > 0 {
		payload = append(payload, toPayload("details", businessErr.Details))
	}
	responseWithJSON(w, statusCode, payload...)
	return true
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation, service.CodeDuplicate:
		return http.StatusBadRequest
	case service.CodeConflict:
		return http.StatusConflict
	case service.CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

// handleError отвечает клиенту без подробностей, причина остаётся в логе.
func handleError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	if handleBusinessError(w, r, err) {
		return
	}

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("client_ip", r.RemoteAddr),
	}
	if errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("HTTP: Таймаут запроса", append(fields, zap.Error(err))...)
		responseWithError(w, http.StatusServiceUnavailable, msgTimeout)
		return
	}

	logger.Error("HTTP: Ошибка Service", err, fields...)
	responseWithError(w, http.StatusInternalServerError, msgInternal)
}
