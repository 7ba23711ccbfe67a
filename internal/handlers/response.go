package handlers

import (
	"encoding/json"
	"net/http"
	"taskManager/internal/logger"
	"time"

	"go.uber.org/zap"
)

const (
	msgMissingParams   = "параметры неполные"
	msgBadFormat       = "неверный формат параметра"
	msgBadDate         = "неверный формат даты, ожидается YYYY-MM-DD"
	msgBadStatus       = "недопустимый статус, ожидается 0, 1 или 2"
	msgUnauthorized    = "пользователь не авторизован"
	msgNoSuchOperation = "такой операции не существует"
	msgInternal        = "внутренняя ошибка сервера"
	msgTimeout         = "превышено время обработки запроса"
)

type Payload struct {
	Key     string
	Payload any
}

func toPayload(key string, pl any) Payload {
	return Payload{Key: key, Payload: pl}
}

// responseWithJSON пишет плоский объект; success выставляется по коду ответа.
func responseWithJSON(w http.ResponseWriter, code int, payload ...Payload) {
	storage := map[string]any{"success": code < http.StatusBadRequest}
	for _, pl := range payload {
		storage[pl.Key] = pl.Payload
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(storage); err != nil {
		logger.Error("HTTP: Ошибка записи ответа", err)
	}
}

func responseWithMessage(w http.ResponseWriter, message string, payload ...Payload) {
	responseWithJSON(w, http.StatusOK, append([]Payload{toPayload("message", message)}, payload...)...)
}

func responseWithError(w http.ResponseWriter, code int, message string) {
	responseWithJSON(w, code, toPayload("message", message))
}

func logOut(msg string, start time.Time, fields ...zap.Field) {
	fields = append(fields,
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))
	logger.Info("HTTP_OUT: "+msg, fields...)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	logger.Warn("HTTP: Неизвестная операция",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("client_ip", r.RemoteAddr))
	responseWithError(w, http.StatusNotFound, msgNoSuchOperation)
}
