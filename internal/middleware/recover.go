package middleware

import (
	"net/http"
	"taskManager/internal/logger"

	"go.uber.org/zap"
)

const msgInternal = "внутренняя ошибка сервера"

// Recover превращает панику обработчика в 500 с общим сообщением.
// Подробности только в логе.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.Logger.Error("HTTP: Паника в обработчике",
				zap.Any("panic", rec),
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Stack("stack"))

			writeError(w, r, http.StatusInternalServerError, msgInternal)
		}()

		next.ServeHTTP(w, r)
	})
}
