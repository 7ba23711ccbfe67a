package middleware

import (
	"context"
	"errors"
	"net/http"
	"taskManager/internal/logger"
	"taskManager/internal/session"

	"go.uber.org/zap"
)

type SessionReader interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

// Identity проверенный пользователь запроса.
type Identity struct {
	UserID    int64
	Username  string
	SessionID string
}

// Session находит сессию по cookie и кладёт Identity в контекст.
// Запрос без сессии проходит дальше: решение об отказе принимает обработчик.
func Session(store SessionReader, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := store.Get(r.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, session.ErrNotFound) {
					logger.Error("Session: Ошибка чтения сессии", err,
						zap.String("request_id", GetRequestID(r.Context())))
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithIdentity(r.Context(), Identity{
				UserID:    sess.UserID,
				Username:  sess.Username,
				SessionID: sess.ID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID > 0
}

type AccountChecker interface {
	IsActive(ctx context.Context, userID int64) (bool, error)
}

type SessionRemover interface {
	Delete(ctx context.Context, id string) error
}

// ActiveAccount отзывает сессию удалённого или отключённого пользователя.
// Ставится после Session.
func ActiveAccount(accounts AccountChecker, sessions SessionRemover) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentity(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			active, err := accounts.IsActive(r.Context(), identity.UserID)
			if err != nil {
				logger.Error("Session: Ошибка проверки учётной записи", err,
					zap.Int64("user_id", identity.UserID),
					zap.String("request_id", GetRequestID(r.Context())))
				writeError(w, r, http.StatusInternalServerError, msgInternal)
				return
			}
			if active {
				next.ServeHTTP(w, r)
				return
			}

			logger.Info("Session: Сессия неактивного пользователя отозвана",
				zap.Int64("user_id", identity.UserID))
			if err := sessions.Delete(r.Context(), identity.SessionID); err != nil {
				logger.Warn("Session: Не удалось удалить сессию", zap.Error(err))
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Identity{})))
		})
	}
}
