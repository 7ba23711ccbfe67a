package handlers

import (
	"context"
	"net/http"
	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"taskManager/internal/models/category"
	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
	"taskManager/internal/service"
	"taskManager/internal/session"

	"go.uber.org/zap"
)

type UserService interface {
	HealthCheck(ctx context.Context) error
	Register(ctx context.Context, in service.RegisterInput) (*user.User, error)
	Login(ctx context.Context, username, password string) (*user.User, error)
	GetByID(ctx context.Context, id int64) (*user.User, error)
	Update(ctx context.Context, id int64, in service.UpdateUserInput) (*user.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

type CategoryService interface {
	Create(ctx context.Context, userID int64, in service.CategoryInput) (*category.Category, error)
	Get(ctx context.Context, userID, id int64) (*category.Category, error)
	Update(ctx context.Context, userID, id int64, in service.CategoryInput) (*category.Category, error)
	Delete(ctx context.Context, userID, id int64) error
	List(ctx context.Context, userID int64) ([]*category.Category, error)
	NameExists(ctx context.Context, userID int64, name string) (bool, error)
}

type TaskService interface {
	Create(ctx context.Context, userID int64, in service.TaskInput) (*task.Task, error)
	Get(ctx context.Context, userID, id int64) (*task.Task, error)
	Update(ctx context.Context, userID, id int64, in service.TaskInput) (*task.Task, error)
	UpdateStatus(ctx context.Context, userID, id int64, status task.Status) error
	Delete(ctx context.Context, userID, id int64) error
	List(ctx context.Context, userID int64) ([]*task.Task, error)
	ListByCategory(ctx context.Context, userID, categoryID int64) ([]*task.Task, error)
	ListByStatus(ctx context.Context, userID int64, status task.Status) ([]*task.Task, error)
	ListByPriority(ctx context.Context, userID int64, priority int) ([]*task.Task, error)
	ListByDateRange(ctx context.Context, userID int64, from, to task.Date) ([]*task.Task, error)
	Search(ctx context.Context, userID int64, keyword string) ([]*task.Task, error)
	CountByStatus(ctx context.Context, userID int64, status task.Status) (int64, error)
}

type SessionStore interface {
	Create(ctx context.Context, userID int64, username string) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	Delete(ctx context.Context, id string) error
}

// userHandlerFunc получает id пользователя из проверенной сессии.
type userHandlerFunc func(w http.ResponseWriter, r *http.Request, userID int64)

func withUser(next userHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.GetIdentity(r.Context())
		if !ok {
			logger.Warn("HTTP: Запрос без сессии",
				zap.String("path", r.URL.Path),
				zap.String("client_ip", r.RemoteAddr))
			responseWithError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		next(w, r, identity.UserID)
	}
}
