package handlers

import (
	"context"
	"net/http"
	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const serviceName = "task-manager"

type RouterConfig struct {
	Users      UserService
	Categories CategoryService
	Tasks      TaskService
	Sessions   SessionStore
	Cookie     CookieConfig
	// Accounts, если задан, проверяет активность владельца сессии на каждом запросе
	Accounts middleware.AccountChecker
	// Middlewares применяются ко всем маршрутам в заданном порядке
	Middlewares []func(http.Handler) http.Handler
	// Metrics отдаётся на GET /metrics, если задан
	Metrics http.Handler
}

// NewRouter собирает маршруты /api/{user,category,task}/<операция>.
// Неизвестный путь и неверный метод дают 404.
func NewRouter(cfg RouterConfig) *chi.Mux {
	users := NewUserHandler(cfg.Users, cfg.Sessions, cfg.Cookie)
	categories := NewCategoryHandler(cfg.Categories)
	tasks := NewTaskHandler(cfg.Tasks)

	r := chi.NewRouter()
	r.Use(cfg.Middlewares...)
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/health", healthCheck(cfg.Users))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Session(cfg.Sessions, cfg.Cookie.Name))
		if cfg.Accounts != nil {
			r.Use(middleware.ActiveAccount(cfg.Accounts, cfg.Sessions))
		}

		r.Route("/user", func(r chi.Router) {
			r.Post("/register", users.Register)
			r.Post("/login", users.Login)
			r.Post("/logout", users.Logout)
			r.Get("/info", withUser(users.Info))
			r.Post("/update", withUser(users.Update))
			r.Get("/checkUsername", users.CheckUsername)
			r.Get("/checkEmail", users.CheckEmail)
		})

		r.Route("/category", func(r chi.Router) {
			r.Post("/create", withUser(categories.Create))
			r.Post("/update", withUser(categories.Update))
			r.Post("/delete", withUser(categories.Delete))
			r.Get("/list", withUser(categories.List))
			r.Get("/get", withUser(categories.Get))
			r.Get("/checkName", withUser(categories.CheckName))
		})

		r.Route("/task", func(r chi.Router) {
			r.Post("/create", withUser(tasks.Create))
			r.Post("/update", withUser(tasks.Update))
			r.Post("/delete", withUser(tasks.Delete))
			r.Post("/updateStatus", withUser(tasks.UpdateStatus))
			r.Get("/list", withUser(tasks.List))
			r.Get("/get", withUser(tasks.Get))
			r.Get("/category", withUser(tasks.ByCategory))
			r.Get("/status", withUser(tasks.ByStatus))
			r.Get("/priority", withUser(tasks.ByPriority))
			r.Get("/dateRange", withUser(tasks.ByDateRange))
			r.Get("/search", withUser(tasks.Search))
			r.Get("/count", withUser(tasks.Count))
		})
	})

	return r
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

func healthCheck(checker healthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if err := checker.HealthCheck(r.Context()); err != nil {
			logger.Error("HTTP: Хранилище недоступно", err)
			responseWithJSON(w, http.StatusServiceUnavailable,
				toPayload("status", "unhealthy"),
				toPayload("service", serviceName))
			return
		}

		logger.Debug("HTTP_OUT: Проверка состояния", zap.Duration("ms", time.Since(start)))
		responseWithJSON(w, http.StatusOK,
			toPayload("status", "ok"),
			toPayload("service", serviceName),
			toPayload("time", time.Now().UTC().Format(time.RFC3339)))
	}
}
