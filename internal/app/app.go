package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"taskManager/internal/config"
	"taskManager/internal/handlers"
	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"taskManager/internal/repository/inmemory"
	"taskManager/internal/repository/postgres"
	"taskManager/internal/service"
	"taskManager/internal/session"
	"taskManager/internal/worker"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	_ service.Repository = (*postgres.Storage)(nil)
	_ service.Repository = (*inmemory.Storage)(nil)
)

type App struct {
	config     *config.Config
	server     *http.Server
	router     *chi.Mux
	repository service.Repository
	users      *service.UserService
	categories *service.CategoryService
	tasks      *service.TaskService
	sessions   *session.Store
	worker     *worker.SessionGCWorker
	shutdowns  []func() // выполняются в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

// InitCore поднимает логгер, хранилище и сервисы. Достаточно для CLI.
func (a *App) InitCore(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development, a.config.Logging.Level); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.initRepository(ctx); err != nil {
		return err
	}

	a.users = service.NewUserService(a.repository, 0)
	a.categories = service.NewCategoryService(a.repository)
	a.tasks = service.NewTaskService(a.repository, a.repository)
	return nil
}

// Init готовит всё для запуска HTTP-сервера.
func (a *App) Init(ctx context.Context) error {
	if err := a.InitCore(ctx); err != nil {
		return err
	}

	sessions, err := session.Open(session.Options{
		Dir: a.config.Session.Dir,
		TTL: a.config.Session.TTL,
	})
	if err != nil {
		return fmt.Errorf("инициализация сессий: %w", err)
	}
	a.sessions = sessions
	a.shutdowns = append(a.shutdowns, func() {
		if err := sessions.Close(); err != nil {
			logger.Error("Ошибка закрытия хранилища сессий", err)
		}
	})

	interval := a.config.Session.GCInterval
	a.worker = worker.NewSessionGCWorker(sessions, &interval, nil)

	a.router = a.newRouter()
	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      otelhttp.NewHandler(a.router, "taskmanager"),
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
		ErrorLog:     zap.NewStdLog(logger.Named("http")),
	}
	return nil
}

func (a *App) initRepository(ctx context.Context) error {
	switch a.config.Repository.Type {
	case config.RepositoryInMemory:
		a.repository = inmemory.NewStorage()
		logger.Info("Используется хранилище в памяти")
	case config.RepositoryPostgres:
		storage, err := postgres.New(ctx, a.config.Database)
		if err != nil {
			return fmt.Errorf("подключение к базе: %w", err)
		}
		a.repository = storage
	default:
		return fmt.Errorf("неизвестный тип хранилища %q", a.config.Repository.Type)
	}

	repo := a.repository
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Закрытие хранилища...")
		repo.Close()
	})
	return nil
}

func (a *App) newRouter() *chi.Mux {
	mws := []func(http.Handler) http.Handler{
		chimw.RealIP,
		middleware.RequestID,
		middleware.Logging,
		middleware.Recover,
		cors.Handler(cors.Options{
			AllowedOrigins:   a.config.Server.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.RateLimit(a.config.RateLimit.RPS, a.config.RateLimit.Burst),
	}
	if a.config.Server.RequestTimeout > 0 {
		mws = append(mws, chimw.Timeout(a.config.Server.RequestTimeout))
	}

	return handlers.NewRouter(handlers.RouterConfig{
		Users:      a.users,
		Categories: a.categories,
		Tasks:      a.tasks,
		Sessions:   a.sessions,
		Accounts:   a.users,
		Cookie: handlers.CookieConfig{
			Name:   a.config.Session.CookieName,
			Secure: a.config.Session.SecureCookie,
		},
		Middlewares: mws,
		Metrics:     promhttp.Handler(),
	})
}

// Run блокируется до отмены ctx или ошибки сервера, затем освобождает ресурсы.
func (a *App) Run(ctx context.Context) error {
	if a.server == nil {
		return errors.New("приложение не инициализировано")
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.worker.Start(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Остановка сервера...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("остановка сервера: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *App) Close() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}

func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) Users() *service.UserService {
	return a.users
}
