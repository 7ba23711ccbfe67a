package postgres

import (
	"context"
	"errors"
	"fmt"
	"taskManager/internal/config"
	"taskManager/internal/logger"
	"taskManager/internal/metrics"
	repo "taskManager/internal/repository"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

type Storage struct {
	pool      *pgxpool.Pool
	maxWait   time.Duration
	slowQuery time.Duration
}

func New(ctx context.Context, cfg config.DatabaseConfig) (*Storage, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolConfig.MinConns = cfg.MinConnections
	}
	if cfg.IdleTimeout > 0 {
		poolConfig.MaxConnIdleTime = cfg.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	s := &Storage{
		pool:      pool,
		maxWait:   cfg.MaxWait,
		slowQuery: cfg.SlowQuery,
	}
	if s.maxWait <= 0 {
		s.maxWait = 30 * time.Second
	}
	if s.slowQuery <= 0 {
		s.slowQuery = 100 * time.Millisecond
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL",
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.Int32("min_conns", poolConfig.MinConns))
	return s, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w: %w", repo.ErrStorage, err)
	}
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

// acquire ждёт свободное соединение не дольше maxWait.
// Соединение нужно вернуть через Release на любом пути выхода.
func (s *Storage) acquire(ctx context.Context, op string) (*pgxpool.Conn, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.maxWait)
	defer cancel()

	conn, err := s.pool.Acquire(waitCtx)
	if err != nil {
		logger.Error("Repository: Нет свободного соединения", err,
			zap.String("op", op),
			zap.Duration("max_wait", s.maxWait))
		metrics.QueryErrors.WithLabelValues(op, "acquire").Inc()
		return nil, fmt.Errorf("%s: ожидание соединения: %w: %w", op, repo.ErrStorage, err)
	}
	return conn, nil
}

// finish фиксирует длительность запроса и переводит ошибку драйвера в ошибки repository.
func (s *Storage) finish(op string, start time.Time, err error) error {
	elapsed := time.Since(start)
	metrics.QueryDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	if elapsed > s.slowQuery {
		logger.Warn("Repository: Медленный запрос",
			zap.String("op", op),
			zap.Duration("ms", elapsed))
	}

	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", op, repo.ErrNotFound)
	case isUniqueViolation(err), isForeignKeyViolation(err), isCheckViolation(err):
		metrics.QueryErrors.WithLabelValues(op, "constraint").Inc()
		logger.Warn("Repository: Нарушение ограничения",
			zap.String("op", op),
			zap.String("constraint", constraintName(err)))
		return fmt.Errorf("%s: %w: %w", op, repo.ErrConflict, err)
	default:
		metrics.QueryErrors.WithLabelValues(op, "storage").Inc()
		logger.Error("Repository: Ошибка запроса", err,
			zap.String("op", op),
			zap.Duration("ms", elapsed))
		return fmt.Errorf("%s: %w: %w", op, repo.ErrStorage, err)
	}
}

// exec выполняет команду и возвращает ErrNotFound, если ни одна строка не затронута.
func (s *Storage) exec(ctx context.Context, op, query string, args ...any) error {
	conn, err := s.acquire(ctx, op)
	if err != nil {
		return err
	}
	defer conn.Release()

	start := time.Now()
	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return s.finish(op, start, err)
	}
	if tag.RowsAffected() == 0 {
		return s.finish(op, start, pgx.ErrNoRows)
	}
	return s.finish(op, start, nil)
}

func (s *Storage) exists(ctx context.Context, op, query string, args ...any) (bool, error) {
	conn, err := s.acquire(ctx, op)
	if err != nil {
		return false, err
	}
	defer conn.Release()

	start := time.Now()
	var found bool
	err = conn.QueryRow(ctx, query, args...).Scan(&found)
	if err := s.finish(op, start, err); err != nil {
		return false, err
	}
	return found, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
