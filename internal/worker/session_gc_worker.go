package worker

import (
	"context"
	"taskManager/internal/logger"
	"taskManager/internal/metrics"
	"time"

	"go.uber.org/zap"
)

const (
	defaultInterval     = 10 * time.Minute
	defaultDiscardRatio = 0.5
	// за один проход чистим не больше maxRuns файлов value log
	maxRuns = 10
)

type GarbageCollector interface {
	RunGC(discardRatio float64) (bool, error)
}

type SessionGCWorker struct {
	store        GarbageCollector
	interval     time.Duration
	discardRatio float64
}

func NewSessionGCWorker(store GarbageCollector, interval *time.Duration, discardRatio *float64) *SessionGCWorker {
	intervalToSet := defaultInterval
	if interval != nil && *interval > 0 {
		intervalToSet = *interval
	}

	ratioToSet := defaultDiscardRatio
	if discardRatio != nil && *discardRatio > 0 && *discardRatio < 1 {
		ratioToSet = *discardRatio
	}

	return &SessionGCWorker{
		store:        store,
		interval:     intervalToSet,
		discardRatio: ratioToSet,
	}
}

func (w *SessionGCWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Сборщик мусора сессий запущен", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Сборщик мусора сессий останавливается")
			return
		}
	}
}

// Check запускает GC повторно, пока хранилище находит что переписать,
// и возвращает число переписанных файлов.
func (w *SessionGCWorker) Check(ctx context.Context) int {
	start := time.Now()
	runs := 0

	for runs < maxRuns {
		if ctx.Err() != nil {
			break
		}

		rewritten, err := w.store.RunGC(w.discardRatio)
		if err != nil {
			metrics.SessionGC.WithLabelValues("error").Inc()
			logger.Warn("Worker: Ошибка сборки мусора сессий", zap.Error(err))
			break
		}
		if !rewritten {
			break
		}
		runs++
	}

	if runs > 0 {
		metrics.SessionGC.WithLabelValues("ok").Add(float64(runs))
	}
	logger.Debug("Worker: Завершение сборки мусора сессий",
		zap.Duration("ms", time.Since(start)),
		zap.Int("runs", runs))
	return runs
}
