package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"taskManager/internal/logger"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("сессия не найдена или истекла")

const keyPrefix = "session:"

type Session struct {
	ID        string    `json:"-"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Options struct {
	// Dir пустой - база только в памяти
	Dir string
	TTL time.Duration
}

// Store хранит сессии в badger, срок жизни задаётся TTL записи.
// Обращение во второй половине срока продлевает сессию на TTL.
type Store struct {
	db       *badger.DB
	ttl      time.Duration
	inMemory bool
	now      func() time.Time
}

type badgerLogger struct {
	log *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...any)   { l.log.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...any) { l.log.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...any)    { l.log.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...any)   { l.log.Debugf(format, args...) }

func Open(opts Options) (*Store, error) {
	if opts.TTL <= 0 {
		return nil, errors.New("ttl сессии должен быть положительным")
	}

	var badgerOpts badger.Options
	if opts.Dir == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("создание каталога сессий %s: %w", opts.Dir, err)
		}
		badgerOpts = badger.DefaultOptions(opts.Dir)
	}
	badgerOpts = badgerOpts.
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{log: logger.Named("badger").Sugar()})

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("открытие хранилища сессий: %w", err)
	}

	logger.Info("Session: Хранилище сессий открыто",
		zap.Bool("in_memory", opts.Dir == ""),
		zap.Duration("ttl", opts.TTL))

	return &Store{
		db:       db,
		ttl:      opts.TTL,
		inMemory: opts.Dir == "",
		now:      time.Now,
	}, nil
}

func key(id string) []byte {
	return []byte(keyPrefix + id)
}

func (s *Store) put(txn *badger.Txn, sess *Session) error {
	sess.ExpiresAt = s.now().Add(s.ttl)
	val, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("сериализация сессии: %w", err)
	}
	return txn.SetEntry(badger.NewEntry(key(sess.ID), val).WithTTL(s.ttl))
}

func (s *Store) Create(ctx context.Context, userID int64, username string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  username,
		CreatedAt: s.now(),
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return s.put(txn, sess)
	}); err != nil {
		return nil, fmt.Errorf("создание сессии: %w", err)
	}
	return sess, nil
}

// Get возвращает сессию. Срок продлевается, когда прошло больше половины TTL.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	sess := &Session{}
	err := s.db.View(func(txn *badger.Txn) error {
		return s.read(txn, id, sess)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("чтение сессии: %w", err)
	}

	if sess.ExpiresAt.Sub(s.now()) > s.ttl/2 {
		return sess, nil
	}
	return s.refresh(sess)
}

func (s *Store) read(txn *badger.Txn, id string, sess *Session) error {
	item, err := txn.Get(key(id))
	if err != nil {
		return err
	}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, sess)
	}); err != nil {
		return err
	}
	sess.ID = id
	return nil
}

// refresh переписывает запись с новым TTL.
// Параллельное продление той же сессии даёт ErrConflict: запись уже продлил
// другой запрос, прочитанная сессия остаётся действительной.
func (s *Store) refresh(sess *Session) (*Session, error) {
	fresh := &Session{}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := s.read(txn, sess.ID, fresh); err != nil {
			return err
		}
		return s.put(txn, fresh)
	})
	switch {
	case err == nil:
		return fresh, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		// удалена между чтением и продлением
		return nil, ErrNotFound
	case errors.Is(err, badger.ErrConflict):
		logger.Debug("Session: Сессия уже продлена параллельным запросом")
		return sess, nil
	default:
		logger.Warn("Session: Не удалось продлить сессию", zap.Error(err))
		return sess, nil
	}
}

// Delete не считает ошибкой отсутствие сессии.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(id))
	}); err != nil {
		return fmt.Errorf("удаление сессии: %w", err)
	}
	return nil
}

// RunGC чистит value log и сообщает, был ли переписан файл.
// Для базы в памяти ничего не делает.
func (s *Store) RunGC(ratio float64) (bool, error) {
	if s.inMemory {
		return false, nil
	}
	err := s.db.RunValueLogGC(ratio)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected):
		return false, nil
	default:
		return false, fmt.Errorf("сборка мусора сессий: %w", err)
	}
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("закрытие хранилища сессий: %w", err)
	}
	logger.Info("Session: Хранилище сессий закрыто")
	return nil
}
