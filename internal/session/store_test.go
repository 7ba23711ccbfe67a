package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := Open(Options{TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestStore_CreateGetDelete тестирует полный цикл жизни сессии
func TestStore_CreateGetDelete(t *testing.T) {
	s := newStore(t, time.Hour)
	ctx := context.Background()

	sess, err := s.Create(ctx, 7, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, sess.ID, got.ID)

	require.NoError(t, s.Delete(ctx, sess.ID))
	_, err = s.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// повторное удаление не ошибка
	assert.NoError(t, s.Delete(ctx, sess.ID))
}

func TestStore_UnknownToken(t *testing.T) {
	s := newStore(t, time.Hour)

	_, err := s.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(context.Background(), "6f1c1d2e-3c6b-4a3e-9a57-0d4b6f1f2a11")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestStore_Expiry тестирует истечение TTL
func TestStore_Expiry(t *testing.T) {
	s := newStore(t, time.Second)
	ctx := context.Background()

	sess, err := s.Create(ctx, 1, "bob")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := s.Get(ctx, sess.ID)
		return err == ErrNotFound
	}, 5*time.Second, 200*time.Millisecond)
}

func TestStore_GetExtendsExpiry(t *testing.T) {
	s := newStore(t, time.Hour)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	sess, err := s.Create(ctx, 1, "bob")
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Hour), sess.ExpiresAt)

	// первая половина срока: запись не переписывается
	s.now = func() time.Time { return base.Add(10 * time.Minute) }
	got, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Hour), got.ExpiresAt)

	s.now = func() time.Time { return base.Add(40 * time.Minute) }
	got, err = s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, base.Add(100*time.Minute), got.ExpiresAt)
	assert.True(t, got.CreatedAt.Equal(base))
	assert.Equal(t, sess.ID, got.ID)
}

// TestStore_ConcurrentGet тестирует параллельное чтение одной сессии,
// в том числе когда каждое чтение пытается её продлить
func TestStore_ConcurrentGet(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
	}{
		{"без продления", time.Minute},
		{"с продлением", 45 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t, time.Hour)
			ctx := context.Background()

			base := time.Now()
			s.now = func() time.Time { return base }
			sess, err := s.Create(ctx, 9, "dave")
			require.NoError(t, err)
			s.now = func() time.Time { return base.Add(tt.elapsed) }

			const workers = 200
			var (
				wg     sync.WaitGroup
				failed atomic.Int64
				start  = make(chan struct{})
			)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					got, err := s.Get(ctx, sess.ID)
					if err != nil || got.UserID != 9 {
						failed.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			assert.Zero(t, failed.Load())
		})
	}
}

// TestStore_ConcurrentMixed тестирует чтение сессии на фоне создания и удаления других сессий,
// а затем удаление самой сессии во время чтений
func TestStore_ConcurrentMixed(t *testing.T) {
	s := newStore(t, time.Hour)
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base }
	sess, err := s.Create(ctx, 5, "erin")
	require.NoError(t, err)
	s.now = func() time.Time { return base.Add(50 * time.Minute) }

	var (
		wg     sync.WaitGroup
		failed atomic.Int64
		start  = make(chan struct{})
	)
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			if _, err := s.Get(ctx, sess.ID); err != nil {
				failed.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			<-start
			other, err := s.Create(ctx, 6, "frank")
			if err != nil {
				failed.Add(1)
				return
			}
			if err := s.Delete(ctx, other.ID); err != nil {
				failed.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	require.Zero(t, failed.Load())

	// удаление во время чтений: сессия либо найдена, либо ErrNotFound
	var unexpected atomic.Int64
	start = make(chan struct{})
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got, err := s.Get(ctx, sess.ID)
			switch {
			case err == nil && got.UserID == 5:
			case errors.Is(err, ErrNotFound):
			default:
				unexpected.Add(1)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		if err := s.Delete(ctx, sess.ID); err != nil {
			unexpected.Add(1)
		}
	}()
	close(start)
	wg.Wait()

	assert.Zero(t, unexpected.Load())
	_, err = s.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(Options{Dir: dir, TTL: time.Hour})
	require.NoError(t, err)
	sess, err := s.Create(ctx, 3, "carol")
	require.NoError(t, err)
	_, err = s.RunGC(0.5)
	assert.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(Options{Dir: dir, TTL: time.Hour})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.UserID)
}

func TestOpen_InvalidTTL(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}
