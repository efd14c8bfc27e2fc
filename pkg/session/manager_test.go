package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyflow/parley/pkg/adapters/memory"
	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/ports"
)

func TestDoSerializesSameSession(t *testing.T) {
	m := NewManager(memory.NewSessionStore())
	ctx := context.Background()

	const turns = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.Do(ctx, "sess", func(context.Context) error {
				// A data race here fails the test under -race; the
				// read-modify-write also drops increments without the lock.
				v := counter
				time.Sleep(time.Millisecond)
				counter = v + 1
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, turns, counter)
}

func TestDoDifferentSessionsRunConcurrently(t *testing.T) {
	m := NewManager(memory.NewSessionStore())
	ctx := context.Background()

	firstInside := make(chan struct{})
	releaseFirst := make(chan struct{})

	go func() {
		_ = m.Do(ctx, "a", func(context.Context) error {
			close(firstInside)
			<-releaseFirst
			return nil
		})
	}()

	<-firstInside

	// A second session must not queue behind the first.
	done := make(chan error, 1)
	go func() {
		done <- m.Do(ctx, "b", func(context.Context) error { return nil })
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session b blocked behind session a")
	}
	close(releaseFirst)
}

func TestTryDoFailsFastWhenHeld(t *testing.T) {
	m := NewManager(memory.NewSessionStore())
	ctx := context.Background()

	inside := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = m.Do(ctx, "sess", func(context.Context) error {
			close(inside)
			<-release
			return nil
		})
	}()
	<-inside

	err := m.TryDo(ctx, "sess", func(context.Context) error {
		t.Error("fn must not run while the lock is held")
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentTurn)

	close(release)

	// Once released, TryDo succeeds.
	assert.Eventually(t, func() bool {
		return m.TryDo(ctx, "sess", func(context.Context) error { return nil }) == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDoPropagatesFnError(t *testing.T) {
	m := NewManager(memory.NewSessionStore())
	sentinel := errors.New("turn failed")

	err := m.Do(context.Background(), "sess", func(context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestLockEntriesAreCollected(t *testing.T) {
	m := NewManager(memory.NewSessionStore())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, m.Do(ctx, "sess", func(context.Context) error { return nil }))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.locks)
}

// recordingLocker counts acquisitions and releases.
type recordingLocker struct {
	mu       sync.Mutex
	locked   int
	unlocked int
	failWith error
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return nil, l.failWith
	}
	l.locked++
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocked++
		return nil
	}, nil
}

func TestDoUsesDistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	m := NewManager(memory.NewSessionStore(), WithLocker(locker))

	err := m.Do(context.Background(), "sess", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, locker.locked)
	assert.Equal(t, 1, locker.unlocked)
}

func TestDoFailsWhenDistributedLockUnavailable(t *testing.T) {
	locker := &recordingLocker{failWith: errors.New("redis down")}
	m := NewManager(memory.NewSessionStore(), WithLocker(locker))

	ran := false
	err := m.Do(context.Background(), "sess", func(context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorContains(t, err, "acquiring distributed lock")
	assert.False(t, ran)
}
