package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/requestcontext"
)

type recordingProcessor struct {
	mu     sync.Mutex
	calls  []time.Time
	actors []string
	n      int
	err    error
}

func (p *recordingProcessor) ProcessScheduled(ctx context.Context, now time.Time) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, now)
	p.actors = append(p.actors, requestcontext.ActorID(ctx))
	return p.n, p.err
}

func (p *recordingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestTick(t *testing.T) {
	fixed := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	t.Run("passes clock and system actor", func(t *testing.T) {
		p := &recordingProcessor{n: 2}
		s := New(p, WithClock(func() time.Time { return fixed }), WithLogger(discard()))

		assert.Equal(t, 2, s.Tick(context.Background()))
		require.Len(t, p.calls, 1)
		assert.Equal(t, fixed, p.calls[0])
		assert.Equal(t, requestcontext.SystemActor, p.actors[0])
	})

	t.Run("errors are logged not returned", func(t *testing.T) {
		p := &recordingProcessor{n: 1, err: errors.New("db down")}
		s := New(p, WithLogger(discard()))
		assert.Equal(t, 1, s.Tick(context.Background()))
	})
}

func TestRun_StopsOnCancel(t *testing.T) {
	p := &recordingProcessor{}
	s := New(p, WithInterval(5*time.Millisecond), WithLogger(discard()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return p.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
