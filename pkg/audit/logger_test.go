package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
)

type recordingLogger struct {
	mu       sync.Mutex
	events   []*Event
	logErr   error
	closeErr error
	closed   bool
}

func (r *recordingLogger) Log(ctx context.Context, event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.logErr
}

func (r *recordingLogger) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return r.closeErr
}

func (r *recordingLogger) recorded() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Event(nil), r.events...)
}

// blockingLogger holds every write until release is closed
type blockingLogger struct {
	recordingLogger
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingLogger() *blockingLogger {
	return &blockingLogger{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingLogger) Log(ctx context.Context, event *Event) error {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return b.recordingLogger.Log(ctx, event)
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
}

func TestMultiLogger(t *testing.T) {
	t.Run("writes to all loggers", func(t *testing.T) {
		a, b := &recordingLogger{}, &recordingLogger{}
		multi := NewMultiLogger(a, b)

		event := NewEvent(LevelInfo, CategoryAuth, "hello", nil)
		require.NoError(t, multi.Log(context.Background(), event))
		assert.Len(t, a.recorded(), 1)
		assert.Len(t, b.recorded(), 1)
	})

	t.Run("continues past failures", func(t *testing.T) {
		failing := &recordingLogger{logErr: errors.New("disk full")}
		ok := &recordingLogger{}
		multi := NewMultiLogger(failing, ok)

		err := multi.Log(context.Background(), NewEvent(LevelError, CategoryServer, "x", nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Len(t, ok.recorded(), 1)
	})

	t.Run("close closes all", func(t *testing.T) {
		a := &recordingLogger{closeErr: errors.New("busy")}
		b := &recordingLogger{}
		err := NewMultiLogger(a, b).Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "close audit logger: busy")
		assert.True(t, a.closed)
		assert.True(t, b.closed)
	})
}

func TestAsyncLogger_DeliversAndDrains(t *testing.T) {
	next := &recordingLogger{}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	async := NewAsyncLogger(next, 16, testLogger(), metrics)

	for i := 0; i < 5; i++ {
		require.NoError(t, async.Log(context.Background(), NewEvent(LevelInfo, CategoryData, "event", nil)))
	}
	require.NoError(t, async.Close())

	assert.Len(t, next.recorded(), 5)
	assert.True(t, next.closed)
	assert.Equal(t, float64(5), testutil.ToFloat64(metrics.AuditEventsTotal.WithLabelValues("info")))
}

func TestAsyncLogger_DetachesRequestCancellation(t *testing.T) {
	var seen error
	var mu sync.Mutex
	next := &ctxCheckingLogger{check: func(ctx context.Context) {
		mu.Lock()
		seen = ctx.Err()
		mu.Unlock()
	}}
	async := NewAsyncLogger(next, 4, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, async.Log(ctx, NewEvent(LevelInfo, CategoryAuth, "login", nil)))
	cancel()
	require.NoError(t, async.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.NoError(t, seen)
}

type ctxCheckingLogger struct {
	check func(ctx context.Context)
}

func (c *ctxCheckingLogger) Log(ctx context.Context, event *Event) error {
	c.check(ctx)
	return nil
}

func (c *ctxCheckingLogger) Close() error { return nil }

func TestAsyncLogger_DropsWhenFull(t *testing.T) {
	next := newBlockingLogger()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	async := NewAsyncLogger(next, 1, testLogger(), metrics)

	ctx := context.Background()
	require.NoError(t, async.Log(ctx, NewEvent(LevelInfo, CategoryAuth, "first", nil)))
	<-next.started

	require.NoError(t, async.Log(ctx, NewEvent(LevelInfo, CategoryAuth, "buffered", nil)))
	require.NoError(t, async.Log(ctx, NewEvent(LevelInfo, CategoryAuth, "dropped", nil)))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.AuditEventsDropped))

	close(next.release)
	require.NoError(t, async.Close())

	events := next.recorded()
	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].Message)
	assert.Equal(t, "buffered", events[1].Message)
}

func TestAsyncLogger_ClosedRejectsEvents(t *testing.T) {
	async := NewAsyncLogger(&recordingLogger{}, 1, testLogger(), nil)
	require.NoError(t, async.Close())
	require.NoError(t, async.Close())

	err := async.Log(context.Background(), NewEvent(LevelInfo, CategoryAuth, "late", nil))
	assert.ErrorIs(t, err, ErrClosed)
}

// idAssigningLogger stamps an id on the event the way DBLogger does
type idAssigningLogger struct {
	recordingLogger
}

func (l *idAssigningLogger) Log(ctx context.Context, event *Event) error {
	event.ID = 42
	return l.recordingLogger.Log(ctx, event)
}

func TestAsyncLogger_QueuesACopy(t *testing.T) {
	next := &idAssigningLogger{}
	async := NewAsyncLogger(next, 64, testLogger(), nil)

	events := make([]*Event, 32)
	var wg sync.WaitGroup
	for i := range events {
		events[i] = NewEvent(LevelInfo, CategoryClient, "reported", UserID(7))
		wg.Add(1)
		go func(event *Event) {
			defer wg.Done()
			assert.NoError(t, async.Log(context.Background(), event))
			_, err := json.Marshal(event)
			assert.NoError(t, err)
		}(events[i])
	}
	wg.Wait()
	require.NoError(t, async.Close())

	recorded := next.recorded()
	require.Len(t, recorded, len(events))
	for i, event := range events {
		assert.Zero(t, event.ID, "caller's event is never written by the sink")
		assert.Equal(t, int64(42), recorded[i].ID)
		assert.NotSame(t, event, recorded[i])
	}
}

func TestAsyncLogger_SurvivesFailingSink(t *testing.T) {
	next := &recordingLogger{logErr: errors.New("db down")}
	async := NewAsyncLogger(next, 4, testLogger(), nil)

	require.NoError(t, async.Log(context.Background(), NewEvent(LevelError, CategoryServer, "a", nil)))
	require.NoError(t, async.Log(context.Background(), NewEvent(LevelError, CategoryServer, "b", nil)))
	require.NoError(t, async.Close())

	assert.Len(t, next.recorded(), 2)
}

func TestLogrusLogger(t *testing.T) {
	tests := []struct {
		level     Level
		wantLevel string
	}{
		{LevelTrace, "debug"},
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarning, "warning"},
		{LevelError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			mirror := NewLogrusLogger(observability.NewLogger(observability.DebugLevel, &buf))

			event := NewEvent(tt.level, CategoryAuth, "mirrored", UserID(11))
			require.NoError(t, mirror.Log(context.Background(), event))

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, "mirrored", entry["msg"])
			assert.Equal(t, "auth", entry["category"])
			assert.Equal(t, "audit", entry["component"])
			assert.Equal(t, float64(11), entry["user_id"])
		})
	}
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	assert.NoError(t, l.Log(context.Background(), NewEvent(LevelInfo, CategoryAuth, "x", nil)))
	assert.NoError(t, l.Close())
}
