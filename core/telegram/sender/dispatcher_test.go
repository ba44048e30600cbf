package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDial = &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

func TestDispatcherPreservesOrderWithOneWorker(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 16})
	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, i)
			return nil
		}))
	}
	d.Close()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
	assert.Equal(t, uint64(10), d.SentCount())
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{MaxRetries: 3, RetryBackoff: time.Millisecond})
	calls := 0
	require.NoError(t, d.Enqueue(context.Background(), "notify.admin", "sendMessage", func() error {
		calls++
		if calls < 3 {
			return errDial
		}
		return nil
	}))
	d.Close()
	assert.Equal(t, 3, calls)
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherDoesNotRetryPermanentErrors(t *testing.T) {
	d := NewDispatcher(Options{MaxRetries: 3, RetryBackoff: time.Millisecond})
	calls := 0
	require.NoError(t, d.Enqueue(context.Background(), "notify.admin", "sendMessage", func() error {
		calls++
		return errors.New("telegram: chat not found (400)")
	}))
	d.Close()
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestDispatcherSurvivesCancelledCaller(t *testing.T) {
	d := NewDispatcher(Options{MaxRetries: 1, RetryBackoff: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := false
	require.NoError(t, d.Enqueue(ctx, "notify.admin", "sendMessage", func() error {
		done = true
		return nil
	}))
	d.Close()
	assert.True(t, done)
}

func TestDispatcherQueueErrors(t *testing.T) {
	block := make(chan struct{})
	d := NewDispatcher(Options{QueueSize: 1})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "a", "", func() error {
		close(started)
		<-block
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), "b", "", func() error { return nil }))
	assert.ErrorIs(t, d.Enqueue(context.Background(), "c", "", func() error { return nil }), ErrQueueFull)
	assert.Error(t, d.Enqueue(context.Background(), "d", "", nil))

	close(block)
	d.Close()
	d.Close()
	assert.ErrorIs(t, d.Enqueue(context.Background(), "e", "", func() error { return nil }), ErrQueueClosed)
}

func TestRedactTokenAndClassify(t *testing.T) {
	msg := `Post "https://api.telegram.org/bot123456:AA-bb_CC/sendMessage": dial tcp: i/o timeout`
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": dial tcp: i/o timeout`, RedactToken(msg))

	assert.Equal(t, "dial", classifyError(errDial))
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "unknown", classifyError(errors.New("x")))
	assert.True(t, retryable(errDial))
	assert.False(t, retryable(errors.New("x")))
}
