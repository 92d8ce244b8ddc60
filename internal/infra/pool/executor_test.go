package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"notigram/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_RunsTask(t *testing.T) {
	var mu sync.Mutex
	var got []string

	e := NewExecutor(func(_ context.Context, task notification.DispatchTask) {
		mu.Lock()
		got = append(got, task.Message)
		mu.Unlock()
	}, 2, nil)

	require.NoError(t, e.Submit(notification.DispatchTask{Message: "hello"}))
	require.NoError(t, e.Wait(context.Background()))

	assert.Equal(t, []string{"hello"}, got)
}

func TestExecutor_RejectsWhenFull(t *testing.T) {
	release := make(chan struct{})
	var ran atomic.Int32

	e := NewExecutor(func(context.Context, notification.DispatchTask) {
		ran.Add(1)
		<-release
	}, 2, nil)

	require.NoError(t, e.Submit(notification.DispatchTask{}))
	require.NoError(t, e.Submit(notification.DispatchTask{}))

	start := time.Now()
	err := e.Submit(notification.DispatchTask{})
	assert.ErrorIs(t, err, notification.ErrExecutorFull)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "submit must not block")

	close(release)
	require.Eventually(t, func() bool {
		return e.Submit(notification.DispatchTask{}) == nil
	}, time.Second, 5*time.Millisecond, "slots are released after completion")

	require.NoError(t, e.Wait(context.Background()))
	assert.GreaterOrEqual(t, ran.Load(), int32(3))
}

func TestExecutor_RejectsAfterWait(t *testing.T) {
	var ran atomic.Int32
	e := NewExecutor(func(context.Context, notification.DispatchTask) { ran.Add(1) }, 2, nil)

	require.NoError(t, e.Submit(notification.DispatchTask{}))
	require.NoError(t, e.Wait(context.Background()))

	assert.ErrorIs(t, e.Submit(notification.DispatchTask{}), notification.ErrExecutorClosed)
	assert.Equal(t, int32(1), ran.Load())
}

func TestExecutor_SubmitRacingWait(t *testing.T) {
	e := NewExecutor(func(context.Context, notification.DispatchTask) {}, 4, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := e.Submit(notification.DispatchTask{})
			if err != nil {
				assert.True(t, errors.Is(err, notification.ErrExecutorFull) || errors.Is(err, notification.ErrExecutorClosed), err)
			}
		}()
	}
	require.NoError(t, e.Wait(context.Background()))
	wg.Wait()

	assert.ErrorIs(t, e.Submit(notification.DispatchTask{}), notification.ErrExecutorClosed)
}

func TestExecutor_WaitHonorsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	e := NewExecutor(func(context.Context, notification.DispatchTask) { <-release }, 1, nil)
	require.NoError(t, e.Submit(notification.DispatchTask{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, e.Wait(ctx), context.DeadlineExceeded)
}

func TestExecutor_RecoversPanics(t *testing.T) {
	var calls atomic.Int32
	e := NewExecutor(func(context.Context, notification.DispatchTask) {
		calls.Add(1)
		panic("boom")
	}, 1, nil)

	require.NoError(t, e.Submit(notification.DispatchTask{}))
	require.Eventually(t, func() bool {
		return e.Submit(notification.DispatchTask{}) == nil
	}, time.Second, 5*time.Millisecond, "a panicking task must release its slot")

	require.NoError(t, e.Wait(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}

// steppingClock advances one second per reading.
type steppingClock struct {
	now atomic.Int64
}

func (c *steppingClock) NowMillis() int64 {
	return c.now.Add(1000)
}

func TestExecutor_NonBlockingSendReturnsWhileDispatchBlocked(t *testing.T) {
	entered := make(chan string, 2)
	release := make(chan struct{})
	transport := transportFunc(func(_ context.Context, req notification.PostRequest) error {
		entered <- req.Text
		<-release
		return nil
	})

	cfg := notification.DefaultDispatchConfig()
	cfg.BotToken = "t"
	cfg.ChatID = "c"
	cfg.MinInterval = 0

	dispatcher := notification.NewDispatcher(transport, nil, nil)
	exec := NewExecutor(dispatcher.Run, 2, nil)
	g := notification.NewGateway(cfg, dispatcher, notification.WithExecutor(exec), notification.WithClock(&steppingClock{}))
	require.NoError(t, g.Start())

	g.Send("first")
	assert.Equal(t, "first", <-entered)

	done := make(chan struct{})
	go func() {
		defer close(done)
		g.Send("second")
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second send blocked behind an in-flight dispatch")
	}
	assert.Equal(t, "second", <-entered, "both dispatches run concurrently")

	close(release)
	require.NoError(t, g.Stop(context.Background()))
}

func TestExecutor_WithGateway(t *testing.T) {
	var mu sync.Mutex
	var posted []string
	transport := transportFunc(func(_ context.Context, req notification.PostRequest) error {
		mu.Lock()
		posted = append(posted, req.Text)
		mu.Unlock()
		return nil
	})

	cfg := notification.DefaultDispatchConfig()
	cfg.BotToken = "t"
	cfg.ChatID = "c"
	cfg.MaxMessageSize = 10

	dispatcher := notification.NewDispatcher(transport, nil, nil)
	exec := NewExecutor(dispatcher.Run, 2, nil)
	g := notification.NewGateway(cfg, dispatcher, notification.WithExecutor(exec))
	require.NoError(t, g.Start())

	g.Send("abcdefghijklm")
	g.Send("dropped by the rate gate")
	require.NoError(t, g.Stop(context.Background()))

	assert.Equal(t, []string{"abcdefghij", "klm"}, posted)
}

type transportFunc func(ctx context.Context, req notification.PostRequest) error

func (f transportFunc) Post(ctx context.Context, req notification.PostRequest) error {
	return f(ctx, req)
}
