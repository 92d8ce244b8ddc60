package notification

import (
	"context"
	"sync"
	"time"

	"notigram/internal/common"
)

// recordingTransport records every post and fails the calls whose 1-based
// index is listed in failOn.
type recordingTransport struct {
	mu     sync.Mutex
	posts  []PostRequest
	failOn map[int]bool
}

func (t *recordingTransport) Post(_ context.Context, req PostRequest) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.posts = append(t.posts, req)
	if t.failOn[len(t.posts)] {
		return common.NewStatusError(502, "Bad Gateway")
	}
	return nil
}

func (t *recordingTransport) texts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.posts))
	for i, p := range t.posts {
		out[i] = p.Text
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now int64
}

func (c *fakeClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) set(ms int64) {
	c.mu.Lock()
	c.now = ms
	c.mu.Unlock()
}

// inlineExecutor runs tasks on the submitting goroutine.
type inlineExecutor struct {
	dispatcher *Dispatcher
	submitted  int
}

func (e *inlineExecutor) Submit(task DispatchTask) error {
	e.submitted++
	e.dispatcher.Run(context.Background(), task)
	return nil
}

// captureExecutor keeps tasks without running them.
type captureExecutor struct {
	mu    sync.Mutex
	tasks []DispatchTask
	err   error
}

func (e *captureExecutor) Submit(task DispatchTask) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.tasks = append(e.tasks, task)
	return nil
}

type levelFormatter struct{}

func (levelFormatter) Format(e Event) (string, error) {
	return "[" + e.Level + "] " + e.Message, nil
}

type stubSharedGate struct {
	allow bool
	err   error
	calls int
}

func (s *stubSharedGate) Allow(context.Context, time.Duration) (bool, error) {
	s.calls++
	return s.allow, s.err
}

func testConfig() DispatchConfig {
	cfg := DefaultDispatchConfig()
	cfg.BotToken = "123:abc"
	cfg.ChatID = "-1001"
	return cfg
}
