package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Loop is the production Scheduler. Callbacks run on the goroutine that
// calls Run.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	logger *slog.Logger
}

type Option func(*Loop)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

func NewLoop(opts ...Option) *Loop {
	l := &Loop{
		wake:   make(chan struct{}, 1),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) func() bool {
	var stopped atomic.Bool
	t := time.AfterFunc(d, func() {
		l.Post(func() {
			if !stopped.Load() {
				fn()
			}
		})
	})
	return func() bool {
		stopped.Store(true)
		return t.Stop()
	}
}

func (l *Loop) Go(work func(), resume func()) {
	go func() {
		work()
		l.Post(resume)
	}()
}

func (l *Loop) Now() time.Time {
	return time.Now()
}

// Run executes queued callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			l.run(ctx, fn)

			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

func (l *Loop) run(ctx context.Context, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.ErrorContext(ctx, "scheduler callback panicked", "panic", r)
		}
	}()
	fn()
}
