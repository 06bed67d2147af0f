// Package worker drains the background event queue and dispatches each event
// to the handler registered for its kind.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/skillgrade/internal/domain/model"
	"github.com/okian/skillgrade/pkg/logger"
	"github.com/okian/skillgrade/pkg/metrics"
)

const (
	defaultHandlerTimeout = 10 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// ErrNoHandler is returned for events whose kind has no registered handler.
var ErrNoHandler = errors.New("no handler for event kind")

// Handler processes one kind of event.
type Handler interface {
	Handle(ctx context.Context, e model.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, e model.Event) error

func (f HandlerFunc) Handle(ctx context.Context, e model.Event) error { return f(ctx, e) }

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Event
}

// Pool runs a fixed number of workers over a shared queue.
type Pool struct {
	name           string
	size           int
	queue          Queue
	handlers       map[model.EventKind][]Handler
	handlerTimeout time.Duration
	logger         logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewPool creates a pool with size workers. size < 1 uses runtime.NumCPU().
func NewPool(size int, queue Queue, opts ...Option) *Pool {
	if size < 1 {
		size = runtime.NumCPU()
	}
	p := &Pool{
		name:           "worker-pool",
		size:           size,
		queue:          queue,
		handlers:       make(map[model.EventKind][]Handler),
		handlerTimeout: defaultHandlerTimeout,
		logger:         logger.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named(p.name)
	return p
}

// Register adds h for kind. Several handlers may share a kind; they run in
// registration order. Register must be called before Start.
func (p *Pool) Register(kind model.EventKind, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[kind] = append(p.handlers[kind], h)
}

// Start launches the workers. It returns immediately.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, "worker-"+strconv.Itoa(i))
	}
	metrics.UpdateWorkerCount(p.size)
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", p.size))
}

func (p *Pool) run(ctx context.Context, name string) {
	defer p.wg.Done()
	l := p.logger.Named(name)
	for event := range p.queue.Dequeue(ctx) {
		if err := p.Dispatch(ctx, event); err != nil {
			l.Error(ctx, "event handling failed",
				logger.String("event_id", event.EventID),
				logger.String("kind", string(event.Kind)),
				logger.Error(err),
			)
		}
	}
}

// Dispatch runs every handler registered for the event's kind and joins
// their errors. A failing handler does not stop the ones after it.
func (p *Pool) Dispatch(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: Event is passed by value for channel semantics
	p.mu.Lock()
	hs := p.handlers[e.Kind]
	p.mu.Unlock()
	if len(hs) == 0 {
		metrics.RecordWorkerError(string(e.Kind))
		return fmt.Errorf("%w: %s", ErrNoHandler, e.Kind)
	}

	metrics.AddWorkerActive(1)
	defer metrics.AddWorkerActive(-1)
	start := time.Now()
	defer func() { metrics.RecordWorkerLatency(string(e.Kind), time.Since(start)) }()

	var errs []error
	for _, h := range hs {
		hctx, cancel := context.WithTimeout(ctx, p.handlerTimeout)
		err := h.Handle(hctx, e)
		cancel()
		if err != nil {
			metrics.RecordWorkerError(string(e.Kind))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Shutdown waits for workers to drain a closed queue, then cancels them if
// ctx or the pool timeout expires first.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	started, cancel := p.started, p.cancel
	p.mu.Unlock()
	if !started {
		return nil
	}

	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(poolShutdownTimeout)
	defer timer.Stop()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("shutdown timed out: %w", ctx.Err())
	case <-timer.C:
		err = errors.New("shutdown timed out")
	}
	cancel()
	<-done
	metrics.UpdateWorkerCount(0)
	if err != nil {
		p.logger.Warn(ctx, "worker pool shutdown forced", logger.Error(err))
	}
	return err
}
