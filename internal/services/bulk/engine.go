package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"debridops/internal/domain"
	"debridops/internal/domain/ports"
	"debridops/internal/metrics"
)

const defaultCloseTimeout = 10 * time.Second

type Config struct {
	Debrid ports.Debrid
	Cache  ports.FileCache
	Logger *slog.Logger
	// Defaults applies when a caller submits zero-value options.
	Defaults domain.BulkOptions
	// CloseTimeout bounds the graceful drain during Close; 0 = 10s.
	CloseTimeout time.Duration
}

// Engine executes bulk operations against the debrid provider: bounded
// concurrency per batch, per-item failure isolation, cooperative
// cancellation, and an ordered progress stream per operation.
type Engine struct {
	debrid ports.Debrid
	cache  ports.FileCache
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[domain.OperationID]*session

	defaultsMu sync.RWMutex
	defaults   domain.BulkOptions

	// baseCtx outlives individual HTTP requests; operations are owned by
	// the engine, not by their callers.
	baseCtx      context.Context
	baseStop     context.CancelFunc
	wg           sync.WaitGroup
	closed       atomic.Bool
	closeTimeout time.Duration
	seq          atomic.Int64
}

func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	closeTimeout := cfg.CloseTimeout
	if closeTimeout <= 0 {
		closeTimeout = defaultCloseTimeout
	}
	baseCtx, stop := context.WithCancel(context.Background())
	return &Engine{
		debrid:       cfg.Debrid,
		cache:        cfg.Cache,
		logger:       logger,
		sessions:     make(map[domain.OperationID]*session),
		defaults:     cfg.Defaults.Normalize(),
		baseCtx:      baseCtx,
		baseStop:     stop,
		closeTimeout: closeTimeout,
	}
}

// Execute starts a bulk operation over items and returns its progress
// stream. The stream always begins with an all-zero snapshot, ends with
// exactly one snapshot carrying IsCompleted=true, and is closed afterwards.
// The channel is buffered for the whole operation, so an abandoned consumer
// never blocks the engine.
func (e *Engine) Execute(ctx context.Context, items []domain.RemoteFile, opType domain.BulkOperationType, opts domain.BulkOptions) (<-chan domain.BulkProgress, error) {
	if e.closed.Load() {
		return nil, domain.ErrEngineClosed
	}
	if err := opType.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %q", err, string(opType))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts == (domain.BulkOptions{}) {
		opts = e.DefaultOptions()
	} else {
		opts = opts.Normalize()
	}

	now := time.Now().UTC()
	sess := newSession(e.nextID(now), opType, opts, now, len(items))
	e.register(sess)

	// Initial + one per item + terminal: emissions can never outgrow the
	// buffer, so sends in run never block.
	ch := make(chan domain.BulkProgress, len(items)+2)
	ch <- sess.snapshot(now)

	e.logger.Info("bulk operation started",
		slog.String("operationId", string(sess.id)),
		slog.String("type", string(opType)),
		slog.Int("items", len(items)),
		slog.Int("maxConcurrency", opts.MaxConcurrency),
	)

	e.wg.Add(1)
	go e.run(sess, items, ch)
	return ch, nil
}

// Cancel requests cooperative cancellation of a running operation. Unknown
// or already-finished ids are a no-op returning false.
func (e *Engine) Cancel(id domain.OperationID) bool {
	e.mu.RLock()
	sess, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return false
	}
	sess.cancel()
	e.logger.Info("bulk operation cancelled", slog.String("operationId", string(id)))
	return true
}

// Active returns snapshots of every registered operation, ordered by id.
func (e *Engine) Active() []domain.BulkProgress {
	now := time.Now().UTC()
	e.mu.RLock()
	out := make([]domain.BulkProgress, 0, len(e.sessions))
	for _, sess := range e.sessions {
		out = append(out, sess.snapshot(now))
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].OperationID < out[j].OperationID })
	return out
}

// Progress returns a live snapshot of one registered operation.
func (e *Engine) Progress(id domain.OperationID) (domain.BulkProgress, error) {
	e.mu.RLock()
	sess, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return domain.BulkProgress{}, domain.ErrNotFound
	}
	return sess.snapshot(time.Now().UTC()), nil
}

// DefaultOptions returns the options applied when a caller submits none.
func (e *Engine) DefaultOptions() domain.BulkOptions {
	e.defaultsMu.RLock()
	defer e.defaultsMu.RUnlock()
	return e.defaults
}

// UpdateDefaultOptions replaces the engine-wide default options. Running
// operations keep the options they started with.
func (e *Engine) UpdateDefaultOptions(opts domain.BulkOptions) {
	e.defaultsMu.Lock()
	e.defaults = opts.Normalize()
	e.defaultsMu.Unlock()
}

// Close cancels every running operation and waits for workers to drain.
// In-flight item actions get their contexts cancelled once the graceful
// window expires.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.mu.RLock()
	for _, sess := range e.sessions {
		sess.cancel()
	}
	e.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.baseStop()
		return nil
	case <-time.After(e.closeTimeout):
		e.baseStop()
	}

	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		return errors.New("bulk engine close timed out")
	}
}

// run owns the whole lifetime of one operation: dispatch, terminal
// snapshot, unregistration, stream close. Deferred in that exact reverse
// order so the id leaves the registry before the stream closes.
func (e *Engine) run(sess *session, items []domain.RemoteFile, ch chan<- domain.BulkProgress) {
	defer e.wg.Done()
	defer close(ch)
	defer e.unregister(sess)
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("bulk operation panic",
				slog.String("operationId", string(sess.id)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			sess.addError("", "", fmt.Sprintf("operation aborted: %v", r))
			ch <- sess.terminal(time.Now().UTC(), true)
		}
	}()

	if err := e.dispatch(sess, items, ch); err != nil {
		sess.addError("", "", err.Error())
		final := sess.terminal(time.Now().UTC(), true)
		ch <- final
		e.logFinished(final)
		return
	}

	final := sess.terminal(time.Now().UTC(), false)
	ch <- final
	e.logFinished(final)
}

func (e *Engine) logFinished(final domain.BulkProgress) {
	metrics.OperationsTotal.WithLabelValues(string(final.Type), string(final.Status())).Inc()
	e.logger.Info("bulk operation finished",
		slog.String("operationId", string(final.OperationID)),
		slog.String("type", string(final.Type)),
		slog.String("status", string(final.Status())),
		slog.Int("totalItems", final.TotalItems),
		slog.Int("completed", final.CompletedItems),
		slog.Int("failed", final.FailedItems),
		slog.Int64("elapsedMs", final.UpdatedAt.Sub(final.StartedAt).Milliseconds()),
	)
}

func (e *Engine) register(sess *session) {
	e.mu.Lock()
	e.sessions[sess.id] = sess
	active := len(e.sessions)
	e.mu.Unlock()
	metrics.ActiveOperations.Set(float64(active))
}

func (e *Engine) unregister(sess *session) {
	e.mu.Lock()
	delete(e.sessions, sess.id)
	active := len(e.sessions)
	e.mu.Unlock()
	metrics.ActiveOperations.Set(float64(active))
}

func (e *Engine) nextID(now time.Time) domain.OperationID {
	seq := e.seq.Add(1)
	return domain.OperationID(fmt.Sprintf("bulk-%s-%d", now.Format("20060102-150405"), seq))
}
