package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"debridops/internal/domain"
	"debridops/internal/metrics"
)

// itemAction performs the remote effect for one item. A nil return counts
// the item as completed, anything else as failed.
type itemAction func(ctx context.Context, item domain.RemoteFile) error

// forEachItem fans action out over items with at most MaxConcurrency
// invocations in flight. Each worker acquires an admission slot, skips the
// item if the session was cancelled meanwhile, runs the action under the
// per-item timeout, records the outcome, emits a snapshot, and holds the
// slot through the pacing delay. Returns once every worker has finished.
func (e *Engine) forEachItem(sess *session, items []domain.RemoteFile, ch chan<- domain.BulkProgress, action itemAction) {
	if len(items) == 0 {
		return
	}

	sem := semaphore.NewWeighted(int64(sess.options.MaxConcurrency))
	var wg sync.WaitGroup

	for _, item := range items {
		wg.Add(1)
		go func(item domain.RemoteFile) {
			defer wg.Done()

			if err := sem.Acquire(e.baseCtx, 1); err != nil {
				// Engine shutdown; the item stays unprocessed, same as a
				// cancellation skip.
				return
			}
			defer sem.Release(1)

			if sess.isCancelled() {
				return
			}

			sess.setCurrentItem(item.Filename)
			e.runItem(sess, item, action)
			ch <- sess.snapshot(time.Now().UTC())

			if d := sess.options.ItemDelay; d > 0 {
				time.Sleep(d)
			}
		}(item)
	}

	wg.Wait()
}

// runItem is the worker boundary: the action's error or panic becomes an
// item-level failure and never aborts the batch.
func (e *Engine) runItem(sess *session, item domain.RemoteFile, action itemAction) {
	start := time.Now()
	err := e.safeAction(sess.options.ItemTimeout, item, action)
	metrics.ItemDuration.WithLabelValues(string(sess.opType)).Observe(time.Since(start).Seconds())

	if err != nil {
		sess.incrementFailed()
		sess.addError(item.ID, item.Filename, err.Error())
		metrics.ItemsProcessedTotal.WithLabelValues(string(sess.opType), "failed").Inc()
		e.logger.Warn("bulk item failed",
			slog.String("operationId", string(sess.id)),
			slog.String("fileId", string(item.ID)),
			slog.String("filename", item.Filename),
			slog.String("error", err.Error()),
		)
		return
	}
	sess.incrementCompleted()
	metrics.ItemsProcessedTotal.WithLabelValues(string(sess.opType), "completed").Inc()
}

func (e *Engine) safeAction(timeout time.Duration, item domain.RemoteFile, action itemAction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("item action panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(e.baseCtx, timeout)
	defer cancel()
	return action(ctx, item)
}
