package bulk

import (
	"sync"
	"sync/atomic"
	"time"

	"debridops/internal/domain"
)

// session is the mutable, worker-shared state of one in-flight bulk
// operation. Counters are atomic and exact; currentItem, errors and results
// share one mutex. State only leaves the session as immutable snapshots.
type session struct {
	id        domain.OperationID
	opType    domain.BulkOperationType
	options   domain.BulkOptions
	startedAt time.Time

	total     atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Bool

	mu          sync.Mutex
	currentItem string
	errors      []domain.ItemError
	results     domain.BulkResults
}

func newSession(id domain.OperationID, opType domain.BulkOperationType, opts domain.BulkOptions, startedAt time.Time, totalItems int) *session {
	s := &session{
		id:        id,
		opType:    opType,
		options:   opts,
		startedAt: startedAt,
	}
	s.total.Store(int64(totalItems))
	return s
}

// setTotal corrects the batch size after a handler filtered the batch.
// Must be called before any worker starts.
func (s *session) setTotal(n int) {
	s.total.Store(int64(n))
}

func (s *session) incrementCompleted() int64 {
	return s.completed.Add(1)
}

func (s *session) incrementFailed() int64 {
	return s.failed.Add(1)
}

func (s *session) addError(id domain.FileID, filename, message string) {
	s.mu.Lock()
	s.errors = append(s.errors, domain.ItemError{FileID: id, Filename: filename, Message: message})
	s.mu.Unlock()
}

// setCurrentItem records the item a worker is about to process. Concurrent
// workers overwrite each other; the value is display-only.
func (s *session) setCurrentItem(name string) {
	s.mu.Lock()
	s.currentItem = name
	s.mu.Unlock()
}

// setResults stores the typed result bag. Called once per operation, by the
// handler, after all workers have joined.
func (s *session) setResults(r domain.BulkResults) {
	s.mu.Lock()
	s.results = r
	s.mu.Unlock()
}

// cancel flips the cooperative cancellation flag. Workers read it before
// starting an item; workers already past that check run to completion.
func (s *session) cancel() {
	s.cancelled.Store(true)
}

func (s *session) isCancelled() bool {
	return s.cancelled.Load()
}

// snapshot materializes an instantaneous BulkProgress from the session.
func (s *session) snapshot(now time.Time) domain.BulkProgress {
	s.mu.Lock()
	currentItem := s.currentItem
	errs := append([]domain.ItemError(nil), s.errors...)
	results := s.results.Clone()
	s.mu.Unlock()

	p := domain.BulkProgress{
		OperationID:    s.id,
		Type:           s.opType,
		TotalItems:     int(s.total.Load()),
		CompletedItems: int(s.completed.Load()),
		FailedItems:    int(s.failed.Load()),
		CurrentItem:    currentItem,
		Errors:         errs,
		Results:        results,
		IsCancelled:    s.cancelled.Load(),
		StartedAt:      s.startedAt,
		UpdatedAt:      now,
	}
	return p.Derived()
}

// terminal builds the final snapshot: completed, current item cleared.
func (s *session) terminal(now time.Time, failed bool) domain.BulkProgress {
	p := s.snapshot(now)
	p.CurrentItem = ""
	p.IsCompleted = true
	p.IsFailed = failed
	return p.Derived()
}
