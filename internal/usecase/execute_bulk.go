package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"debridops/internal/domain"
	"debridops/internal/domain/ports"
)

const persistTimeout = 5 * time.Second

// BulkEngine is the engine surface the usecases need. Satisfied by
// *bulk.Engine.
type BulkEngine interface {
	Execute(ctx context.Context, items []domain.RemoteFile, opType domain.BulkOperationType, opts domain.BulkOptions) (<-chan domain.BulkProgress, error)
	Cancel(id domain.OperationID) bool
	Active() []domain.BulkProgress
	Progress(id domain.OperationID) (domain.BulkProgress, error)
}

type ExecuteBulkOperation struct {
	Engine   BulkEngine
	Files    ports.FileRepository
	Cache    ports.FileCache
	History  ports.OperationRepository
	Notifier ports.ProgressNotifier
	Logger   *slog.Logger
}

type ExecuteBulkOperationInput struct {
	Type    domain.BulkOperationType
	FileIDs []domain.FileID
	// Options overrides the engine defaults when non-nil.
	Options *domain.BulkOptions
}

// Execute resolves the requested file ids, starts the bulk operation, and
// returns its initial snapshot. Later snapshots flow to the notifier; the
// start and terminal states are persisted to history best-effort.
func (uc ExecuteBulkOperation) Execute(ctx context.Context, input ExecuteBulkOperationInput) (domain.BulkProgress, error) {
	items, err := uc.resolveItems(ctx, input.FileIDs)
	if err != nil {
		return domain.BulkProgress{}, err
	}

	var opts domain.BulkOptions
	if input.Options != nil {
		opts = *input.Options
	}

	stream, err := uc.Engine.Execute(ctx, items, input.Type, opts)
	if err != nil {
		return domain.BulkProgress{}, wrapEngine(err)
	}

	// The initial snapshot is enqueued before Execute returns, so this
	// read never blocks.
	initial := <-stream

	if uc.Notifier != nil {
		uc.Notifier.PublishProgress(initial)
	}
	uc.persist(initial, "insert")

	go uc.consume(stream)

	return initial, nil
}

// resolveItems turns file ids into work items: cache lookaside first, then
// one repository fetch for the misses. Any id that resolves nowhere fails
// the whole request before the operation starts.
func (uc ExecuteBulkOperation) resolveItems(ctx context.Context, ids []domain.FileID) ([]domain.RemoteFile, error) {
	found := make(map[domain.FileID]domain.RemoteFile, len(ids))
	missing := make([]domain.FileID, 0, len(ids))

	for _, id := range ids {
		if uc.Cache != nil {
			file, ok, err := uc.Cache.Get(ctx, id)
			if err == nil && ok {
				found[id] = file
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		files, err := uc.Files.GetMany(ctx, missing)
		if err != nil {
			return nil, wrapRepo(err)
		}
		for _, f := range files {
			found[f.ID] = f
		}
	}

	items := make([]domain.RemoteFile, 0, len(ids))
	var unknown []string
	for _, id := range ids {
		f, ok := found[id]
		if !ok {
			unknown = append(unknown, string(id))
			continue
		}
		items = append(items, f)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown file ids: %s", domain.ErrNotFound, strings.Join(unknown, ", "))
	}
	return items, nil
}

func (uc ExecuteBulkOperation) consume(stream <-chan domain.BulkProgress) {
	for p := range stream {
		if uc.Notifier != nil {
			uc.Notifier.PublishProgress(p)
		}
		if p.IsCompleted {
			uc.persist(p, "finish")
		}
	}
}

// persist writes a history row without holding up the stream consumer. A
// failed write costs a history entry, never the operation.
func (uc ExecuteBulkOperation) persist(p domain.BulkProgress, op string) {
	if uc.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	rec := domain.RecordFromProgress(p)
	var err error
	if op == "insert" {
		err = uc.History.Insert(ctx, rec)
	} else {
		err = uc.History.Finish(ctx, rec)
	}
	if err != nil {
		uc.logger().Warn("operation history write failed",
			slog.String("operationId", string(p.OperationID)),
			slog.String("write", op),
			slog.String("error", err.Error()),
		)
	}
}

func (uc ExecuteBulkOperation) logger() *slog.Logger {
	if uc.Logger != nil {
		return uc.Logger
	}
	return slog.Default()
}
