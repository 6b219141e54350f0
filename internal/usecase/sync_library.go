package usecase

import (
	"context"
	"log/slog"
	"time"

	"debridops/internal/domain"
	"debridops/internal/domain/ports"
	"debridops/internal/metrics"
)

const defaultSyncPageSize = 100

// SyncLibrary refreshes the local file index from the debrid provider:
// downloads and finished torrents are paged in, classified, upserted into
// the repository, and copied into the cache.
type SyncLibrary struct {
	Debrid   ports.Debrid
	Files    ports.FileRepository
	Cache    ports.FileCache
	Logger   *slog.Logger
	Interval time.Duration
	PageSize int
}

// Run syncs once at start and then on every tick until ctx is cancelled.
func (s SyncLibrary) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	if _, err := s.Execute(ctx); err != nil {
		s.logger().Warn("library sync failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Execute(ctx); err != nil {
				s.logger().Warn("library sync failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Execute performs one full sync and returns how many files were indexed.
func (s SyncLibrary) Execute(ctx context.Context) (int, error) {
	start := time.Now()
	count := 0

	for _, page := range []struct {
		kind string
		list func(ctx context.Context, offset, limit int) ([]domain.RemoteFile, error)
	}{
		{"downloads", s.Debrid.ListDownloads},
		{"torrents", s.Debrid.ListTorrents},
	} {
		n, err := s.syncPages(ctx, page.list)
		count += n
		if err != nil {
			return count, wrapDebrid(err)
		}
		s.logger().Debug("library page sync done",
			slog.String("kind", page.kind),
			slog.Int("files", n),
		)
	}

	metrics.LibraryFiles.Set(float64(count))
	s.logger().Info("library sync completed",
		slog.Int("files", count),
		slog.Int64("elapsedMs", time.Since(start).Milliseconds()),
	)
	return count, nil
}

func (s SyncLibrary) syncPages(ctx context.Context, list func(ctx context.Context, offset, limit int) ([]domain.RemoteFile, error)) (int, error) {
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = defaultSyncPageSize
	}

	count := 0
	for offset := 0; ; {
		files, err := list(ctx, offset, pageSize)
		if err != nil {
			return count, err
		}
		if len(files) == 0 {
			return count, nil
		}

		for _, f := range files {
			f.ClassifyMedia()
			if err := s.Files.Upsert(ctx, f); err != nil {
				s.logger().Warn("library upsert failed",
					slog.String("fileId", string(f.ID)),
					slog.String("error", err.Error()),
				)
				continue
			}
			if s.Cache != nil {
				// Cache trouble never fails a sync.
				_ = s.Cache.Set(ctx, f, 0)
			}
			count++
		}

		if len(files) < pageSize {
			return count, nil
		}
		offset += len(files)
	}
}

func (s SyncLibrary) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
