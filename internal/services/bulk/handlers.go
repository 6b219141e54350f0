package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"debridops/internal/domain"
)

// favoriteMarkDelay stands in for the provider call while favorites stay
// local-only. See runFavorites.
const favoriteMarkDelay = 50 * time.Millisecond

// cacheInvalidateTimeout bounds the best-effort cache removal after a
// successful remote delete.
const cacheInvalidateTimeout = 2 * time.Second

// dispatch routes the operation to its per-type handler. An unknown type is
// the one error that fails the whole operation rather than a single item.
func (e *Engine) dispatch(sess *session, items []domain.RemoteFile, ch chan<- domain.BulkProgress) error {
	switch sess.opType {
	case domain.BulkDelete:
		e.runDelete(sess, items, ch)
	case domain.BulkDownload:
		e.runDownload(sess, items, ch)
	case domain.BulkPlay:
		e.runPlay(sess, items, ch)
	case domain.BulkAddToFavorites:
		e.runFavorites(sess, items, ch)
	default:
		return fmt.Errorf("%w: bulk operation type %q", domain.ErrUnsupported, sess.opType)
	}
	return nil
}

// runDelete removes each file from the provider and drops it from the file
// cache on success. Cache failures are logged and swallowed; the remote
// delete already happened, so the item still counts as completed.
func (e *Engine) runDelete(sess *session, items []domain.RemoteFile, ch chan<- domain.BulkProgress) {
	var mu sync.Mutex
	deleted := make([]domain.FileID, 0, len(items))

	e.forEachItem(sess, items, ch, func(ctx context.Context, item domain.RemoteFile) error {
		if err := e.debrid.DeleteFile(ctx, item); err != nil {
			return err
		}
		e.invalidateCachedFile(item.ID)

		mu.Lock()
		deleted = append(deleted, item.ID)
		mu.Unlock()
		return nil
	})

	sess.setResults(domain.BulkResults{Deleted: deleted})
}

// runDownload resolves a direct download URL for each file.
func (e *Engine) runDownload(sess *session, items []domain.RemoteFile, ch chan<- domain.BulkProgress) {
	var mu sync.Mutex
	urls := make(map[domain.FileID]string, len(items))

	e.forEachItem(sess, items, ch, func(ctx context.Context, item domain.RemoteFile) error {
		url, err := e.downloadURLFor(ctx, item)
		if err != nil {
			return err
		}

		mu.Lock()
		urls[item.ID] = url
		mu.Unlock()
		return nil
	})

	sess.setResults(domain.BulkResults{DownloadURLs: urls})
}

// runPlay narrows the batch to files that can actually be played before any
// worker starts, so the session total reflects only eligible items.
func (e *Engine) runPlay(sess *session, items []domain.RemoteFile, ch chan<- domain.BulkProgress) {
	playable := make([]domain.RemoteFile, 0, len(items))
	for _, item := range items {
		if item.Playable && item.Streamable {
			playable = append(playable, item)
		}
	}
	sess.setTotal(len(playable))

	var mu sync.Mutex
	urls := make(map[domain.FileID]string, len(playable))

	e.forEachItem(sess, playable, ch, func(ctx context.Context, item domain.RemoteFile) error {
		url, err := e.streamURLFor(ctx, item)
		if err != nil {
			return err
		}

		mu.Lock()
		urls[item.ID] = url
		mu.Unlock()
		return nil
	})

	sess.setResults(domain.BulkResults{StreamURLs: urls})
}

// runFavorites marks each file as a favorite. The provider API has no
// favorites endpoint, so marking is local-only and only simulates request
// latency; the delay keeps progress pacing observable.
func (e *Engine) runFavorites(sess *session, items []domain.RemoteFile, ch chan<- domain.BulkProgress) {
	var mu sync.Mutex
	favorited := make([]domain.FileID, 0, len(items))

	e.forEachItem(sess, items, ch, func(ctx context.Context, item domain.RemoteFile) error {
		select {
		case <-time.After(favoriteMarkDelay):
		case <-ctx.Done():
			return ctx.Err()
		}

		mu.Lock()
		favorited = append(favorited, item.ID)
		mu.Unlock()
		return nil
	})

	sess.setResults(domain.BulkResults{Favorited: favorited})
}

// downloadURLFor returns a direct URL for the file, preferring one the
// provider already handed out over a fresh unrestrict round-trip.
func (e *Engine) downloadURLFor(ctx context.Context, item domain.RemoteFile) (string, error) {
	if item.DownloadURL != "" {
		return item.DownloadURL, nil
	}
	if item.Link == "" {
		return "", fmt.Errorf("file %s has no link to unrestrict", item.ID)
	}

	url, err := e.debrid.UnrestrictLink(ctx, item.Link)
	if err != nil {
		return "", fmt.Errorf("unrestrict %s: %w", item.ID, err)
	}
	if url == "" {
		return "", fmt.Errorf("provider returned no download link for %s", item.ID)
	}
	return url, nil
}

// streamURLFor resolves a playback URL. Download-sourced files may fall back
// to their direct download URL when no stream is available; torrent-sourced
// files cannot, their links are not directly playable.
func (e *Engine) streamURLFor(ctx context.Context, item domain.RemoteFile) (string, error) {
	if item.StreamURL != "" {
		return item.StreamURL, nil
	}

	url, err := e.debrid.StreamingURL(ctx, item)
	if err == nil && url != "" {
		return url, nil
	}

	if item.Source == domain.SourceDownload {
		return e.downloadURLFor(ctx, item)
	}
	if err != nil {
		return "", fmt.Errorf("streaming url for %s: %w", item.ID, err)
	}
	return "", fmt.Errorf("no stream available for torrent file %s", item.ID)
}

// invalidateCachedFile is best-effort: a stale cache entry expires on its
// own, so a failed removal must not fail the delete that triggered it.
func (e *Engine) invalidateCachedFile(id domain.FileID) {
	if e.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(e.baseCtx, cacheInvalidateTimeout)
	defer cancel()

	if err := e.cache.Remove(ctx, id); err != nil {
		e.logger.Warn("cache invalidation failed",
			slog.String("fileId", string(id)),
			slog.String("error", err.Error()),
		)
	}
}
