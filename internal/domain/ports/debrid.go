package ports

import (
	"context"

	"debridops/internal/domain"
)

// Debrid is the remote-file-service client: the provider API that actually
// deletes files and mints download/streaming links.
type Debrid interface {
	// DeleteFile removes the remote file, choosing the provider endpoint by
	// the item's source kind.
	DeleteFile(ctx context.Context, file domain.RemoteFile) error
	// UnrestrictLink converts a restricted hoster link into a direct
	// download URL.
	UnrestrictLink(ctx context.Context, link string) (string, error)
	// StreamingURL returns a transcoded streaming URL for the file, when the
	// provider offers one.
	StreamingURL(ctx context.Context, file domain.RemoteFile) (string, error)
	// ListDownloads pages through the user's download history.
	ListDownloads(ctx context.Context, offset, limit int) ([]domain.RemoteFile, error)
	// ListTorrents pages through the user's finished torrents.
	ListTorrents(ctx context.Context, offset, limit int) ([]domain.RemoteFile, error)
}
