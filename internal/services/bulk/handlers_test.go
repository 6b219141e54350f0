package bulk

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"debridops/internal/domain"
)

func TestDownloadPrefersExistingDirectURL(t *testing.T) {
	var unrestricted []string
	var mu sync.Mutex
	debrid := &fakeDebrid{
		unrestrictFn: func(_ context.Context, link string) (string, error) {
			mu.Lock()
			unrestricted = append(unrestricted, link)
			mu.Unlock()
			return "https://direct.example.com/fresh", nil
		},
	}
	e := newTestEngine(t, debrid, &fakeCache{})

	files := []domain.RemoteFile{
		{ID: "has-url", Filename: "a.mkv", Source: domain.SourceDownload, Link: "https://host/a", DownloadURL: "https://direct.example.com/a"},
		{ID: "needs-unrestrict", Filename: "b.mkv", Source: domain.SourceDownload, Link: "https://host/b"},
	}

	ch, err := e.Execute(context.Background(), files, domain.BulkDownload, fastOptions())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	final := lastSnapshot(t, ch)

	if final.CompletedItems != 2 || final.FailedItems != 0 {
		t.Fatalf("counters = %d/%d, want 2/0", final.CompletedItems, final.FailedItems)
	}
	if got := final.Results.DownloadURLs["has-url"]; got != "https://direct.example.com/a" {
		t.Fatalf("existing URL not preferred, got %q", got)
	}
	if got := final.Results.DownloadURLs["needs-unrestrict"]; got != "https://direct.example.com/fresh" {
		t.Fatalf("unrestricted URL = %q", got)
	}
	if len(unrestricted) != 1 || unrestricted[0] != "https://host/b" {
		t.Fatalf("unrestrict calls = %v, want exactly the linked file", unrestricted)
	}
}

func TestDownloadWithoutLinkFailsItem(t *testing.T) {
	e := newTestEngine(t, &fakeDebrid{}, &fakeCache{})

	files := []domain.RemoteFile{{ID: "bare", Filename: "bare.mkv", Source: domain.SourceDownload}}
	ch, err := e.Execute(context.Background(), files, domain.BulkDownload, fastOptions())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	final := lastSnapshot(t, ch)

	if final.FailedItems != 1 || final.CompletedItems != 0 {
		t.Fatalf("counters = %d/%d, want 0/1", final.CompletedItems, final.FailedItems)
	}
	if len(final.Errors) != 1 || !strings.Contains(final.Errors[0].Message, "no link") {
		t.Fatalf("unexpected errors: %+v", final.Errors)
	}
	if len(final.Results.DownloadURLs) != 0 {
		t.Fatalf("failed item produced a URL: %+v", final.Results.DownloadURLs)
	}
}

func TestDownloadEmptyUnrestrictResponseFailsItem(t *testing.T) {
	debrid := &fakeDebrid{
		unrestrictFn: func(context.Context, string) (string, error) { return "", nil },
	}
	e := newTestEngine(t, debrid, &fakeCache{})

	files := []domain.RemoteFile{{ID: "f1", Filename: "f1.mkv", Source: domain.SourceDownload, Link: "https://host/f1"}}
	ch, err := e.Execute(context.Background(), files, domain.BulkDownload, fastOptions())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	final := lastSnapshot(t, ch)

	if final.FailedItems != 1 {
		t.Fatalf("failedItems = %d, want 1", final.FailedItems)
	}
	if len(final.Errors) != 1 || !strings.Contains(final.Errors[0].Message, "no download link") {
		t.Fatalf("unexpected errors: %+v", final.Errors)
	}
}

func TestPlayFiltersToPlayableAndCorrectsTotal(t *testing.T) {
	e := newTestEngine(t, &fakeDebrid{}, &fakeCache{})

	files := []domain.RemoteFile{
		{ID: "m1", Filename: "m1.mkv", Source: domain.SourceDownload, StreamURL: "https://s/m1", Playable: true, Streamable: true},
		{ID: "m2", Filename: "m2.mp4", Source: domain.SourceDownload, StreamURL: "https://s/m2", Playable: true, Streamable: true},
		{ID: "m3", Filename: "m3.avi", Source: domain.SourceDownload, Playable: true, Streamable: false},
		{ID: "m4", Filename: "m4.rar", Source: domain.SourceDownload},
	}

	ch, err := e.Execute(context.Background(), files, domain.BulkPlay, fastOptions())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	snaps := drainStream(t, ch)

	// The initial snapshot precedes filtering and reflects the submitted
	// batch; the filtered total takes over before any item is processed.
	if snaps[0].TotalItems != 4 {
		t.Fatalf("initial totalItems = %d, want 4", snaps[0].TotalItems)
	}
	final := snaps[len(snaps)-1]
	if final.TotalItems != 2 {
		t.Fatalf("filtered totalItems = %d, want 2", final.TotalItems)
	}
	if final.CompletedItems != 2 || final.FailedItems != 0 {
		t.Fatalf("counters = %d/%d, want 2/0", final.CompletedItems, final.FailedItems)
	}
	if len(final.Results.StreamURLs) != 2 {
		t.Fatalf("streamURLs = %+v, want 2 entries", final.Results.StreamURLs)
	}
	if !final.IsSuccessful {
		t.Fatalf("filtered play not successful: %+v", final)
	}
}

func TestPlayURLResolution(t *testing.T) {
	cases := []struct {
		name      string
		file      domain.RemoteFile
		streamFn  func(ctx context.Context, file domain.RemoteFile) (string, error)
		wantURL   string
		wantError string
	}{
		{
			name:    "existing stream url wins",
			file:    domain.RemoteFile{ID: "f", Filename: "f.mkv", Source: domain.SourceTorrent, StreamURL: "https://s/f", Playable: true, Streamable: true},
			wantURL: "https://s/f",
		},
		{
			name:     "provider streaming endpoint",
			file:     domain.RemoteFile{ID: "f", Filename: "f.mkv", Source: domain.SourceTorrent, Playable: true, Streamable: true},
			streamFn: func(context.Context, domain.RemoteFile) (string, error) { return "https://s/minted", nil },
			wantURL:  "https://s/minted",
		},
		{
			name:     "download source falls back to direct url",
			file:     domain.RemoteFile{ID: "f", Filename: "f.mkv", Source: domain.SourceDownload, DownloadURL: "https://d/f", Playable: true, Streamable: true},
			streamFn: func(context.Context, domain.RemoteFile) (string, error) { return "", errors.New("no transcode") },
			wantURL:  "https://d/f",
		},
		{
			name:      "torrent source cannot fall back",
			file:      domain.RemoteFile{ID: "f", Filename: "f.mkv", Source: domain.SourceTorrent, Playable: true, Streamable: true},
			streamFn:  func(context.Context, domain.RemoteFile) (string, error) { return "", errors.New("no transcode") },
			wantError: "no transcode",
		},
		{
			name:      "torrent source with empty stream response",
			file:      domain.RemoteFile{ID: "f", Filename: "f.mkv", Source: domain.SourceTorrent, Playable: true, Streamable: true},
			streamFn:  func(context.Context, domain.RemoteFile) (string, error) { return "", nil },
			wantError: "no stream available",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			debrid := &fakeDebrid{streamFn: tc.streamFn}
			e := newTestEngine(t, debrid, &fakeCache{})

			ch, err := e.Execute(context.Background(), []domain.RemoteFile{tc.file}, domain.BulkPlay, fastOptions())
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			final := lastSnapshot(t, ch)

			if tc.wantError != "" {
				if final.FailedItems != 1 {
					t.Fatalf("failedItems = %d, want 1", final.FailedItems)
				}
				if len(final.Errors) != 1 || !strings.Contains(final.Errors[0].Message, tc.wantError) {
					t.Fatalf("errors = %+v, want message containing %q", final.Errors, tc.wantError)
				}
				return
			}

			if final.CompletedItems != 1 || final.FailedItems != 0 {
				t.Fatalf("counters = %d/%d, want 1/0", final.CompletedItems, final.FailedItems)
			}
			if got := final.Results.StreamURLs[tc.file.ID]; got != tc.wantURL {
				t.Fatalf("resolved URL = %q, want %q", got, tc.wantURL)
			}
		})
	}
}

func TestDeleteInvalidatesCachePerSuccess(t *testing.T) {
	cache := &fakeCache{}
	e := newTestEngine(t, &fakeDebrid{}, cache)

	ch, err := e.Execute(context.Background(), testFiles(3), domain.BulkDelete, fastOptions())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	lastSnapshot(t, ch)

	if got := len(cache.removedIDs()); got != 3 {
		t.Fatalf("cache removals = %d, want 3", got)
	}
}

func TestDeleteSurvivesCacheFailure(t *testing.T) {
	cache := &fakeCache{removeErr: errors.New("redis down")}
	e := newTestEngine(t, &fakeDebrid{}, cache)

	ch, err := e.Execute(context.Background(), testFiles(3), domain.BulkDelete, fastOptions())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	final := lastSnapshot(t, ch)

	if final.CompletedItems != 3 || final.FailedItems != 0 {
		t.Fatalf("cache failure leaked into counters: %d/%d", final.CompletedItems, final.FailedItems)
	}
	if final.HasErrors {
		t.Fatalf("cache failure recorded as item error: %+v", final.Errors)
	}
}

func TestFailedDeleteSkipsCacheInvalidation(t *testing.T) {
	cache := &fakeCache{}
	debrid := &fakeDebrid{
		deleteFn: func(_ context.Context, file domain.RemoteFile) error {
			if file.ID == "file-001" {
				return errors.New("remote says no")
			}
			return nil
		},
	}
	e := newTestEngine(t, debrid, cache)

	ch, err := e.Execute(context.Background(), testFiles(3), domain.BulkDelete, fastOptions())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	final := lastSnapshot(t, ch)

	for _, id := range cache.removedIDs() {
		if id == "file-001" {
			t.Fatal("cache invalidated for a file the provider refused to delete")
		}
	}
	for _, id := range final.Results.Deleted {
		if id == "file-001" {
			t.Fatal("failed delete reported in results")
		}
	}
}

func TestFavoritesMarksEveryItem(t *testing.T) {
	e := newTestEngine(t, &fakeDebrid{}, &fakeCache{})

	ch, err := e.Execute(context.Background(), testFiles(4), domain.BulkAddToFavorites, fastOptions())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	final := lastSnapshot(t, ch)

	if final.CompletedItems != 4 || final.FailedItems != 0 {
		t.Fatalf("counters = %d/%d, want 4/0", final.CompletedItems, final.FailedItems)
	}
	if got := len(final.Results.Favorited); got != 4 {
		t.Fatalf("favorited = %d ids, want 4", got)
	}
}

func TestActionPanicBecomesItemFailure(t *testing.T) {
	debrid := &fakeDebrid{
		deleteFn: func(_ context.Context, file domain.RemoteFile) error {
			if file.ID == "file-001" {
				panic("provider client bug")
			}
			return nil
		},
	}
	e := newTestEngine(t, debrid, &fakeCache{})

	ch, err := e.Execute(context.Background(), testFiles(3), domain.BulkDelete, fastOptions())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	final := lastSnapshot(t, ch)

	if final.IsFailed {
		t.Fatalf("item panic failed the whole operation: %+v", final)
	}
	if final.CompletedItems != 2 || final.FailedItems != 1 {
		t.Fatalf("counters = %d/%d, want 2/1", final.CompletedItems, final.FailedItems)
	}
	if len(final.Errors) != 1 || !strings.Contains(final.Errors[0].Message, "panic") {
		t.Fatalf("panic not surfaced as item error: %+v", final.Errors)
	}
}

func TestItemTimeoutFailsSlowItem(t *testing.T) {
	debrid := &fakeDebrid{actionDelay: 500 * time.Millisecond}
	e := newTestEngine(t, debrid, &fakeCache{})

	opts := fastOptions()
	opts.ItemTimeout = 30 * time.Millisecond
	ch, err := e.Execute(context.Background(), testFiles(1), domain.BulkDelete, opts)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	final := lastSnapshot(t, ch)

	if final.FailedItems != 1 || final.CompletedItems != 0 {
		t.Fatalf("counters = %d/%d, want 0/1", final.CompletedItems, final.FailedItems)
	}
	if !final.IsCompleted || final.IsFailed {
		t.Fatalf("slow item broke terminal flags: %+v", final)
	}
	if len(final.Errors) != 1 || !strings.Contains(final.Errors[0].Message, "context deadline exceeded") {
		t.Fatalf("timeout not surfaced: %+v", final.Errors)
	}
}
