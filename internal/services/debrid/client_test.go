package debrid

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"debridops/internal/domain"
)

func TestDeleteFileUsesSourceEndpoint(t *testing.T) {
	cases := []struct {
		name     string
		file     domain.RemoteFile
		wantPath string
	}{
		{"download source", domain.RemoteFile{ID: "d1", Source: domain.SourceDownload}, "/downloads/delete/d1"},
		{"torrent source", domain.RemoteFile{ID: "t1", Source: domain.SourceTorrent}, "/torrents/delete/t1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotMethod, gotPath, gotAuth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotPath = r.URL.Path
				gotAuth = r.Header.Get("Authorization")
				w.WriteHeader(http.StatusNoContent)
			}))
			defer srv.Close()

			c := newTestClient(srv.URL)
			if err := c.DeleteFile(context.Background(), tc.file); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if gotMethod != http.MethodDelete || gotPath != tc.wantPath {
				t.Fatalf("request = %s %s, want DELETE %s", gotMethod, gotPath, tc.wantPath)
			}
			if gotAuth != "Bearer test-token" {
				t.Fatalf("auth header = %q", gotAuth)
			}
		})
	}
}

func TestDeleteFileMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"unknown_resource","error_code":7}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.DeleteFile(context.Background(), domain.RemoteFile{ID: "gone", Source: domain.SourceDownload})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestUnrestrictLinkPostsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/unrestrict/link" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("content type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("link"); got != "https://host.example/abc" {
			t.Errorf("link = %q", got)
		}
		_, _ = w.Write([]byte(`{"id":"u1","filename":"a.mkv","filesize":123,"download":"https://direct.example/a.mkv"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	got, err := c.UnrestrictLink(context.Background(), "https://host.example/abc")
	if err != nil {
		t.Fatalf("unrestrict: %v", err)
	}
	if got != "https://direct.example/a.mkv" {
		t.Fatalf("download url = %q", got)
	}
}

func TestStreamingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/streaming/f1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"f1","url":"https://stream.example/f1.m3u8"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	got, err := c.StreamingURL(context.Background(), domain.RemoteFile{ID: "f1"})
	if err != nil {
		t.Fatalf("streaming: %v", err)
	}
	if got != "https://stream.example/f1.m3u8" {
		t.Fatalf("stream url = %q", got)
	}
}

func TestListDownloadsMapsAndClassifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/downloads" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("offset") != "50" || r.URL.Query().Get("limit") != "50" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[
			{"id":"d1","filename":"Movie.2024.mkv","filesize":1000,"link":"https://host/rd1","host":"host","download":"https://direct/d1","streamable":1,"generated":"2024-03-01T10:00:00Z"},
			{"id":"d2","filename":"readme.txt","filesize":10,"link":"https://host/rd2","host":"host","streamable":0}
		]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	files, err := c.ListDownloads(context.Background(), 50, 50)
	if err != nil {
		t.Fatalf("list downloads: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}

	video := files[0]
	if video.Source != domain.SourceDownload || !video.Playable || !video.Streamable {
		t.Fatalf("video mapping wrong: %+v", video)
	}
	if video.DownloadURL != "https://direct/d1" || video.Link != "https://host/rd1" {
		t.Fatalf("video urls wrong: %+v", video)
	}
	if video.AddedAt.IsZero() {
		t.Fatal("generated timestamp not parsed")
	}

	text := files[1]
	if text.Playable || text.Streamable {
		t.Fatalf("text file classified as media: %+v", text)
	}
}

func TestListTorrentsKeepsOnlyFinished(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/torrents" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"id":"t1","filename":"Show.S01.mkv","bytes":5000,"host":"rd","status":"downloaded","added":"2024-02-01T00:00:00Z","links":["https://host/t1a","https://host/t1b"]},
			{"id":"t2","filename":"Other.mkv","bytes":100,"host":"rd","status":"downloading","links":[]}
		]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	files, err := c.ListTorrents(context.Background(), 0, 50)
	if err != nil {
		t.Fatalf("list torrents: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}
	if files[0].ID != "t1" || files[0].Source != domain.SourceTorrent {
		t.Fatalf("torrent mapping wrong: %+v", files[0])
	}
	if files[0].Link != "https://host/t1a" {
		t.Fatalf("torrent link = %q, want first of links", files[0].Link)
	}
	if !files[0].Playable {
		t.Fatalf("mkv torrent not classified playable: %+v", files[0])
	}
}

func TestErrorEnvelopeMessageSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"permission_denied","error_code":9}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.UnrestrictLink(context.Background(), "https://host/x")
	if err == nil || !strings.Contains(err.Error(), "permission_denied") {
		t.Fatalf("error = %v, want provider message surfaced", err)
	}
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		Token:             "test-token",
		BaseURL:           baseURL,
		RequestsPerSecond: 1000,
		Burst:             1000,
	})
}
