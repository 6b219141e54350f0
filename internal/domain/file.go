package domain

import (
	"path"
	"strings"
	"time"
)

type FileID string

// FileSource tells which debrid collection a remote file lives in. Downloads
// and torrents are deleted through different API endpoints and only downloads
// can fall back to a direct link when no streaming variant exists.
type FileSource string

const (
	SourceDownload FileSource = "download"
	SourceTorrent  FileSource = "torrent"
)

// RemoteFile is one item of the user's debrid library: a file hosted on the
// provider, identified remotely, never stored locally.
type RemoteFile struct {
	ID          FileID     `json:"id"`
	Filename    string     `json:"filename"`
	Filesize    int64      `json:"filesize"`
	Source      FileSource `json:"source"`
	Host        string     `json:"host,omitempty"`
	Link        string     `json:"link,omitempty"`
	DownloadURL string     `json:"downloadUrl,omitempty"`
	StreamURL   string     `json:"streamUrl,omitempty"`
	MimeType    string     `json:"mimeType,omitempty"`
	Playable    bool       `json:"playable"`
	Streamable  bool       `json:"streamable"`
	AddedAt     time.Time  `json:"addedAt"`
}

var videoExtensions = map[string]struct{}{
	".mkv": {}, ".mp4": {}, ".avi": {}, ".mov": {}, ".wmv": {},
	".flv": {}, ".webm": {}, ".m4v": {}, ".mpg": {}, ".mpeg": {}, ".ts": {},
}

// Containers the provider can transcode for direct streaming.
var streamableExtensions = map[string]struct{}{
	".mkv": {}, ".mp4": {}, ".webm": {}, ".m4v": {}, ".mov": {}, ".avi": {},
}

func IsPlayableFilename(name string) bool {
	_, ok := videoExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

func IsStreamableFilename(name string) bool {
	_, ok := streamableExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

// ClassifyMedia fills Playable/Streamable from the filename when the provider
// listing did not carry explicit flags.
func (f *RemoteFile) ClassifyMedia() {
	if !f.Playable {
		f.Playable = IsPlayableFilename(f.Filename)
	}
	if !f.Streamable {
		f.Streamable = f.Playable && IsStreamableFilename(f.Filename)
	}
}
