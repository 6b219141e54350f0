package domain

// BulkResults is the typed result bag of one bulk operation. The operation
// type on the owning snapshot acts as the tag: exactly one payload is
// populated, by the handler after all workers have joined.
type BulkResults struct {
	Deleted      []FileID          `json:"deleted,omitempty"`
	DownloadURLs map[FileID]string `json:"downloadUrls,omitempty"`
	StreamURLs   map[FileID]string `json:"streamUrls,omitempty"`
	Favorited    []FileID          `json:"favorited,omitempty"`
}

func (r BulkResults) Clone() BulkResults {
	cloned := BulkResults{}
	if r.Deleted != nil {
		cloned.Deleted = append([]FileID(nil), r.Deleted...)
	}
	if r.Favorited != nil {
		cloned.Favorited = append([]FileID(nil), r.Favorited...)
	}
	if r.DownloadURLs != nil {
		cloned.DownloadURLs = make(map[FileID]string, len(r.DownloadURLs))
		for id, url := range r.DownloadURLs {
			cloned.DownloadURLs[id] = url
		}
	}
	if r.StreamURLs != nil {
		cloned.StreamURLs = make(map[FileID]string, len(r.StreamURLs))
		for id, url := range r.StreamURLs {
			cloned.StreamURLs[id] = url
		}
	}
	return cloned
}

// Count reports how many per-item successes the bag holds.
func (r BulkResults) Count() int {
	return len(r.Deleted) + len(r.DownloadURLs) + len(r.StreamURLs) + len(r.Favorited)
}
