package cache

import (
	"sort"
	"sync"
	"time"

	"debridops/internal/domain"
)

type memoryEntry struct {
	file      domain.RemoteFile
	storedAt  time.Time
	expiresAt time.Time
}

// memoryStore is the in-process cache layer: a TTL map capped at maxEntries,
// trimming expired entries first and oldest entries after.
type memoryStore struct {
	mu         sync.Mutex
	entries    map[domain.FileID]*memoryEntry
	maxEntries int
}

func newMemoryStore(maxEntries int) *memoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &memoryStore{
		entries:    make(map[domain.FileID]*memoryEntry),
		maxEntries: maxEntries,
	}
}

func (m *memoryStore) get(id domain.FileID, now time.Time) (domain.RemoteFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok {
		return domain.RemoteFile{}, false
	}
	if now.After(entry.expiresAt) {
		delete(m.entries, id)
		return domain.RemoteFile{}, false
	}
	return entry.file, true
}

func (m *memoryStore) set(file domain.RemoteFile, now time.Time, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[file.ID] = &memoryEntry{
		file:      file,
		storedAt:  now,
		expiresAt: now.Add(ttl),
	}
	m.trimLocked(now)
}

func (m *memoryStore) remove(id domain.FileID) {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
}

func (m *memoryStore) setMaxEntries(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.maxEntries = n
	m.trimLocked(time.Now())
	m.mu.Unlock()
}

func (m *memoryStore) maxEntriesLimit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxEntries
}

func (m *memoryStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *memoryStore) trimLocked(now time.Time) {
	for id, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, id)
		}
	}

	if len(m.entries) <= m.maxEntries {
		return
	}

	type pair struct {
		id    domain.FileID
		entry *memoryEntry
	}
	items := make([]pair, 0, len(m.entries))
	for id, entry := range m.entries {
		items = append(items, pair{id: id, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.storedAt.Before(items[j].entry.storedAt)
	})
	for i := 0; i < len(items)-m.maxEntries; i++ {
		delete(m.entries, items[i].id)
	}
}
