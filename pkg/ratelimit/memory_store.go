package ratelimit

import (
	"context"
	"sync"
	"time"
)

// memoryEntry, tek bir pencere kaydı.
type memoryEntry struct {
	createdAt time.Time
	expiresAt time.Time
}

// MemoryStore, tek process için in-memory Store.
//
// Birden fazla instance çalışıyorsa sayaçlar paylaşılmaz; production'da
// RedisStore veya SQLite store kullanılmalı. Testler ve tek-node
// kurulumlar için yeterli.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]memoryEntry
}

// NewMemoryStore, boş bir MemoryStore oluşturur.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]memoryEntry)}
}

func (s *MemoryStore) Hit(_ context.Context, identifier string, limit int, window time.Duration, now time.Time) (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	usage := s.usageLocked(identifier, window, now)
	if usage.Count >= limit {
		return usage, nil
	}

	s.entries[identifier] = append(s.entries[identifier], memoryEntry{
		createdAt: now,
		expiresAt: now.Add(window),
	})
	if usage.Oldest.IsZero() {
		usage.Oldest = now
	}
	usage.Recorded = true
	return usage, nil
}

func (s *MemoryStore) Count(_ context.Context, identifier string, window time.Duration, now time.Time) (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.usageLocked(identifier, window, now), nil
}

func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, list := range s.entries {
		kept := list[:0]
		for _, e := range list {
			if e.expiresAt.After(now) {
				kept = append(kept, e)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(s.entries, id)
		} else {
			s.entries[id] = kept
		}
	}
	return removed, nil
}

// Len, identifier için (süresi dolmuş olanlar dahil) tutulan kayıt sayısı.
func (s *MemoryStore) Len(identifier string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[identifier])
}

// usageLocked; çağıran s.mu'yu tutmalı.
// Pencere sınırı: createdAt > now-window. Tam window önce eklenen kayıt
// artık sayılmaz.
func (s *MemoryStore) usageLocked(identifier string, window time.Duration, now time.Time) Usage {
	cutoff := now.Add(-window)

	var usage Usage
	for _, e := range s.entries[identifier] {
		if !e.createdAt.After(cutoff) || e.createdAt.After(now) {
			continue
		}
		usage.Count++
		if usage.Oldest.IsZero() || e.createdAt.Before(usage.Oldest) {
			usage.Oldest = e.createdAt
		}
	}
	return usage
}
