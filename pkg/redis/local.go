package redis

import (
	"sync"
	"time"
)

// localStore is the in-process fallback used by Cache when Redis is disabled.
// Entries hold the same JSON bytes Redis would, so both paths decode alike.
type localStore struct {
	mu         sync.RWMutex
	entries    map[string]localEntry
	maxEntries int
	now        func() time.Time
}

type localEntry struct {
	data    []byte
	expires time.Time // zero = no expiry
}

func newLocalStore(maxEntries int) *localStore {
	return &localStore{
		entries:    make(map[string]localEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (s *localStore) get(key string) ([]byte, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && s.now().After(e.expires) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false
	}
	return e.data, true
}

func (s *localStore) set(key string, data []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		// 가득 차면 만료된 항목부터 정리, 그래도 가득이면 저장하지 않음
		s.cleanExpiredLocked()
		if len(s.entries) >= s.maxEntries {
			return
		}
	}

	var expires time.Time
	if ttl > 0 {
		expires = s.now().Add(ttl)
	}
	s.entries[key] = localEntry{data: data, expires: expires}
}

func (s *localStore) delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *localStore) cleanExpiredLocked() int {
	now := s.now()
	count := 0
	for key, e := range s.entries {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(s.entries, key)
			count++
		}
	}
	return count
}

func (s *localStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
