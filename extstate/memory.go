package extstate

import (
	"context"
	"sort"
	"sync"

	rerrors "github.com/caffeineduck/reabind/errors"
)

type entryKey struct {
	scope, section, key string
}

// Memory is an in-process Store.
type Memory struct {
	data   map[entryKey]string
	limits Limits
	mu     sync.RWMutex
}

func NewMemory(limits Limits) *Memory {
	return &Memory{data: make(map[entryKey]string), limits: limits}
}

func (s *Memory) Get(ctx context.Context, scope, section, key string) (string, bool, error) {
	s.mu.RLock()
	val, ok := s.data[entryKey{scope, section, key}]
	s.mu.RUnlock()
	return val, ok, nil
}

func (s *Memory) Set(ctx context.Context, scope, section, key, value string) error {
	if err := s.limits.check(section, key, value); err != nil {
		return err
	}
	k := entryKey{scope, section, key}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[k]; !exists && s.limits.MaxEntries > 0 && len(s.data) >= s.limits.MaxEntries {
		return rerrors.Value("extstate.Set", "too many entries", len(s.data))
	}
	s.data[k] = value
	return nil
}

func (s *Memory) Delete(ctx context.Context, scope, section, key string) error {
	s.mu.Lock()
	delete(s.data, entryKey{scope, section, key})
	s.mu.Unlock()
	return nil
}

func (s *Memory) Keys(ctx context.Context, scope, section string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data {
		if k.scope == scope && k.section == section {
			keys = append(keys, k.key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Memory) Close() error { return nil }
