package extstate

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	rerrors "github.com/caffeineduck/reabind/errors"
)

const scope = "(ReaProject*)0x0000000000000100"

func stores(t *testing.T, limits Limits) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "state.db"), limits)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{
		"memory": NewMemory(limits),
		"sqlite": sq,
	}
}

func TestSetGet(t *testing.T) {
	for name, s := range stores(t, DefaultLimits()) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Set(ctx, scope, "mixer", "foo", "bar"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			val, ok, err := s.Get(ctx, scope, "mixer", "foo")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if !ok || val != "bar" {
				t.Errorf("expected bar, got %q (ok=%v)", val, ok)
			}
		})
	}
}

func TestGetMissing(t *testing.T) {
	for name, s := range stores(t, DefaultLimits()) {
		t.Run(name, func(t *testing.T) {
			val, ok, err := s.Get(context.Background(), scope, "mixer", "missing")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if ok || val != "" {
				t.Errorf("expected missing, got %q (ok=%v)", val, ok)
			}
		})
	}
}

func TestScopesAreIsolated(t *testing.T) {
	for name, s := range stores(t, DefaultLimits()) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s.Set(ctx, scope, "mixer", "k", "one")
			s.Set(ctx, "(ReaProject*)0x0000000000000200", "mixer", "k", "two")
			s.Set(ctx, scope, "other", "k", "three")

			val, _, _ := s.Get(ctx, scope, "mixer", "k")
			if val != "one" {
				t.Errorf("expected one, got %q", val)
			}
		})
	}
}

func TestDeleteAndOverwrite(t *testing.T) {
	for name, s := range stores(t, DefaultLimits()) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s.Set(ctx, scope, "mixer", "foo", "original")
			s.Set(ctx, scope, "mixer", "foo", "updated")

			val, _, _ := s.Get(ctx, scope, "mixer", "foo")
			if val != "updated" {
				t.Errorf("expected updated, got %q", val)
			}

			s.Delete(ctx, scope, "mixer", "foo")
			if _, ok, _ := s.Get(ctx, scope, "mixer", "foo"); ok {
				t.Error("expected missing after delete")
			}
		})
	}
}

func TestKeys(t *testing.T) {
	for name, s := range stores(t, DefaultLimits()) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, k := range []string{"c", "a", "b"} {
				s.Set(ctx, scope, "mixer", k, "v")
			}
			s.Set(ctx, scope, "other", "z", "v")

			keys, err := s.Keys(ctx, scope, "mixer")
			if err != nil {
				t.Fatalf("Keys failed: %v", err)
			}
			if len(keys) != 3 || keys[0] != "a" || keys[2] != "c" {
				t.Errorf("keys = %v", keys)
			}
		})
	}
}

func TestLimits(t *testing.T) {
	tests := []struct {
		name   string
		limits Limits
		key    string
		value  string
	}{
		{"key too large", Limits{MaxKeySize: 10}, "this-key-is-too-long", "x"},
		{"value too large", Limits{MaxValueSize: 10}, "k", "this-value-is-way-too-large"},
		{"empty key", Limits{}, "", "x"},
	}

	for _, tt := range tests {
		for name, s := range stores(t, tt.limits) {
			t.Run(tt.name+"/"+name, func(t *testing.T) {
				err := s.Set(context.Background(), scope, "mixer", tt.key, tt.value)
				if !errors.Is(err, rerrors.ErrValue) {
					t.Errorf("expected value error, got %v", err)
				}
			})
		}
	}
}

func TestMemoryTooManyEntries(t *testing.T) {
	s := NewMemory(Limits{MaxEntries: 2})
	ctx := context.Background()

	s.Set(ctx, scope, "m", "a", "1")
	s.Set(ctx, scope, "m", "b", "2")
	if err := s.Set(ctx, scope, "m", "a", "overwrite"); err != nil {
		t.Errorf("overwrite should not count as a new entry: %v", err)
	}
	if err := s.Set(ctx, scope, "m", "c", "3"); err == nil {
		t.Error("expected error for too many entries")
	}
}

func TestMemoryConcurrent(t *testing.T) {
	s := NewMemory(DefaultLimits())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + (n % 26)))
			s.Set(ctx, scope, "m", key, key)
			s.Get(ctx, scope, "m", key)
		}(i)
	}
	wg.Wait()
}
