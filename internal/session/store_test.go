package session

import (
	"sync"
	"testing"
)

func TestStoreBasicOps(t *testing.T) {
	s := NewStore[string]()

	if s.Contains(1) {
		t.Fatalf("empty store should not contain anything")
	}
	s.Put(1, "a")
	if v, ok := s.Get(1); !ok || v != "a" {
		t.Fatalf("got %q %v, want a true", v, ok)
	}
	s.Put(1, "b")
	if v, _ := s.Get(1); v != "b" {
		t.Fatalf("put should replace, got %q", v)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	s.Delete(1)
	if s.Contains(1) {
		t.Fatalf("delete should remove the entry")
	}
	s.Delete(1) // idempotent
}

func TestStoreConcurrentDistinctUsers(t *testing.T) {
	s := NewStore[int]()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.Put(id, int(id))
			if v, ok := s.Get(id); !ok || v != int(id) {
				t.Errorf("user %d: got %d %v", id, v, ok)
			}
			s.Delete(id)
		}(int64(i))
	}
	wg.Wait()
	if s.Len() != 0 {
		t.Fatalf("len = %d after cleanup, want 0", s.Len())
	}
}
