package cache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestCache(size int, ttl time.Duration) (*LRUCache[int], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](size, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Set("a", 1)
	c.Set("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}

	// a is now most recent, so c evicts b
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should be evicted")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}

	c.Set("a", 10)
	if v, _ := c.Get("a"); v != 10 {
		t.Errorf("overwrite failed, got %d", v)
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still present")
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	clock.Advance(30 * time.Second)
	c.Set("c", 3)
	clock.Advance(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Error("entry past its TTL should miss")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1 (b)", removed)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("fresh entry lost: %d %v", v, ok)
	}
}

func TestLRUCache_ZeroTTLNeverExpires(t *testing.T) {
	c, clock := newTestCache(10, 0)
	c.Set("a", 1)
	clock.Advance(24 * time.Hour)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("zero TTL should disable expiry")
	}
	if c.CleanExpired() != 0 {
		t.Fatal("nothing should be cleaned")
	}
}

func TestLRUCache_GetOrLoad(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	var calls int32

	load := func() (int, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := c.GetOrLoad("k", load); err != nil || v != 42 {
				t.Errorf("GetOrLoad = %d, %v", v, err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("loader ran %d times, want 1", n)
	}

	_, err := c.GetOrLoad("bad", func() (int, error) { return 0, errors.New("boom") })
	if err == nil {
		t.Fatal("expected loader error")
	}
	if _, ok := c.Get("bad"); ok {
		t.Fatal("failed loads must not be cached")
	}
}

func TestManager_Clean(t *testing.T) {
	m := NewManager(nil)
	var caches []*LRUCache[int]
	var clock *fakeClock
	for i := 0; i < 3; i++ {
		c, cl := newTestCache(10, time.Second)
		if clock == nil {
			clock = cl
		}
		c.now = clock.Now
		c.Set(fmt.Sprintf("k%d", i), i)
		m.Register(c)
		caches = append(caches, c)
	}

	if got := m.Clean(); got != 0 {
		t.Fatalf("nothing expired yet, cleaned %d", got)
	}
	clock.Advance(2 * time.Second)
	if got := m.Clean(); got != 3 {
		t.Fatalf("Clean() = %d, want 3", got)
	}
	for _, c := range caches {
		if c.Size() != 0 {
			t.Fatal("caches should be empty")
		}
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without a running cleanup")
	}
}
