package utils

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedMutexExcludesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	var inside int32
	var overlap int32

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("id:1")
			defer unlock()
			if atomic.AddInt32(&inside, 1) > 1 {
				atomic.StoreInt32(&overlap, 1)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	if overlap != 0 {
		t.Fatalf("two holders of the same key overlapped")
	}
	if km.Len() != 0 {
		t.Fatalf("expected arena to be empty, got %d entries", km.Len())
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()
	unlockA := km.Lock("id:1")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("id:2")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("different keys must not block each other")
	}
}

func TestKeyedMutexUnlockTwice(t *testing.T) {
	km := NewKeyedMutex()
	unlock := km.Lock("k")
	unlock()
	unlock()
	if km.Len() != 0 {
		t.Fatalf("double unlock must be harmless")
	}
}
