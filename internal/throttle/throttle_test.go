// ABOUTME: Tests for the trailing-edge throttler
// ABOUTME: Verifies coalescing, latest-wins semantics, and cancellation
package throttle

import (
	"sync"
	"testing"
	"time"
)

func TestCoalescesBurstToOneCall(t *testing.T) {
	th := New(20 * time.Millisecond)

	var mu sync.Mutex
	var calls []int

	for i := 0; i < 10; i++ {
		n := i
		th.Do(func() {
			mu.Lock()
			calls = append(calls, n)
			mu.Unlock()
		})
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 {
		t.Fatalf("expected exactly 1 invocation, got %d", len(calls))
	}
	if calls[0] != 9 {
		t.Errorf("expected latest call (9) to win, got %d", calls[0])
	}
}

func TestSeparateWindowsFireSeparately(t *testing.T) {
	th := New(10 * time.Millisecond)

	var mu sync.Mutex
	count := 0
	record := func() {
		mu.Lock()
		count++
		mu.Unlock()
	}

	th.Do(record)
	time.Sleep(50 * time.Millisecond)
	th.Do(record)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Errorf("expected 2 invocations across separate windows, got %d", count)
	}
}

func TestStopCancelsPending(t *testing.T) {
	th := New(10 * time.Millisecond)

	fired := make(chan struct{}, 1)
	th.Do(func() { fired <- struct{}{} })
	th.Stop()

	select {
	case <-fired:
		t.Error("expected no invocation after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDoAfterStop(t *testing.T) {
	th := New(5 * time.Millisecond)
	th.Do(func() {})
	th.Stop()

	fired := make(chan struct{}, 1)
	th.Do(func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(100 * time.Millisecond):
		t.Error("expected invocation after reuse")
	}
}
