package processor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLockPair_SameAccountOnce(t *testing.T) {
	locks := newAccountLocks()

	// Self-pair must not deadlock on a double-lock.
	unlock := locks.lockPair("alice", "alice")
	unlock()

	unlock = locks.lockPair("alice", "alice")
	unlock()
}

func TestLockPair_OrderIndependent(t *testing.T) {
	locks := newAccountLocks()

	// Two goroutines locking the same pair in opposite argument order
	// must serialize, not deadlock.
	var wg sync.WaitGroup
	start := make(chan struct{})
	var inCritical atomic.Int32

	for i := 0; i < 2; i++ {
		wg.Add(1)
		first, second := "alice", "bob"
		if i == 1 {
			first, second = "bob", "alice"
		}
		go func(a, b string) {
			defer wg.Done()
			<-start
			for j := 0; j < 100; j++ {
				unlock := locks.lockPair(a, b)
				if n := inCritical.Add(1); n != 1 {
					t.Errorf("pair lock not exclusive: %d holders", n)
				}
				inCritical.Add(-1)
				unlock()
			}
		}(first, second)
	}

	close(start)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("deadlock: pair locking did not complete")
	}
}

func TestLockPair_DisjointPairsDoNotBlock(t *testing.T) {
	locks := newAccountLocks()

	unlockAB := locks.lockPair("a", "b")
	defer unlockAB()

	// A disjoint pair acquires immediately even while (a, b) is held.
	acquired := make(chan struct{})
	go func() {
		unlockCD := locks.lockPair("c", "d")
		unlockCD()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("disjoint pair blocked on unrelated lock")
	}
}
