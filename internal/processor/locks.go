package processor

import "sync"

// accountLocks serializes transaction processing per account. A
// transaction touching two accounts takes both locks in lexicographic id
// order, so two transactions over the same pair can never deadlock.
// Disjoint pairs proceed fully in parallel.
//
// Locks are created on first use and never released back; the set of
// accounts is small (one per registered user) and bounded.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]*sync.Mutex)}
}

// get returns the mutex for an account, creating it if needed.
func (a *accountLocks) get(id string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.locks[id]
	if !ok {
		m = &sync.Mutex{}
		a.locks[id] = m
	}
	return m
}

// lockPair acquires the locks for both accounts in lexicographic order
// and returns an unlock function. If the ids are equal, only one lock is
// taken.
func (a *accountLocks) lockPair(first, second string) (unlock func()) {
	if first == second {
		m := a.get(first)
		m.Lock()
		return m.Unlock
	}
	if second < first {
		first, second = second, first
	}
	m1, m2 := a.get(first), a.get(second)
	m1.Lock()
	m2.Lock()
	return func() {
		m2.Unlock()
		m1.Unlock()
	}
}
