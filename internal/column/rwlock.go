package column

import "sync"

// rwLock is a three-state lock: shared (many readers), upgradable (at most
// one holder, compatible with concurrent readers), and exclusive (sole
// holder, compatible with nothing). Go's sync.RWMutex has no upgrade path,
// so this hand-rolls one with a mutex + condition variable: a small
// mutex-guarded state struct with a Cond to park and wake waiters, rather
// than channel-based signaling.
//
// State transitions a column drives this through (see dense.go):
//   - RLock/RUnlock: plain shared access for Get/Contains/ModifyWith/Tick.
//   - ULock/UUnlock: hold upgradable while deciding whether a mutation needs
//     to touch the index map.
//   - Upgrade: promote a held upgradable lock to exclusive once the decision
//     is "this needs to touch the index"; blocks until readers drain.
//   - Lock/Unlock: a direct exclusive acquisition, for Remove, which always
//     needs to touch the index. Set has no delete form; removing a key goes
//     through Remove only.
type rwLock struct {
	mu       sync.Mutex
	cond     *sync.Cond
	readers  int
	upgrader bool
	writer   bool
}

func newRWLock() *rwLock {
	l := &rwLock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// RLock acquires shared access. Blocked only by an active exclusive holder.
func (l *rwLock) RLock() {
	l.mu.Lock()
	for l.writer {
		l.cond.Wait()
	}
	l.readers++
	l.mu.Unlock()
}

// RUnlock releases shared access.
func (l *rwLock) RUnlock() {
	l.mu.Lock()
	l.readers--
	if l.readers == 0 {
		l.cond.Broadcast()
	}
	l.mu.Unlock()
}

// Lock acquires exclusive access, waiting for all readers, the upgradable
// holder, and any other writer to clear.
func (l *rwLock) Lock() {
	l.mu.Lock()
	for l.writer || l.upgrader || l.readers > 0 {
		l.cond.Wait()
	}
	l.writer = true
	l.mu.Unlock()
}

// Unlock releases exclusive access.
func (l *rwLock) Unlock() {
	l.mu.Lock()
	l.writer = false
	l.cond.Broadcast()
	l.mu.Unlock()
}

// ULock acquires the upgradable slot: mutually exclusive with itself and
// with writers, but compatible with concurrent readers.
func (l *rwLock) ULock() {
	l.mu.Lock()
	for l.writer || l.upgrader {
		l.cond.Wait()
	}
	l.upgrader = true
	l.mu.Unlock()
}

// UUnlock releases a held upgradable lock without ever promoting it.
func (l *rwLock) UUnlock() {
	l.mu.Lock()
	l.upgrader = false
	l.cond.Broadcast()
	l.mu.Unlock()
}

// Upgrade promotes a held upgradable lock to exclusive, waiting for any
// readers already in flight to finish. The caller must already hold the
// upgradable lock and must release via Unlock (not UUnlock) afterward.
func (l *rwLock) Upgrade() {
	l.mu.Lock()
	for l.readers > 0 {
		l.cond.Wait()
	}
	l.upgrader = false
	l.writer = true
	l.mu.Unlock()
}
