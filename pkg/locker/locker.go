package locker

import "sync"

// Locker tracks accounts with a reconciliation in flight.
type Locker struct {
	mu         sync.Mutex
	inProgress map[string]bool
}

func New() *Locker {
	return &Locker{
		inProgress: make(map[string]bool),
	}
}

// Key identifies an account within a budget.
func Key(budgetID, accountID string) string {
	return budgetID + ":" + accountID
}

// TryLock marks key as in progress. It returns false when key is already held.
func (l *Locker) TryLock(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inProgress[key] {
		return false
	}
	l.inProgress[key] = true
	return true
}

// IsLocked reports whether key is held.
func (l *Locker) IsLocked(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inProgress[key]
}

func (l *Locker) Unlock(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inProgress, key)
}
