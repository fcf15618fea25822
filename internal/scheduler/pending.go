package scheduler

import (
	"sort"
	"sync"
)

// Pending tracks users whose revocation failed and is retried on later ticks.
// It is shared with the update router so that an explicit re-subscribe
// cancels a queued revocation.
type Pending struct {
	mu    sync.Mutex
	users map[string]struct{}
}

// NewPending returns an empty registry.
func NewPending() *Pending {
	return &Pending{users: make(map[string]struct{})}
}

func (p *Pending) add(userID string) {
	p.mu.Lock()
	p.users[userID] = struct{}{}
	p.mu.Unlock()
}

// Has reports whether a revocation is queued for the user.
func (p *Pending) Has(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.users[userID]
	return ok
}

// Len returns the number of queued revocations.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.users)
}

// Forget drops a queued revocation. It blocks while a retry for the same
// registry is writing, so a subscribe that follows Forget is never
// overwritten by that retry.
func (p *Pending) Forget(userID string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	delete(p.users, userID)
	p.mu.Unlock()
}

func (p *Pending) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.users))
	for id := range p.users {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// apply runs fn for a user that is still queued, holding the registry lock
// so Forget cannot interleave with the write. A successful fn dequeues the
// user. ok is false when the user was forgotten in the meantime.
func (p *Pending) apply(userID string, fn func() error) (ok bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, queued := p.users[userID]; !queued {
		return false, nil
	}
	if err := fn(); err != nil {
		return true, err
	}
	delete(p.users, userID)
	return true, nil
}
