package roles

import (
	"sync"

	"github.com/reedcms/reed/internal/metrics"
)

type decisionKey struct {
	user     string
	resource string
	action   string
}

// decisionCache is the process-wide permission decision cache of
// spec.md §4.6, guarded by its own lock. Invalidation runs after the role
// cache's writer lock is released, so the two locks are never held
// together and cannot deadlock.
type decisionCache struct {
	mu      sync.RWMutex
	entries map[decisionKey]bool

	// byUser indexes keys per user so invalidateUser doesn't need to
	// scan the whole map.
	byUser map[string]map[decisionKey]struct{}
}

func newDecisionCache() *decisionCache {
	return &decisionCache{
		entries: make(map[decisionKey]bool),
		byUser:  make(map[string]map[decisionKey]struct{}),
	}
}

func (c *decisionCache) get(user, resource, action string) (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[decisionKey{user, resource, action}]
	return v, ok
}

func (c *decisionCache) set(user, resource, action string, decision bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := decisionKey{user, resource, action}
	c.entries[k] = decision
	if c.byUser[user] == nil {
		c.byUser[user] = make(map[decisionKey]struct{})
	}
	c.byUser[user][k] = struct{}{}
}

// invalidateUser drops every cached decision for user: called whenever
// their roles change, a role they hold is updated, or the inheritance
// parent of a role they hold changes.
func (c *decisionCache) invalidateUser(user string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.byUser[user] {
		delete(c.entries, k)
	}
	delete(c.byUser, user)
}

// invalidateAll clears the entire cache (a role or inheritance change
// with unknown blast radius falls back to this).
func (c *decisionCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[decisionKey]bool)
	c.byUser = make(map[string]map[decisionKey]struct{})
}

func recordDecision(hit bool) {
	if hit {
		metrics.RecordDecision("hit")
	} else {
		metrics.RecordDecision("miss")
	}
}
