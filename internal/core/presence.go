package core

import (
	"sort"
	"sync"
	"time"
)

// PresenceWatcher observes registry changes. Watchers run after the registry
// mutation is complete, outside the registry lock.
type PresenceWatcher func(username string, online bool)

type presenceEntry struct {
	client   *Client
	joinedAt time.Time
}

// Presence maps usernames to their live connection. It is the single source
// of truth for who is currently reachable. Exactly one entry per username: a
// newer registration replaces the old one (reconnect support).
type Presence struct {
	mu       sync.RWMutex
	entries  map[string]presenceEntry
	watchers []PresenceWatcher
}

// NewPresence builds an empty registry.
func NewPresence() *Presence {
	return &Presence{entries: make(map[string]presenceEntry)}
}

// Watch registers a watcher. Not safe to call concurrently with Register or
// Unregister; wire watchers up before serving traffic.
func (p *Presence) Watch(w PresenceWatcher) {
	p.watchers = append(p.watchers, w)
}

// Register inserts or replaces the entry for username. Last write wins.
// Returns the replaced client (nil if none) so the caller can run the
// disconnect cascade for it and force-close the stale connection.
func (p *Presence) Register(username string, c *Client) *Client {
	p.mu.Lock()
	prev, had := p.entries[username]
	p.entries[username] = presenceEntry{client: c, joinedAt: time.Now()}
	p.mu.Unlock()

	p.notify(username, true)
	if had && prev.client != c {
		return prev.client
	}
	return nil
}

// Unregister removes the entry matching the given client. Returns the freed
// username so callers can cascade cleanup. A client that was already replaced
// by a newer registration is not removed and reports false.
func (p *Presence) Unregister(c *Client) (string, bool) {
	p.mu.Lock()
	var username string
	found := false
	for name, entry := range p.entries {
		if entry.client == c {
			username = name
			found = true
			break
		}
	}
	if found {
		delete(p.entries, username)
	}
	p.mu.Unlock()

	if !found {
		return "", false
	}
	p.notify(username, false)
	return username, true
}

// Lookup resolves a username to its live client.
func (p *Presence) Lookup(username string) (*Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[username]
	if !ok {
		return nil, false
	}
	return entry.client, true
}

// Online returns the usernames of everyone currently reachable, sorted for
// stable display. Order carries no meaning.
func (p *Presence) Online() []string {
	p.mu.RLock()
	users := make([]string, 0, len(p.entries))
	for name := range p.entries {
		users = append(users, name)
	}
	p.mu.RUnlock()

	sort.Strings(users)
	return users
}

func (p *Presence) notify(username string, online bool) {
	for _, w := range p.watchers {
		w(username, online)
	}
}
