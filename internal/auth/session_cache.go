package auth

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultCacheSize = 1024

// SessionCache keeps recently validated sessions in memory so most
// requests skip the database. Entries expire after the cache TTL or when
// the session itself expires, whichever comes first.
type SessionCache struct {
	lru *expirable.LRU[string, *Session]
}

// NewSessionCache returns a cache holding at most size sessions for ttl.
func NewSessionCache(size int, ttl time.Duration) *SessionCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &SessionCache{lru: expirable.NewLRU[string, *Session](size, nil, ttl)}
}

// Get returns the cached session for token unless it has expired at now.
func (c *SessionCache) Get(token string, now time.Time) (*Session, bool) {
	session, ok := c.lru.Get(token)
	if !ok {
		return nil, false
	}
	if now.After(session.ExpiresAt) {
		c.lru.Remove(token)
		return nil, false
	}
	return session, true
}

func (c *SessionCache) Set(session *Session) {
	if session == nil {
		return
	}
	c.lru.Add(session.Token, session)
}

func (c *SessionCache) Delete(token string) {
	c.lru.Remove(token)
}

func (c *SessionCache) Len() int {
	return c.lru.Len()
}

func (c *SessionCache) Purge() {
	c.lru.Purge()
}
