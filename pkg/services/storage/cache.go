package storage

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// signTimeout bounds a shared signing request once it is detached from the
// caller that started it.
const signTimeout = 30 * time.Second

// SignedURL is a signed locator together with its issuance and expiry times.
type SignedURL struct {
	URL       string    `json:"url"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RefreshAt is when the locator should be renewed.
func (s SignedURL) RefreshAt() time.Time {
	return s.IssuedAt.Add(RefreshDelay(s.ExpiresAt.Sub(s.IssuedAt)))
}

// URLCache memoizes signed locators per path and TTL. Concurrent lookups of
// the same key share a single signing request; an entry is served until its
// refresh time.
type URLCache struct {
	signer Signer
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]SignedURL
	group   singleflight.Group
}

// NewURLCache creates a cache in front of signer.
func NewURLCache(signer Signer) *URLCache {
	return &URLCache{
		signer:  signer,
		now:     time.Now,
		entries: make(map[string]SignedURL),
	}
}

// Get returns a signed locator for path valid for ttl, signing on a miss.
func (c *URLCache) Get(ctx context.Context, path string, ttl time.Duration) (SignedURL, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	key := path + "|" + strconv.FormatInt(int64(ttl/time.Second), 10)

	if entry, ok := c.lookup(key); ok {
		return entry, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if entry, ok := c.lookup(key); ok {
			return entry, nil
		}

		// Detached from the first caller: every waiter on key shares it.
		signCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), signTimeout)
		defer cancel()

		issued := c.now()
		locator, err := c.signer.SignURL(signCtx, path, ttl)
		if err != nil {
			return SignedURL{}, err
		}

		entry := SignedURL{URL: locator, IssuedAt: issued, ExpiresAt: issued.Add(ttl)}
		c.mu.Lock()
		c.entries[key] = entry
		c.mu.Unlock()
		return entry, nil
	})
	if err != nil {
		return SignedURL{}, err
	}
	return v.(SignedURL), nil
}

// Evict removes expired or due-for-refresh entries and returns how many were dropped.
func (c *URLCache) Evict() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, entry := range c.entries {
		if !now.Before(entry.RefreshAt()) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Len reports the number of cached entries.
func (c *URLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *URLCache) lookup(key string) (SignedURL, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return SignedURL{}, false
	}
	if !c.now().Before(entry.RefreshAt()) {
		delete(c.entries, key)
		return SignedURL{}, false
	}
	return entry, true
}
