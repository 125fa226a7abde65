// Package cache deduplicates image generation: at most one external call
// is in flight per prompt fingerprint, and every concurrent caller for the
// same fingerprint observes that one call's outcome.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Generator is the single-call image generation client. It returns an
// opaque image handle (a URL path in this service).
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type state int

const (
	statePending state = iota
	stateReady
	stateFailed
)

// entry tracks one fingerprint. handle and err are written exactly once,
// before done is closed, so waiters may read them after <-done without
// holding the cache lock.
type entry struct {
	state    state
	handle   string
	err      error
	failedAt time.Time
	done     chan struct{}
}

// Cache maps prompt fingerprints to generated images. Entries live for the
// process lifetime; a Failed entry stays recorded until a later call
// replaces it with a fresh attempt.
type Cache struct {
	gen Generator

	mu      sync.Mutex
	entries map[string]*entry
}

func New(gen Generator) *Cache {
	return &Cache{
		gen:     gen,
		entries: make(map[string]*entry),
	}
}

// Fingerprint is the stable cache key for an image prompt.
func Fingerprint(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// GetOrGenerate returns the image handle for prompt, generating it if
// needed. Concurrent callers for the same prompt share one in-flight
// attempt and receive its outcome. A caller whose ctx ends while waiting
// gets ctx.Err(), but the attempt keeps running and still populates the
// cache. A previously failed prompt is retried.
func (c *Cache) GetOrGenerate(ctx context.Context, prompt string) (string, error) {
	fp := Fingerprint(prompt)

	c.mu.Lock()
	if e, ok := c.entries[fp]; ok {
		switch e.state {
		case stateReady:
			handle := e.handle
			c.mu.Unlock()
			return handle, nil
		case statePending:
			c.mu.Unlock()
			return await(ctx, e)
		case stateFailed:
			// Fall through and start a fresh attempt.
		}
	}

	e := &entry{state: statePending, done: make(chan struct{})}
	c.entries[fp] = e
	c.mu.Unlock()

	// The attempt runs detached from the caller's context: an abandoned
	// waiter must not cancel generation for everyone else.
	go c.generate(e, prompt)

	return await(ctx, e)
}

func (c *Cache) generate(e *entry, prompt string) {
	handle, err := c.gen.Generate(context.Background(), prompt)

	c.mu.Lock()
	if err != nil {
		e.state = stateFailed
		e.err = err
		e.failedAt = time.Now()
	} else {
		e.state = stateReady
		e.handle = handle
	}
	c.mu.Unlock()

	close(e.done)
}

func await(ctx context.Context, e *entry) (string, error) {
	select {
	case <-e.done:
		if e.err != nil {
			return "", e.err
		}
		return e.handle, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
