package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"postcatalog/internal/models"
)

// MemCache is an in-memory post cache that counts its traffic. Entries
// are stored as JSON so callers never share memory with the cache, as with
// the Valkey-backed cache.
type MemCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID][]byte

	// Err, when set, is returned by every operation, as an unreachable
	// Valkey would.
	Err error

	Gets          int
	Hits          int
	Puts          int
	Invalidations int
}

// NewMemCache returns an empty MemCache.
func NewMemCache() *MemCache {
	return &MemCache{entries: map[uuid.UUID][]byte{}}
}

func (c *MemCache) Get(_ context.Context, id uuid.UUID) (*models.Post, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gets++
	if c.Err != nil {
		return nil, false, c.Err
	}
	data, ok := c.entries[id]
	if !ok {
		return nil, false, nil
	}
	var p models.Post
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, err
	}
	c.Hits++
	return &p, true, nil
}

func (c *MemCache) Put(_ context.Context, p *models.Post) error {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Puts++
	if c.Err != nil {
		return c.Err
	}
	c.entries[p.ID] = data
	return nil
}

func (c *MemCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Invalidations++
	if c.Err != nil {
		return c.Err
	}
	delete(c.entries, id)
	return nil
}

// Fail makes every following operation return err; nil restores service.
func (c *MemCache) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Err = err
}

// Has reports whether id is cached.
func (c *MemCache) Has(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

// Len returns the number of cached posts.
func (c *MemCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// AuditLog records invalidation log calls.
type AuditLog struct {
	mu      sync.Mutex
	Entries []AuditEntry
}

// AuditEntry is one recorded invalidation.
type AuditEntry struct {
	EntityType string
	EntityID   uuid.UUID
	Action     string
}

func (l *AuditLog) Log(_ context.Context, entityType string, entityID uuid.UUID, action string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, AuditEntry{EntityType: entityType, EntityID: entityID, Action: action})
}
