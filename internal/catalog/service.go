// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog is the post catalog core. It resolves filtered post
// listings, serves single posts through a read-through cache, runs post
// mutations in store transactions and keeps the cache coherent with them,
// and guards category and tag deletion.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"postcatalog/internal/apperr"
	"postcatalog/internal/markdown"
	"postcatalog/internal/models"
	"postcatalog/internal/store"
)

// PostCache holds assembled post projections keyed by post ID. Cache
// failures surface as misses; implementations never return errors.
type PostCache interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Post, bool, error)
	Put(ctx context.Context, p *models.Post) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// InvalidationLog records cache invalidations for auditing.
type InvalidationLog interface {
	Log(ctx context.Context, entityType string, entityID uuid.UUID, action string)
}

// Service coordinates the content store and the post cache.
type Service struct {
	store store.Store
	cache PostCache
	audit InvalidationLog
}

// NewService creates a catalog service. audit may be nil. A nil cache is
// replaced by one that never holds anything, for callers such as account
// maintenance that never read posts.
func NewService(st store.Store, cache PostCache, audit InvalidationLog) *Service {
	if cache == nil {
		cache = noCache{}
	}
	return &Service{store: st, cache: cache, audit: audit}
}

// noCache is a PostCache that always misses.
type noCache struct{}

func (noCache) Get(context.Context, uuid.UUID) (*models.Post, bool, error) { return nil, false, nil }
func (noCache) Put(context.Context, *models.Post) error                   { return nil }
func (noCache) Invalidate(context.Context, uuid.UUID) error               { return nil }

// assemble fills the derived fields of a post read from the store.
func assemble(p *models.Post) error {
	html, err := markdown.ToHTML(p.Content)
	if err != nil {
		return fmt.Errorf("post %s: %w", p.ID, err)
	}
	p.ContentHTML = html
	if p.Tags == nil {
		p.Tags = []models.TagRef{}
	}
	return nil
}

// syncCache applies a committed mutation to the post cache. The store write
// has already succeeded, so a cache failure is logged rather than returned;
// the stale entry expires with the TTL.
func (s *Service) syncCache(ctx context.Context, id uuid.UUID, put *models.Post) {
	var err error
	if put != nil {
		err = s.cache.Put(ctx, put)
	} else {
		err = s.cache.Invalidate(ctx, id)
	}
	if err != nil {
		slog.Error("post cache sync failed after commit", "post_id", id, "error", err)
	}
}

// recordInvalidation writes the audit entry for a cache change on a post.
func (s *Service) recordInvalidation(ctx context.Context, id uuid.UUID, action string) {
	if s.audit != nil {
		s.audit.Log(ctx, "post", id, action)
	}
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return u, nil
}
