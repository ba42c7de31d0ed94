// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"postcatalog/internal/apperr"
	"postcatalog/internal/models"
	"postcatalog/internal/readtime"
	"postcatalog/internal/store"
)

// ListPublished returns one page of published posts, optionally narrowed
// to a category and/or a tag. Each supplied filter must name an existing
// entity; listings never read or fill the post cache.
func (s *Service) ListPublished(ctx context.Context, categoryID, tagID *uuid.UUID, page models.PageRequest) (*models.Page[models.Post], error) {
	page = page.Normalize()

	filter := models.PostFilter{Status: models.PostStatusPublished}
	if categoryID != nil {
		if _, err := s.GetCategory(ctx, *categoryID); err != nil {
			return nil, err
		}
		filter.CategoryID = categoryID
	}
	if tagID != nil {
		if _, err := s.GetTag(ctx, *tagID); err != nil {
			return nil, err
		}
		filter.TagID = tagID
	}

	posts, total, err := s.store.Posts().FindPage(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	if err := assembleAll(posts); err != nil {
		return nil, err
	}
	return models.NewPage(posts, page, total), nil
}

// ListDrafts returns one page of the given author's draft posts.
func (s *Service) ListDrafts(ctx context.Context, authorID uuid.UUID, page models.PageRequest) (*models.Page[models.Post], error) {
	page = page.Normalize()

	if _, err := s.GetUser(ctx, authorID); err != nil {
		return nil, err
	}

	posts, total, err := s.store.Posts().FindByAuthor(ctx, authorID, models.PostStatusDraft, page)
	if err != nil {
		return nil, err
	}
	if err := assembleAll(posts); err != nil {
		return nil, err
	}
	return models.NewPage(posts, page, total), nil
}

func assembleAll(posts []models.Post) error {
	for i := range posts {
		if err := assemble(&posts[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetPost returns a post by ID, reading through the post cache. A store
// miss is reported as apperr.ErrNotFound and leaves the cache untouched.
// Cache failures are returned like store failures.
func (s *Service) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	if p, ok, err := s.cache.Get(ctx, id); err != nil {
		return nil, err
	} else if ok {
		return p, nil
	}

	p, err := s.store.Posts().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("post %s: %w", id, apperr.ErrNotFound)
	}
	if err := assemble(p); err != nil {
		return nil, err
	}

	if err := s.cache.Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// normalizeInput trims the caller's fields and checks the ones the store
// cannot. An empty status means draft.
func normalizeInput(in models.PostInput) (models.PostInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, fmt.Errorf("title is required: %w", apperr.ErrValidation)
	}
	if in.Status == "" {
		in.Status = models.PostStatusDraft
	}
	status, ok := models.ParsePostStatus(string(in.Status))
	if !ok {
		return in, fmt.Errorf("unknown status %q: %w", in.Status, apperr.ErrValidation)
	}
	in.Status = status
	if in.CategoryID == uuid.Nil {
		return in, fmt.Errorf("category is required: %w", apperr.ErrValidation)
	}
	in.TagIDs = dedupeIDs(in.TagIDs)
	return in, nil
}

// CreatePost creates a post authored by authorID. The new projection is
// written through to the post cache once the transaction commits.
func (s *Service) CreatePost(ctx context.Context, authorID uuid.UUID, in models.PostInput) (*models.Post, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}

	var created *models.Post
	err = s.store.WithinTx(ctx, func(r store.Repositories) error {
		author, err := r.Users().FindByID(ctx, authorID)
		if err != nil {
			return err
		}
		if author == nil {
			return fmt.Errorf("author %s: %w", authorID, apperr.ErrNotFound)
		}

		p := &models.Post{
			Title:       in.Title,
			Content:     in.Content,
			Status:      in.Status,
			Author:      author.AsAuthor(),
			ReadingTime: readtime.Estimate(in.Content),
		}

		cat, err := resolveCategory(ctx, r, in.CategoryID)
		if err != nil {
			return err
		}
		p.Category = cat.Ref()

		if _, err := resolveTags(ctx, r, in.TagIDs); err != nil {
			return err
		}

		id, err := r.Posts().Insert(ctx, p)
		if err != nil {
			return err
		}
		if err := r.Posts().ReplaceTags(ctx, id, in.TagIDs); err != nil {
			return err
		}

		created, err = r.Posts().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if created == nil {
			return fmt.Errorf("post %s vanished after insert", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := assemble(created); err != nil {
		return nil, err
	}

	// The request context may already be done; the cache must still follow
	// the committed write.
	syncCtx := context.WithoutCancel(ctx)
	s.syncCache(syncCtx, created.ID, created)
	s.recordInvalidation(syncCtx, created.ID, store.ActionCreate)

	slog.Info("post created", "post_id", created.ID, "author_id", authorID, "status", created.Status)
	return created, nil
}

// UpdatePost replaces the title, content and status of a post, and its
// category and tag set when they differ from the stored ones. The cached
// projection is invalidated once the transaction commits.
func (s *Service) UpdatePost(ctx context.Context, id uuid.UUID, in models.PostInput) (*models.Post, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}

	var updated *models.Post
	err = s.store.WithinTx(ctx, func(r store.Repositories) error {
		p, err := r.Posts().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("post %s: %w", id, apperr.ErrNotFound)
		}

		p.Title = in.Title
		p.Content = in.Content
		p.Status = in.Status
		p.ReadingTime = readtime.Estimate(in.Content)

		if in.CategoryID != p.Category.ID {
			cat, err := resolveCategory(ctx, r, in.CategoryID)
			if err != nil {
				return err
			}
			p.Category = cat.Ref()
		}

		if err := r.Posts().Update(ctx, p); err != nil {
			return err
		}

		if !sameIDSet(p.TagIDs(), in.TagIDs) {
			if _, err := resolveTags(ctx, r, in.TagIDs); err != nil {
				return err
			}
			if err := r.Posts().ReplaceTags(ctx, id, in.TagIDs); err != nil {
				return err
			}
		}

		updated, err = r.Posts().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if updated == nil {
			return fmt.Errorf("post %s: %w", id, apperr.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := assemble(updated); err != nil {
		return nil, err
	}

	syncCtx := context.WithoutCancel(ctx)
	s.syncCache(syncCtx, id, nil)
	s.recordInvalidation(syncCtx, id, store.ActionUpdate)

	slog.Info("post updated", "post_id", id, "status", updated.Status)
	return updated, nil
}

// DeletePost removes a post. The cached projection is invalidated once the
// deletion has committed.
func (s *Service) DeletePost(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithinTx(ctx, func(r store.Repositories) error {
		p, err := r.Posts().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("post %s: %w", id, apperr.ErrNotFound)
		}
		return r.Posts().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	syncCtx := context.WithoutCancel(ctx)
	s.syncCache(syncCtx, id, nil)
	s.recordInvalidation(syncCtx, id, store.ActionDelete)

	slog.Info("post deleted", "post_id", id)
	return nil
}

func resolveCategory(ctx context.Context, r store.Repositories, id uuid.UUID) (*models.Category, error) {
	cat, err := r.Categories().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, fmt.Errorf("category %s: %w", id, apperr.ErrNotFound)
	}
	return cat, nil
}

// resolveTags loads every tag in ids or fails naming the missing ones.
func resolveTags(ctx context.Context, r store.Repositories, ids []uuid.UUID) ([]models.Tag, error) {
	if len(ids) == 0 {
		return []models.Tag{}, nil
	}
	tags, err := r.Tags().FindAllByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(tags) == len(ids) {
		return tags, nil
	}

	found := make(map[uuid.UUID]struct{}, len(tags))
	for _, t := range tags {
		found[t.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	return nil, fmt.Errorf("tags [%s]: %w", strings.Join(missing, ", "), apperr.ErrNotFound)
}

// dedupeIDs drops repeated IDs, keeping first occurrences in order.
func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// sameIDSet compares a set against an already deduplicated list.
func sameIDSet(set map[uuid.UUID]struct{}, ids []uuid.UUID) bool {
	if len(set) != len(ids) {
		return false
	}
	for _, id := range ids {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}
