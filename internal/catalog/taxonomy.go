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
	"github.com/gosimple/slug"

	"postcatalog/internal/apperr"
	"postcatalog/internal/models"
	"postcatalog/internal/store"
)

// ListCategories returns every category with its post count.
func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.Categories().ListWithPostCount(ctx)
}

// GetCategory returns a category by ID.
func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := s.store.Categories().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("category %s: %w", id, apperr.ErrNotFound)
	}
	return c, nil
}

// CreateCategory creates a category. Names are unique regardless of case.
func (s *Service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name is required: %w", apperr.ErrValidation)
	}

	var created *models.Category
	err := s.store.WithinTx(ctx, func(r store.Repositories) error {
		exists, err := r.Categories().ExistsByName(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("category %q already exists: %w", name, apperr.ErrConflict)
		}
		created, err = r.Categories().Create(ctx, &models.Category{Name: name, Slug: slug.Make(name)})
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("category created", "category_id", created.ID, "name", created.Name)
	return created, nil
}

// DeleteCategory deletes a category that no post belongs to.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithinTx(ctx, func(r store.Repositories) error {
		c, err := r.Categories().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("category %s: %w", id, apperr.ErrNotFound)
		}
		postIDs, err := r.Categories().PostIDs(ctx, id)
		if err != nil {
			return err
		}
		if err := AssertDeletable("category", id, postIDs); err != nil {
			return err
		}
		return r.Categories().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.Info("category deleted", "category_id", id)
	return nil
}

// ListTags returns every tag with its post count.
func (s *Service) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.store.Tags().ListWithPostCount(ctx)
}

// GetTag returns a tag by ID.
func (s *Service) GetTag(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	t, err := s.store.Tags().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("tag %s: %w", id, apperr.ErrNotFound)
	}
	return t, nil
}

// CreateTags makes sure a tag exists for every name and returns them all,
// in input order. Names are trimmed; blanks and repeats are dropped. Only
// names not already stored are inserted.
func (s *Service) CreateTags(ctx context.Context, names []string) ([]models.Tag, error) {
	names = normalizeTagNames(names)
	if len(names) == 0 {
		return []models.Tag{}, nil
	}

	var result []models.Tag
	err := s.store.WithinTx(ctx, func(r store.Repositories) error {
		existing, err := r.Tags().FindAllByNames(ctx, names)
		if err != nil {
			return err
		}
		byName := make(map[string]models.Tag, len(names))
		for _, t := range existing {
			byName[t.Name] = t
		}

		var unseen []models.Tag
		for _, name := range names {
			if _, ok := byName[name]; !ok {
				unseen = append(unseen, models.Tag{Name: name, Slug: slug.Make(name)})
			}
		}
		if len(unseen) > 0 {
			created, err := r.Tags().CreateAll(ctx, unseen)
			if err != nil {
				return err
			}
			for _, t := range created {
				byName[t.Name] = t
			}
			slog.Info("tags created", "count", len(created))
		}

		result = make([]models.Tag, 0, len(names))
		for _, name := range names {
			result = append(result, byName[name])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func normalizeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// DeleteTag deletes a tag that no post carries.
func (s *Service) DeleteTag(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithinTx(ctx, func(r store.Repositories) error {
		t, err := r.Tags().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("tag %s: %w", id, apperr.ErrNotFound)
		}
		postIDs, err := r.Tags().PostIDs(ctx, id)
		if err != nil {
			return err
		}
		if err := AssertDeletable("tag", id, postIDs); err != nil {
			return err
		}
		return r.Tags().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.Info("tag deleted", "tag_id", id)
	return nil
}
