// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"postcatalog/internal/models"
)

// TagStore manages tags in the database.
type TagStore struct {
	db DBTX
}

// NewTagStore returns a new TagStore.
func NewTagStore(db DBTX) *TagStore {
	return &TagStore{db: db}
}

const tagColumns = `id, name, slug, created_at`

func scanTag(scanner interface{ Scan(...any) error }) (*models.Tag, error) {
	var t models.Tag
	if err := scanner.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// collectTags drains rows of tagColumns.
func collectTags(rows *sql.Rows) ([]models.Tag, error) {
	defer rows.Close()
	tags := []models.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

// FindByID retrieves a tag by ID. Returns nil if not found.
func (s *TagStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = $1`, id)
	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find tag by id: %w", err)
	}
	return t, nil
}

// FindAllByIDs returns the tags among ids that exist. Callers compare the
// result length to detect missing IDs.
func (s *TagStore) FindAllByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Tag, error) {
	if len(ids) == 0 {
		return []models.Tag{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ANY($1::uuid[]) ORDER BY name`,
		uuidStrings(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("find tags by ids: %w", err)
	}
	tags, err := collectTags(rows)
	if err != nil {
		return nil, fmt.Errorf("scan tags: %w", err)
	}
	return tags, nil
}

// FindAllByNames returns the existing tags whose name is in names.
func (s *TagStore) FindAllByNames(ctx context.Context, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return []models.Tag{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE name = ANY($1::text[]) ORDER BY name`,
		names,
	)
	if err != nil {
		return nil, fmt.Errorf("find tags by names: %w", err)
	}
	tags, err := collectTags(rows)
	if err != nil {
		return nil, fmt.Errorf("scan tags: %w", err)
	}
	return tags, nil
}

// CreateAll inserts the given tags and returns the stored rows. A name
// inserted concurrently by another transaction resolves to the existing row.
func (s *TagStore) CreateAll(ctx context.Context, tags []models.Tag) ([]models.Tag, error) {
	created := make([]models.Tag, 0, len(tags))
	for _, t := range tags {
		row := s.db.QueryRowContext(ctx, `
			INSERT INTO tags (name, slug)
			VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING `+tagColumns,
			t.Name, t.Slug,
		)
		saved, err := scanTag(row)
		if err != nil {
			return nil, fmt.Errorf("create tag %q: %w", t.Name, err)
		}
		created = append(created, *saved)
	}
	return created, nil
}

// Delete removes a tag by ID.
func (s *TagStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

// ListWithPostCount returns all tags ordered by name, with the number of
// posts carrying each.
func (s *TagStore) ListWithPostCount(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug, t.created_at, COUNT(pt.post_id) AS post_count
		FROM tags t
		LEFT JOIN post_tags pt ON pt.tag_id = t.id
		GROUP BY t.id
		ORDER BY t.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.PostCount); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// PostIDs returns the IDs of all posts carrying the tag.
func (s *TagStore) PostIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT post_id FROM post_tags WHERE tag_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("tag post ids: %w", err)
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("scan tag post ids: %w", err)
	}
	return ids, nil
}
