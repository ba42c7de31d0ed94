// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"postcatalog/internal/apperr"
	"postcatalog/internal/models"
)

// PostStore handles all post-related database operations. Reads return
// assembled posts: author, category and tag set are joined in.
type PostStore struct {
	db DBTX
}

// NewPostStore creates a new PostStore on a pool or transaction.
func NewPostStore(db DBTX) *PostStore {
	return &PostStore{db: db}
}

const postSelect = `
	SELECT p.id, p.title, p.content, p.status, p.reading_time,
	       p.created_at, p.updated_at,
	       u.id, u.display_name,
	       c.id, c.name, c.slug
	FROM posts p
	JOIN users u ON u.id = p.author_id
	JOIN categories c ON c.id = p.category_id`

// Filter clauses for published listings. $1 is always the status.
const (
	wherePostStatus            = `p.status = $1`
	wherePostStatusCategory    = `p.status = $1 AND p.category_id = $2`
	wherePostStatusTag         = `p.status = $1 AND EXISTS (SELECT 1 FROM post_tags pt WHERE pt.post_id = p.id AND pt.tag_id = $2)`
	wherePostStatusCategoryTag = `p.status = $1 AND p.category_id = $2 AND EXISTS (SELECT 1 FROM post_tags pt WHERE pt.post_id = p.id AND pt.tag_id = $3)`
	wherePostStatusAuthor      = `p.status = $1 AND p.author_id = $2`
)

// scanPost scans a postSelect row into a Post without tags.
func scanPost(scanner interface{ Scan(...any) error }) (*models.Post, error) {
	var p models.Post
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Content, &p.Status, &p.ReadingTime,
		&p.CreatedAt, &p.UpdatedAt,
		&p.Author.ID, &p.Author.DisplayName,
		&p.Category.ID, &p.Category.Name, &p.Category.Slug,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByID retrieves an assembled post by its UUID. Returns nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, postSelect+` WHERE p.id = $1`, id)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by id: %w", err)
	}

	posts := []models.Post{*p}
	if err := s.attachTags(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// FindPage returns one page of posts matching filter plus the total number
// of matches. Exactly one of the four status/category/tag query shapes is
// used depending on which filters are set.
func (s *PostStore) FindPage(ctx context.Context, filter models.PostFilter, page models.PageRequest) ([]models.Post, int, error) {
	var (
		where string
		args  = []any{filter.Status}
	)
	switch {
	case filter.CategoryID != nil && filter.TagID != nil:
		where = wherePostStatusCategoryTag
		args = append(args, *filter.CategoryID, *filter.TagID)
	case filter.CategoryID != nil:
		where = wherePostStatusCategory
		args = append(args, *filter.CategoryID)
	case filter.TagID != nil:
		where = wherePostStatusTag
		args = append(args, *filter.TagID)
	default:
		where = wherePostStatus
	}
	return s.page(ctx, where, args, page)
}

// FindByAuthor returns one page of an author's posts in the given status.
func (s *PostStore) FindByAuthor(ctx context.Context, authorID uuid.UUID, status models.PostStatus, page models.PageRequest) ([]models.Post, int, error) {
	return s.page(ctx, wherePostStatusAuthor, []any{status, authorID}, page)
}

// page runs the count and the windowed select for a where clause.
func (s *PostStore) page(ctx context.Context, where string, args []any, page models.PageRequest) ([]models.Post, int, error) {
	page = page.Normalize()

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts p WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}
	if total == 0 {
		return []models.Post{}, 0, nil
	}

	n := len(args)
	query := fmt.Sprintf("%s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		postSelect, where, orderBy(page), n+1, n+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	if err := s.attachTags(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// orderBy renders a whitelisted ORDER BY with id as a stable tie-breaker.
func orderBy(page models.PageRequest) string {
	col := "p.created_at"
	switch page.SortBy {
	case models.SortUpdatedAt:
		col = "p.updated_at"
	case models.SortTitle:
		col = "p.title"
	}
	dir := "DESC"
	if page.Ascending {
		dir = "ASC"
	}
	return col + " " + dir + ", p.id " + dir
}

// attachTags loads the tag sets of all given posts in one query.
func (s *PostStore) attachTags(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(posts))
	index := make(map[uuid.UUID]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
		posts[i].Tags = []models.TagRef{}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT pt.post_id, t.id, t.name, t.slug
		FROM post_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id = ANY($1::uuid[])
		ORDER BY t.name
	`, uuidStrings(ids))
	if err != nil {
		return fmt.Errorf("load post tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID uuid.UUID
		var t models.TagRef
		if err := rows.Scan(&postID, &t.ID, &t.Name, &t.Slug); err != nil {
			return fmt.Errorf("scan post tag: %w", err)
		}
		if i, ok := index[postID]; ok {
			posts[i].Tags = append(posts[i].Tags, t)
		}
	}
	return rows.Err()
}

// Insert stores a new post row and returns its generated ID. Tags are
// attached separately with ReplaceTags.
func (s *PostStore) Insert(ctx context.Context, p *models.Post) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO posts (title, content, status, reading_time, author_id, category_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, p.Title, p.Content, p.Status, p.ReadingTime, p.Author.ID, p.Category.ID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create post: %w", err)
	}
	return id, nil
}

// Update replaces the mutable columns of an existing post and bumps
// updated_at.
func (s *PostStore) Update(ctx context.Context, p *models.Post) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			title = $1, content = $2, status = $3, reading_time = $4,
			category_id = $5, updated_at = NOW()
		WHERE id = $6
	`, p.Title, p.Content, p.Status, p.ReadingTime, p.Category.ID, p.ID)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update post %s: %w", p.ID, apperr.ErrNotFound)
	}
	return nil
}

// ReplaceTags sets the post's tag set to exactly tagIDs.
func (s *PostStore) ReplaceTags(ctx context.Context, postID uuid.UUID, tagIDs []uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("clear post tags: %w", err)
	}
	if len(tagIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO post_tags (post_id, tag_id)
		SELECT $1, t FROM unnest($2::uuid[]) AS t
		ON CONFLICT DO NOTHING
	`, postID, uuidStrings(tagIDs))
	if err != nil {
		return fmt.Errorf("set post tags: %w", err)
	}
	return nil
}

// Delete removes a post by ID. Tag links are removed by ON DELETE CASCADE.
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}
