// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PostStatus represents the publishing state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// ParsePostStatus converts user input into a PostStatus. Matching is
// case-insensitive; ok is false for anything other than draft or published.
func ParsePostStatus(s string) (PostStatus, bool) {
	switch PostStatus(strings.ToLower(strings.TrimSpace(s))) {
	case PostStatusDraft:
		return PostStatusDraft, true
	case PostStatusPublished:
		return PostStatusPublished, true
	}
	return "", false
}

// Author is the embedded author reference of an assembled post.
type Author struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
}

// CategoryRef is the embedded category reference of an assembled post.
type CategoryRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// TagRef is an embedded tag reference of an assembled post.
type TagRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// Post is the fully assembled post projection: the row itself plus its
// author, category and tag set. This is the value stored in the post cache.
type Post struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Content     string      `json:"content"`
	ContentHTML string      `json:"content_html"`
	Status      PostStatus  `json:"status"`
	Author      Author      `json:"author"`
	Category    CategoryRef `json:"category"`
	Tags        []TagRef    `json:"tags"`
	ReadingTime int         `json:"reading_time"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// IsPublished returns true if the post is in published status.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// TagIDs returns the post's tag identities as a set.
func (p *Post) TagIDs() map[uuid.UUID]struct{} {
	ids := make(map[uuid.UUID]struct{}, len(p.Tags))
	for _, t := range p.Tags {
		ids[t.ID] = struct{}{}
	}
	return ids
}

// PostInput carries the caller-supplied fields of a create or update.
// Reading time is deliberately absent: it is always derived from Content.
type PostInput struct {
	Title      string
	Content    string
	Status     PostStatus
	CategoryID uuid.UUID
	TagIDs     []uuid.UUID
}

// PostFilter selects which posts a page query returns. Nil filters are
// not applied.
type PostFilter struct {
	Status     PostStatus
	CategoryID *uuid.UUID
	TagID      *uuid.UUID
}
