// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Tag is a free-form label. A post carries zero or more tags.
type Tag struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`

	PostCount int `json:"post_count"`
}

// Ref returns the reference embedded in assembled posts.
func (t *Tag) Ref() TagRef {
	return TagRef{ID: t.ID, Name: t.Name, Slug: t.Slug}
}
