// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "strings"

// Pagination defaults and limits.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// SortField is a whitelisted column a page can be ordered by.
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortTitle     SortField = "title"
)

// PageRequest describes which slice of an ordered result set to return.
// Page is zero-based.
type PageRequest struct {
	Page      int
	Size      int
	SortBy    SortField
	Ascending bool
}

// NewPageRequest builds a normalized PageRequest from raw query values.
// sort has the form "field" or "field,asc|desc"; unknown fields fall back
// to createdAt descending.
func NewPageRequest(page, size int, sort string) PageRequest {
	pr := PageRequest{Page: page, Size: size}
	field, dir, _ := strings.Cut(sort, ",")
	switch SortField(strings.TrimSpace(field)) {
	case SortCreatedAt, SortUpdatedAt, SortTitle:
		pr.SortBy = SortField(strings.TrimSpace(field))
		pr.Ascending = strings.EqualFold(strings.TrimSpace(dir), "asc")
	}
	return pr.Normalize()
}

// Normalize clamps page and size into their valid ranges and fills in the
// default ordering.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if p.SortBy == "" {
		p.SortBy = SortCreatedAt
		p.Ascending = false
	}
	return p
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page is one slice of a larger ordered result set plus total-count
// metadata for pagination controls.
type Page[T any] struct {
	Content       []T `json:"content"`
	Page          int `json:"page"`
	Size          int `json:"size"`
	TotalElements int `json:"total_elements"`
	TotalPages    int `json:"total_pages"`
}

// NewPage assembles a Page from the fetched items and the total row count.
func NewPage[T any](items []T, req PageRequest, total int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = (total + req.Size - 1) / req.Size
	}
	return &Page[T]{
		Content:       items,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}
