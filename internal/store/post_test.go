// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postcatalog/internal/apperr"
	"postcatalog/internal/models"
)

func TestOrderBy(t *testing.T) {
	tests := []struct {
		page models.PageRequest
		want string
	}{
		{models.PageRequest{}, "p.created_at DESC, p.id DESC"},
		{models.PageRequest{SortBy: models.SortTitle, Ascending: true}, "p.title ASC, p.id ASC"},
		{models.PageRequest{SortBy: models.SortUpdatedAt}, "p.updated_at DESC, p.id DESC"},
		{models.PageRequest{SortBy: "password_hash"}, "p.created_at DESC, p.id DESC"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, orderBy(tt.page))
	}
}

func TestPostStoreInsertAndFind(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	ctx := context.Background()
	s := NewPostStore(db)

	cat := f.createCategory(t, unique("Backend"))
	tagA := f.createTag(t, unique("alpha"))
	tagB := f.createTag(t, unique("beta"))
	id := f.createPost(t, "Hello", models.PostStatusPublished, cat, tagA, tagB)

	p, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Hello", p.Title)
	assert.Equal(t, models.PostStatusPublished, p.Status)
	assert.Equal(t, f.user.ID, p.Author.ID)
	assert.Equal(t, cat.ID, p.Category.ID)
	assert.Len(t, p.Tags, 2)
	assert.Contains(t, p.TagIDs(), tagA.ID)
	assert.Contains(t, p.TagIDs(), tagB.ID)

	missing, err := s.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostStoreFindPageFilters(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	ctx := context.Background()
	s := NewPostStore(db)

	catA := f.createCategory(t, unique("A"))
	catB := f.createCategory(t, unique("B"))
	tag := f.createTag(t, unique("t"))

	pubA := f.createPost(t, "pub A tagged", models.PostStatusPublished, catA, tag)
	pubA2 := f.createPost(t, "pub A", models.PostStatusPublished, catA)
	pubB := f.createPost(t, "pub B tagged", models.PostStatusPublished, catB, tag)
	f.createPost(t, "draft A tagged", models.PostStatusDraft, catA, tag)

	ids := func(posts []models.Post) []uuid.UUID {
		out := make([]uuid.UUID, len(posts))
		for i, p := range posts {
			out[i] = p.ID
		}
		return out
	}
	page := models.NewPageRequest(0, 50, "")

	posts, total, err := s.FindPage(ctx, models.PostFilter{Status: models.PostStatusPublished, CategoryID: &catA.ID}, page)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.ElementsMatch(t, []uuid.UUID{pubA, pubA2}, ids(posts))

	posts, total, err = s.FindPage(ctx, models.PostFilter{Status: models.PostStatusPublished, TagID: &tag.ID}, page)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.ElementsMatch(t, []uuid.UUID{pubA, pubB}, ids(posts))

	posts, total, err = s.FindPage(ctx, models.PostFilter{Status: models.PostStatusPublished, CategoryID: &catA.ID, TagID: &tag.ID}, page)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []uuid.UUID{pubA}, ids(posts))

	posts, _, err = s.FindPage(ctx, models.PostFilter{Status: models.PostStatusPublished}, page)
	require.NoError(t, err)
	for _, p := range posts {
		assert.True(t, p.IsPublished(), "unfiltered listing returned draft %s", p.ID)
	}
}

func TestPostStorePaging(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	ctx := context.Background()
	s := NewPostStore(db)

	cat := f.createCategory(t, unique("Paging"))
	for _, title := range []string{"c", "a", "b"} {
		f.createPost(t, title, models.PostStatusPublished, cat)
	}

	filter := models.PostFilter{Status: models.PostStatusPublished, CategoryID: &cat.ID}
	first, total, err := s.FindPage(ctx, filter, models.NewPageRequest(0, 2, "title,asc"))
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, first, 2)
	assert.Equal(t, "a", first[0].Title)
	assert.Equal(t, "b", first[1].Title)

	second, _, err := s.FindPage(ctx, filter, models.NewPageRequest(1, 2, "title,asc"))
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "c", second[0].Title)
}

func TestPostStoreFindByAuthor(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	ctx := context.Background()

	cat := f.createCategory(t, unique("Drafts"))
	draft := f.createPost(t, "mine", models.PostStatusDraft, cat)
	f.createPost(t, "published", models.PostStatusPublished, cat)

	posts, total, err := NewPostStore(db).FindByAuthor(ctx, f.user.ID, models.PostStatusDraft, models.NewPageRequest(0, 10, ""))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, posts, 1)
	assert.Equal(t, draft, posts[0].ID)
}

func TestPostStoreUpdateAndReplaceTags(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	ctx := context.Background()
	s := NewPostStore(db)

	cat := f.createCategory(t, unique("Before"))
	other := f.createCategory(t, unique("After"))
	tagA := f.createTag(t, unique("a"))
	tagB := f.createTag(t, unique("b"))
	id := f.createPost(t, "v1", models.PostStatusDraft, cat, tagA)

	p, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	before := p.UpdatedAt

	p.Title = "v2"
	p.Status = models.PostStatusPublished
	p.ReadingTime = 3
	p.Category = other.Ref()
	require.NoError(t, s.Update(ctx, p))
	require.NoError(t, s.ReplaceTags(ctx, id, []uuid.UUID{tagB.ID}))

	got, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)
	assert.Equal(t, 3, got.ReadingTime)
	assert.Equal(t, other.ID, got.Category.ID)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, tagB.ID, got.Tags[0].ID)
	assert.False(t, got.UpdatedAt.Before(before))

	require.NoError(t, s.ReplaceTags(ctx, id, nil))
	got, err = s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func TestPostStoreUpdateMissing(t *testing.T) {
	db := testDB(t)
	err := NewPostStore(db).Update(context.Background(), &models.Post{ID: uuid.New(), Status: models.PostStatusDraft})
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)
}

func TestPostStoreDeleteCascadesTags(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	ctx := context.Background()
	s := NewPostStore(db)

	cat := f.createCategory(t, unique("Gone"))
	tag := f.createTag(t, unique("gone"))
	id := f.createPost(t, "bye", models.PostStatusPublished, cat, tag)

	require.NoError(t, s.Delete(ctx, id))

	p, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, p)

	ids, err := NewTagStore(db).PostIDs(ctx, tag.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
