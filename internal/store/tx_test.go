package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postcatalog/internal/models"
)

func TestWithinTxCommits(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	ctx := context.Background()
	s := New(db)

	var created *models.Category
	err := s.WithinTx(ctx, func(r Repositories) error {
		var err error
		created, err = r.Categories().Create(ctx, &models.Category{Name: unique("Committed"), Slug: "committed"})
		return err
	})
	require.NoError(t, err)
	f.cats = append(f.cats, created.ID)

	got, err := s.Categories().FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	db := testDB(t)
	newFixture(t, db)
	ctx := context.Background()
	s := New(db)
	boom := errors.New("boom")

	name := unique("RolledBack")
	err := s.WithinTx(ctx, func(r Repositories) error {
		if _, err := r.Categories().Create(ctx, &models.Category{Name: name, Slug: "rolled-back"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := s.Categories().ExistsByName(ctx, name)
	require.NoError(t, err)
	assert.False(t, exists)
}
