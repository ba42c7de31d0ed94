// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postcatalog/internal/apperr"
	"postcatalog/internal/models"
)

func TestUserStoreFindByEmail(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	ctx := context.Background()
	s := NewUserStore(db)

	got, err := s.FindByEmail(ctx, "nobody-"+uuid.NewString()+"@store-test.local")
	require.NoError(t, err)
	assert.Nil(t, got, "expected nil for non-existent user")

	got, err = s.FindByEmail(ctx, strings.ToUpper(f.user.Email))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.user.ID, got.ID)
	assert.Equal(t, models.RoleAuthor, got.Role)
	assert.False(t, got.RequiresTOTP())
}

func TestUserStoreFindByID(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	ctx := context.Background()
	s := NewUserStore(db)

	got, err := s.FindByID(ctx, f.user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Store Tester", got.DisplayName)

	got, err = s.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCheckPassword(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)

	assert.True(t, CheckPassword(f.user, "secret"))
	assert.False(t, CheckPassword(f.user, "wrong"))
	assert.NotEqual(t, "secret", f.user.PasswordHash, "password hash must not be plaintext")
}

func TestUserStoreEnableTOTP(t *testing.T) {
	db := testDB(t)
	f := newFixture(t, db)
	ctx := context.Background()
	s := NewUserStore(db)

	require.NoError(t, s.EnableTOTP(ctx, f.user.ID, "JBSWY3DPEHPK3PXP"))

	got, err := s.FindByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, got.RequiresTOTP())
	assert.Equal(t, "JBSWY3DPEHPK3PXP", *got.TOTPSecret)

	err = s.EnableTOTP(ctx, uuid.New(), "JBSWY3DPEHPK3PXP")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
