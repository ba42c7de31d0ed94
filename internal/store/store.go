// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides database access for the catalog. Each store
// struct wraps a DBTX (a *sql.DB or a *sql.Tx) and exposes typed query
// methods; Store bundles them and opens transactional units of work.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"postcatalog/internal/models"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostRepository persists posts and assembles them with their author,
// category and tags. FindByID returns nil, nil when the post does not exist.
type PostRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	FindPage(ctx context.Context, filter models.PostFilter, page models.PageRequest) ([]models.Post, int, error)
	FindByAuthor(ctx context.Context, authorID uuid.UUID, status models.PostStatus, page models.PageRequest) ([]models.Post, int, error)
	Insert(ctx context.Context, p *models.Post) (uuid.UUID, error)
	Update(ctx context.Context, p *models.Post) error
	ReplaceTags(ctx context.Context, postID uuid.UUID, tagIDs []uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryRepository persists categories.
type CategoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListWithPostCount(ctx context.Context) ([]models.Category, error)
	PostIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

// TagRepository persists tags.
type TagRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tag, error)
	FindAllByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Tag, error)
	FindAllByNames(ctx context.Context, names []string) ([]models.Tag, error)
	CreateAll(ctx context.Context, tags []models.Tag) ([]models.Tag, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListWithPostCount(ctx context.Context) ([]models.Tag, error)
	PostIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

// UserRepository looks up users. Accounts are provisioned elsewhere; the
// only change made here is enrolling a second factor.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	EnableTOTP(ctx context.Context, id uuid.UUID, secret string) error
}

// Repositories groups the per-table repositories bound to one connection
// or transaction.
type Repositories interface {
	Posts() PostRepository
	Categories() CategoryRepository
	Tags() TagRepository
	Users() UserRepository
}

// Store is the content store consumed by the catalog: repositories on the
// shared pool plus explicit transactional units of work.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}

// DB implements Store on a PostgreSQL connection pool.
type DB struct {
	db *sql.DB
}

// New creates a Store backed by the given database pool.
func New(db *sql.DB) *DB {
	return &DB{db: db}
}

func (d *DB) Posts() PostRepository           { return NewPostStore(d.db) }
func (d *DB) Categories() CategoryRepository { return NewCategoryStore(d.db) }
func (d *DB) Tags() TagRepository             { return NewTagStore(d.db) }
func (d *DB) Users() UserRepository           { return NewUserStore(d.db) }

// WithinTx runs fn inside a single transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
func (d *DB) WithinTx(ctx context.Context, fn func(Repositories) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(txRepositories{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// txRepositories binds every repository to the same transaction.
type txRepositories struct {
	tx *sql.Tx
}

func (r txRepositories) Posts() PostRepository           { return NewPostStore(r.tx) }
func (r txRepositories) Categories() CategoryRepository { return NewCategoryStore(r.tx) }
func (r txRepositories) Tags() TagRepository             { return NewTagStore(r.tx) }
func (r txRepositories) Users() UserRepository           { return NewUserStore(r.tx) }

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// uuidStrings renders ids for binding to a uuid[] parameter.
func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// scanIDs collects a single uuid column from rows.
func scanIDs(rows *sql.Rows) ([]uuid.UUID, error) {
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
