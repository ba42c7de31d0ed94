// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"postcatalog/internal/database"
	"postcatalog/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "postcatalog")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "postcatalog")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// fixture holds rows created for one test. Everything is removed on cleanup
// in foreign-key order.
type fixture struct {
	db     *sql.DB
	user   *models.User
	posts  []uuid.UUID
	cats   []uuid.UUID
	tags   []uuid.UUID
	emails []string
}

func newFixture(t *testing.T, db *sql.DB) *fixture {
	t.Helper()
	f := &fixture{db: db}
	f.user = f.createUser(t, "author-"+uuid.NewString()[:8]+"@store-test.local", "secret")
	t.Cleanup(func() {
		for _, id := range f.posts {
			db.Exec("DELETE FROM posts WHERE id = $1", id)
		}
		for _, id := range f.tags {
			db.Exec("DELETE FROM tags WHERE id = $1", id)
		}
		for _, id := range f.cats {
			db.Exec("DELETE FROM categories WHERE id = $1", id)
		}
		for _, email := range f.emails {
			db.Exec("DELETE FROM users WHERE email = $1", email)
		}
	})
	return f
}

func (f *fixture) createUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	var id uuid.UUID
	err = f.db.QueryRow(`
		INSERT INTO users (email, password_hash, display_name, role)
		VALUES ($1, $2, $3, 'author') RETURNING id
	`, email, string(hash), "Store Tester").Scan(&id)
	require.NoError(t, err)
	f.emails = append(f.emails, email)

	u, err := NewUserStore(f.db).FindByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (f *fixture) createCategory(t *testing.T, name string) *models.Category {
	t.Helper()
	c, err := NewCategoryStore(f.db).Create(context.Background(), &models.Category{Name: name, Slug: slug.Make(name)})
	require.NoError(t, err)
	f.cats = append(f.cats, c.ID)
	return c
}

func (f *fixture) createTag(t *testing.T, name string) models.Tag {
	t.Helper()
	tags, err := NewTagStore(f.db).CreateAll(context.Background(), []models.Tag{{Name: name, Slug: slug.Make(name)}})
	require.NoError(t, err)
	f.tags = append(f.tags, tags[0].ID)
	return tags[0]
}

func (f *fixture) createPost(t *testing.T, title string, status models.PostStatus, cat *models.Category, tags ...models.Tag) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	s := NewPostStore(f.db)
	id, err := s.Insert(ctx, &models.Post{
		Title:    title,
		Content:  "body of " + title,
		Status:   status,
		Author:   f.user.AsAuthor(),
		Category: cat.Ref(),
	})
	require.NoError(t, err)
	f.posts = append(f.posts, id)

	ids := make([]uuid.UUID, len(tags))
	for i, tag := range tags {
		ids[i] = tag.ID
	}
	require.NoError(t, s.ReplaceTags(ctx, id, ids))
	return id
}

// unique returns name with a random suffix so parallel runs do not collide.
func unique(name string) string {
	return name + " " + uuid.NewString()[:8]
}
