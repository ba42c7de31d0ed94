// Package testutil provides in-memory stand-ins for the content store and
// the post cache so the catalog can be tested without PostgreSQL or Valkey.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/crypto/bcrypt"

	"postcatalog/internal/apperr"
	"postcatalog/internal/models"
	"postcatalog/internal/store"
)

// errRestrict mimics a foreign key violation.
var errRestrict = errors.New("violates foreign key constraint")

type memState struct {
	users      map[uuid.UUID]models.User
	categories map[uuid.UUID]models.Category
	tags       map[uuid.UUID]models.Tag
	posts      map[uuid.UUID]models.Post
	postTags   map[uuid.UUID][]uuid.UUID
}

func (st memState) clone() memState {
	c := memState{
		users:      make(map[uuid.UUID]models.User, len(st.users)),
		categories: make(map[uuid.UUID]models.Category, len(st.categories)),
		tags:       make(map[uuid.UUID]models.Tag, len(st.tags)),
		posts:      make(map[uuid.UUID]models.Post, len(st.posts)),
		postTags:   make(map[uuid.UUID][]uuid.UUID, len(st.postTags)),
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.categories {
		c.categories[k] = v
	}
	for k, v := range st.tags {
		c.tags[k] = v
	}
	for k, v := range st.posts {
		c.posts[k] = v
	}
	for k, v := range st.postTags {
		c.postTags[k] = append([]uuid.UUID(nil), v...)
	}
	return c
}

// MemStore is an in-memory store.Store. Transactions are serialized and
// roll back by restoring a snapshot.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   memState

	clock     time.Time
	postReads int
	commits   int
}

var _ store.Store = (*MemStore)(nil)

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		st: memState{
			users:      map[uuid.UUID]models.User{},
			categories: map[uuid.UUID]models.Category{},
			tags:       map[uuid.UUID]models.Tag{},
			posts:      map[uuid.UUID]models.Post{},
			postTags:   map[uuid.UUID][]uuid.UUID{},
		},
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// now advances the fake clock so timestamps are strictly increasing.
// Callers hold mu.
func (m *MemStore) now() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// PostReads returns how many times a post was read by ID.
func (m *MemStore) PostReads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.postReads
}

// Commits returns how many transactions committed.
func (m *MemStore) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

// PostCount returns the number of stored posts.
func (m *MemStore) PostCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.posts)
}

// AddUser stores an author with a bcrypt hash of password.
func (m *MemStore) AddUser(t *testing.T, email, displayName, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := m.now()
	u := models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Role:         models.RoleAuthor,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	m.st.users[u.ID] = u
	return &u
}

// EnableTOTP turns on the second factor for a stored user.
func (m *MemStore) EnableTOTP(id uuid.UUID, secret string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.st.users[id]
	u.TOTPSecret = &secret
	u.TOTPEnabled = true
	m.st.users[id] = u
}

// AddCategory stores a category directly.
func (m *MemStore) AddCategory(t *testing.T, name string) *models.Category {
	t.Helper()
	c, err := m.Categories().Create(context.Background(), &models.Category{Name: name, Slug: slug.Make(name)})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// AddTag stores a tag directly.
func (m *MemStore) AddTag(t *testing.T, name string) models.Tag {
	t.Helper()
	tags, err := m.Tags().CreateAll(context.Background(), []models.Tag{{Name: name, Slug: slug.Make(name)}})
	if err != nil {
		t.Fatal(err)
	}
	return tags[0]
}

func (m *MemStore) Posts() store.PostRepository           { return memPosts{m} }
func (m *MemStore) Categories() store.CategoryRepository { return memCategories{m} }
func (m *MemStore) Tags() store.TagRepository             { return memTags{m} }
func (m *MemStore) Users() store.UserRepository           { return memUsers{m} }

// WithinTx runs fn with exclusive access and restores the prior state if
// fn fails.
func (m *MemStore) WithinTx(ctx context.Context, fn func(store.Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	m.mu.Lock()
	snapshot := m.st.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.st = snapshot
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.commits++
	m.mu.Unlock()
	return nil
}

// assemble builds the full projection of a stored post. Callers hold mu.
func (m *MemStore) assemble(p models.Post) models.Post {
	if u, ok := m.st.users[p.Author.ID]; ok {
		p.Author = u.AsAuthor()
	}
	if c, ok := m.st.categories[p.Category.ID]; ok {
		p.Category = c.Ref()
	}
	p.Tags = []models.TagRef{}
	for _, id := range m.st.postTags[p.ID] {
		if t, ok := m.st.tags[id]; ok {
			p.Tags = append(p.Tags, t.Ref())
		}
	}
	sort.Slice(p.Tags, func(i, j int) bool { return p.Tags[i].Name < p.Tags[j].Name })
	return p
}

type memPosts struct{ m *MemStore }

func (r memPosts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.postReads++
	p, ok := r.m.st.posts[id]
	if !ok {
		return nil, nil
	}
	out := r.m.assemble(p)
	return &out, nil
}

func (r memPosts) FindPage(_ context.Context, filter models.PostFilter, page models.PageRequest) ([]models.Post, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.page(func(p models.Post) bool {
		if p.Status != filter.Status {
			return false
		}
		if filter.CategoryID != nil && p.Category.ID != *filter.CategoryID {
			return false
		}
		if filter.TagID != nil && !containsID(r.m.st.postTags[p.ID], *filter.TagID) {
			return false
		}
		return true
	}, page)
}

func (r memPosts) FindByAuthor(_ context.Context, authorID uuid.UUID, status models.PostStatus, page models.PageRequest) ([]models.Post, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.page(func(p models.Post) bool {
		return p.Status == status && p.Author.ID == authorID
	}, page)
}

// page filters, orders and windows posts. Callers hold mu.
func (m *MemStore) page(match func(models.Post) bool, page models.PageRequest) ([]models.Post, int, error) {
	page = page.Normalize()
	var all []models.Post
	for _, p := range m.st.posts {
		if match(p) {
			all = append(all, m.assemble(p))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		var cmp int
		switch page.SortBy {
		case models.SortTitle:
			cmp = strings.Compare(a.Title, b.Title)
		case models.SortUpdatedAt:
			cmp = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		}
		if cmp == 0 {
			cmp = strings.Compare(a.ID.String(), b.ID.String())
		}
		if page.Ascending {
			return cmp < 0
		}
		return cmp > 0
	})

	total := len(all)
	start := page.Offset()
	if start >= total {
		return []models.Post{}, total, nil
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r memPosts) Insert(_ context.Context, p *models.Post) (uuid.UUID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.st.users[p.Author.ID]; !ok {
		return uuid.Nil, fmt.Errorf("create post: author: %w", errRestrict)
	}
	if _, ok := r.m.st.categories[p.Category.ID]; !ok {
		return uuid.Nil, fmt.Errorf("create post: category: %w", errRestrict)
	}
	row := *p
	row.ID = uuid.New()
	row.Tags = nil
	row.ContentHTML = ""
	row.CreatedAt = r.m.now()
	row.UpdatedAt = row.CreatedAt
	r.m.st.posts[row.ID] = row
	return row.ID, nil
}

func (r memPosts) Update(_ context.Context, p *models.Post) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	row, ok := r.m.st.posts[p.ID]
	if !ok {
		return fmt.Errorf("update post %s: %w", p.ID, apperr.ErrNotFound)
	}
	if _, ok := r.m.st.categories[p.Category.ID]; !ok {
		return fmt.Errorf("update post: category: %w", errRestrict)
	}
	row.Title = p.Title
	row.Content = p.Content
	row.Status = p.Status
	row.ReadingTime = p.ReadingTime
	row.Category = p.Category
	row.UpdatedAt = r.m.now()
	r.m.st.posts[p.ID] = row
	return nil
}

func (r memPosts) ReplaceTags(_ context.Context, postID uuid.UUID, tagIDs []uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, id := range tagIDs {
		if _, ok := r.m.st.tags[id]; !ok {
			return fmt.Errorf("set post tags: %w", errRestrict)
		}
	}
	r.m.st.postTags[postID] = append([]uuid.UUID(nil), tagIDs...)
	return nil
}

func (r memPosts) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.st.posts, id)
	delete(r.m.st.postTags, id)
	return nil
}

type memCategories struct{ m *MemStore }

func (r memCategories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.st.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r memCategories) ExistsByName(_ context.Context, name string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.st.categories {
		if strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r memCategories) Create(_ context.Context, c *models.Category) (*models.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.st.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return nil, fmt.Errorf("create category %q: %w", c.Name, apperr.ErrConflict)
		}
	}
	row := models.Category{ID: uuid.New(), Name: c.Name, Slug: c.Slug}
	row.CreatedAt = r.m.now()
	row.UpdatedAt = row.CreatedAt
	r.m.st.categories[row.ID] = row
	return &row, nil
}

func (r memCategories) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.st.posts {
		if p.Category.ID == id {
			return fmt.Errorf("delete category: %w", errRestrict)
		}
	}
	delete(r.m.st.categories, id)
	return nil
}

func (r memCategories) ListWithPostCount(_ context.Context) ([]models.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]models.Category, 0, len(r.m.st.categories))
	for _, c := range r.m.st.categories {
		c.PostCount = 0
		for _, p := range r.m.st.posts {
			if p.Category.ID == c.ID {
				c.PostCount++
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memCategories) PostIDs(_ context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var ids []uuid.UUID
	for _, p := range r.m.st.posts {
		if p.Category.ID == id {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

type memTags struct{ m *MemStore }

func (r memTags) FindByID(_ context.Context, id uuid.UUID) (*models.Tag, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.st.tags[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r memTags) FindAllByIDs(_ context.Context, ids []uuid.UUID) ([]models.Tag, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.Tag{}
	for _, id := range ids {
		if t, ok := r.m.st.tags[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r memTags) FindAllByNames(_ context.Context, names []string) ([]models.Tag, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.Tag{}
	for _, t := range r.m.st.tags {
		for _, n := range names {
			if t.Name == n {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func (r memTags) CreateAll(_ context.Context, tags []models.Tag) ([]models.Tag, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]models.Tag, 0, len(tags))
	for _, t := range tags {
		if existing, ok := r.m.tagByName(t.Name); ok {
			out = append(out, existing)
			continue
		}
		row := models.Tag{ID: uuid.New(), Name: t.Name, Slug: t.Slug, CreatedAt: r.m.now()}
		r.m.st.tags[row.ID] = row
		out = append(out, row)
	}
	return out, nil
}

// tagByName looks a tag up by exact name. Callers hold mu.
func (m *MemStore) tagByName(name string) (models.Tag, bool) {
	for _, t := range m.st.tags {
		if t.Name == name {
			return t, true
		}
	}
	return models.Tag{}, false
}

func (r memTags) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, ids := range r.m.st.postTags {
		if containsID(ids, id) {
			return fmt.Errorf("delete tag: %w", errRestrict)
		}
	}
	delete(r.m.st.tags, id)
	return nil
}

func (r memTags) ListWithPostCount(_ context.Context) ([]models.Tag, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]models.Tag, 0, len(r.m.st.tags))
	for _, t := range r.m.st.tags {
		t.PostCount = 0
		for _, ids := range r.m.st.postTags {
			if containsID(ids, t.ID) {
				t.PostCount++
			}
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memTags) PostIDs(_ context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var ids []uuid.UUID
	for postID, tagIDs := range r.m.st.postTags {
		if containsID(tagIDs, id) {
			ids = append(ids, postID)
		}
	}
	return ids, nil
}

type memUsers struct{ m *MemStore }

func (r memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.st.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r memUsers) EnableTOTP(_ context.Context, id uuid.UUID, secret string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.st.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	u.TOTPSecret = &secret
	u.TOTPEnabled = true
	r.m.st.users[id] = u
	return nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
