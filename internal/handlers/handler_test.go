package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"postcatalog/internal/catalog"
	"postcatalog/internal/middleware"
	"postcatalog/internal/models"
	"postcatalog/internal/session"
	"postcatalog/internal/testutil"
)

// fakeSessions is an in-memory SessionManager and SessionGetter.
type fakeSessions struct {
	mu      sync.Mutex
	byToken map[string]*session.Data
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byToken: map[string]*session.Data{}}
}

func (f *fakeSessions) Create(_ context.Context, data *session.Data) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := uuid.NewString()
	f.byToken[token] = data
	return token, nil
}

func (f *fakeSessions) Get(_ context.Context, token string) (*session.Data, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byToken[token], nil
}

func (f *fakeSessions) Destroy(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byToken, token)
	return nil
}

func (f *fakeSessions) TTL() time.Duration { return session.DefaultTTL }

type api struct {
	mux      http.Handler
	store    *testutil.MemStore
	cache    *testutil.MemCache
	sessions *fakeSessions
	author   *models.User
	token    string
	cat      *models.Category
}

func newAPI(t *testing.T) *api {
	t.Helper()
	st := testutil.NewMemStore()
	cache := testutil.NewMemCache()
	sessions := newFakeSessions()
	h := New(catalog.NewService(st, cache, &testutil.AuditLog{}), sessions)

	r := chi.NewRouter()
	r.Use(middleware.LoadSession(sessions))
	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Login)
		r.Get("/posts", h.ListPublished)
		r.Get("/posts/{id}", h.GetPost)
		r.Get("/categories", h.ListCategories)
		r.Get("/categories/{id}", h.GetCategory)
		r.Get("/tags", h.ListTags)
		r.Get("/tags/{id}", h.GetTag)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/auth/logout", h.Logout)
			r.Get("/auth/me", h.Me)
			r.Get("/posts/drafts", h.ListDrafts)
			r.Post("/posts", h.CreatePost)
			r.Put("/posts/{id}", h.UpdatePost)
			r.Delete("/posts/{id}", h.DeletePost)
			r.Post("/categories", h.CreateCategory)
			r.Delete("/categories/{id}", h.DeleteCategory)
			r.Post("/tags", h.CreateTags)
			r.Delete("/tags/{id}", h.DeleteTag)
		})
	})

	a := &api{mux: r, store: st, cache: cache, sessions: sessions}
	a.author = st.AddUser(t, "ana@example.com", "Ana", "secret")
	a.cat = st.AddCategory(t, "Engineering")
	token, err := sessions.Create(context.Background(), &session.Data{UserID: a.author.ID, Email: a.author.Email})
	require.NoError(t, err)
	a.token = token
	return a
}

// do performs a request. A non-nil body is JSON-encoded; auth adds the
// author's bearer token.
func (a *api) do(t *testing.T, method, path string, body any, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *api) createPost(t *testing.T, title, status string, tagIDs ...string) models.Post {
	t.Helper()
	if tagIDs == nil {
		tagIDs = []string{}
	}
	rec := a.do(t, http.MethodPost, "/api/v1/posts", map[string]any{
		"title":       title,
		"content":     "body of " + title,
		"status":      status,
		"category_id": a.cat.ID.String(),
		"tag_ids":     tagIDs,
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Post](t, rec)
}
