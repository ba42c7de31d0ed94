package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postcatalog/internal/models"
)

func TestCategoryLifecycle(t *testing.T) {
	a := newAPI(t)

	rec := a.do(t, http.MethodPost, "/api/v1/categories", map[string]string{"name": "  Travel "}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decode[models.Category](t, rec)
	assert.Equal(t, "Travel", c.Name)
	assert.Equal(t, "travel", c.Slug)
	assert.Equal(t, "/api/v1/categories/"+c.ID.String(), rec.Header().Get("Location"))

	rec = a.do(t, http.MethodPost, "/api/v1/categories", map[string]string{"name": "TRAVEL"}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/categories/"+c.ID.String(), nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/categories", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Category](t, rec), 2)

	rec = a.do(t, http.MethodDelete, "/api/v1/categories/"+c.ID.String(), nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/v1/categories/"+c.ID.String(), nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCategoryBlankName(t *testing.T) {
	a := newAPI(t)
	rec := a.do(t, http.MethodPost, "/api/v1/categories", map[string]string{"name": "   "}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteCategoryInUse(t *testing.T) {
	a := newAPI(t)
	a.createPost(t, "Pinned", "draft")

	rec := a.do(t, http.MethodDelete, "/api/v1/categories/"+a.cat.ID.String(), nil, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "associated posts")
}

func TestCreateTags(t *testing.T) {
	a := newAPI(t)
	existing := a.store.AddTag(t, "go")

	rec := a.do(t, http.MethodPost, "/api/v1/tags", map[string]any{
		"names": []string{"go", " rust ", "", "rust"},
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tags := decode[[]models.Tag](t, rec)
	require.Len(t, tags, 2)
	assert.Equal(t, existing.ID, tags[0].ID)
	assert.Equal(t, "rust", tags[1].Name)

	rec = a.do(t, http.MethodPost, "/api/v1/tags", map[string]any{"names": []string{}}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTag(t *testing.T) {
	a := newAPI(t)
	used := a.store.AddTag(t, "used")
	free := a.store.AddTag(t, "free")
	a.createPost(t, "Tagged", "draft", used.ID.String())

	rec := a.do(t, http.MethodDelete, "/api/v1/tags/"+used.ID.String(), nil, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/v1/tags/"+free.ID.String(), nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/v1/tags/"+uuid.NewString(), nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/tags", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Tag](t, rec), 1)
}
