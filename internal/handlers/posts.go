package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"postcatalog/internal/apperr"
	"postcatalog/internal/middleware"
	"postcatalog/internal/models"
)

// ListPublished handles GET /api/v1/posts.
func (h *Handler) ListPublished(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	categoryID, err := optionalUUID(q.Get("categoryId"), "categoryId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tagID, err := optionalUUID(q.Get("tagId"), "tagId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := pageRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.ListPublished(r.Context(), categoryID, tagID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListDrafts handles GET /api/v1/posts/drafts for the signed-in author.
func (h *Handler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	page, err := pageRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.ListDrafts(r.Context(), sess.UserID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetPost handles GET /api/v1/posts/{id}.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	post, err := h.svc.GetPost(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// CreatePost handles POST /api/v1/posts. The author is the signed-in user.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	var req PostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.Input()
	if err != nil {
		writeError(w, r, err)
		return
	}

	post, err := h.svc.CreatePost(r.Context(), sess.UserID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/posts/"+post.ID.String())
	writeJSON(w, http.StatusCreated, post)
}

// UpdatePost handles PUT /api/v1/posts/{id}.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req PostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.Input()
	if err != nil {
		writeError(w, r, err)
		return
	}

	post, err := h.svc.UpdatePost(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// DeletePost handles DELETE /api/v1/posts/{id}.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.DeletePost(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func optionalUUID(raw, name string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", name, raw, apperr.ErrValidation)
	}
	return &id, nil
}

// pageRequest reads page, size and sort from the query string. Out-of-range
// values are clamped by models.NewPageRequest; non-numeric ones are rejected.
func pageRequest(r *http.Request) (models.PageRequest, error) {
	q := r.URL.Query()
	page, err := optionalInt(q.Get("page"), "page")
	if err != nil {
		return models.PageRequest{}, err
	}
	size, err := optionalInt(q.Get("size"), "size")
	if err != nil {
		return models.PageRequest{}, err
	}
	return models.NewPageRequest(page, size, q.Get("sort")), nil
}

func optionalInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, apperr.ErrValidation)
	}
	return n, nil
}
