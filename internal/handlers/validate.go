package handlers

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"postcatalog/internal/apperr"
	"postcatalog/internal/models"
)

// Validation limits for request fields.
const (
	maxTitleLen    = 300
	maxContentLen  = 100_000
	maxNameLen     = 100
	maxTagsPerPost = 50
	maxTagsPerCall = 100
)

// PostRequest is the request body for creating or updating a post.
type PostRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Status     string   `json:"status"`
	CategoryID string   `json:"category_id"`
	TagIDs     []string `json:"tag_ids"`
}

// Validate checks the request fields.
func (r *PostRequest) Validate() error {
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.RuneLength(1, maxTitleLen)),
		validation.Field(&r.Content, validation.RuneLength(0, maxContentLen)),
		validation.Field(&r.Status, validation.In(string(models.PostStatusDraft), string(models.PostStatusPublished))),
		validation.Field(&r.CategoryID, validation.Required, is.UUID),
		validation.Field(&r.TagIDs, validation.Length(0, maxTagsPerPost), validation.Each(validation.Required, is.UUID)),
	)
}

// Input converts a validated request into catalog input.
func (r *PostRequest) Input() (models.PostInput, error) {
	in := models.PostInput{
		Title:   r.Title,
		Content: r.Content,
		Status:  models.PostStatus(r.Status),
	}
	var err error
	if in.CategoryID, err = uuid.Parse(r.CategoryID); err != nil {
		return in, fmt.Errorf("category_id: %w", apperr.ErrValidation)
	}
	in.TagIDs = make([]uuid.UUID, 0, len(r.TagIDs))
	for _, raw := range r.TagIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return in, fmt.Errorf("tag_ids: %w", apperr.ErrValidation)
		}
		in.TagIDs = append(in.TagIDs, id)
	}
	return in, nil
}

// CategoryRequest is the request body for creating a category.
type CategoryRequest struct {
	Name string `json:"name"`
}

// Validate checks the request fields.
func (r *CategoryRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(1, maxNameLen)),
	)
}

// TagsRequest is the request body for creating tags in bulk. Blank names
// are ignored.
type TagsRequest struct {
	Names []string `json:"names"`
}

// Validate checks the request fields.
func (r *TagsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Names, validation.Required, validation.Length(1, maxTagsPerCall),
			validation.Each(validation.RuneLength(0, maxNameLen))),
	)
}

// LoginRequest is the request body for logging in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code,omitempty"`
}

// Validate checks the request fields.
func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Code, validation.Length(0, 10)),
	)
}
