package catalog

import (
	"fmt"

	"github.com/google/uuid"

	"postcatalog/internal/apperr"
)

// ErrHasAssociatedPosts is returned when deleting a category or tag that
// posts still reference. It matches apperr.ErrInvalidState.
var ErrHasAssociatedPosts = fmt.Errorf("has associated posts: %w", apperr.ErrInvalidState)

// AssertDeletable refuses deletion of an entity of the given kind while
// postIDs is non-empty. Nothing is cascaded.
func AssertDeletable(kind string, id uuid.UUID, postIDs []uuid.UUID) error {
	if len(postIDs) == 0 {
		return nil
	}
	return fmt.Errorf("%s %s is used by %d post(s): %w", kind, id, len(postIDs), ErrHasAssociatedPosts)
}
