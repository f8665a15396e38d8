package driving

import (
	"context"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
)

// UserPage is one page of stored user objects.
type UserPage struct {
	Users   []*domain.UserObject `json:"users"`
	HasMore bool                 `json:"has_more"`
	Cursor  string               `json:"cursor,omitempty"`
}

// StoreAdminService exposes the administrative store operations the analysis
// pipeline itself never performs: inspection and deletion of user objects.
type StoreAdminService interface {
	// GetUser loads a stored user object by derived user ID.
	GetUser(ctx context.Context, userID string) (*domain.UserObject, error)

	// ListUsers pages through stored user objects by creation time.
	ListUsers(ctx context.Context, limit int, cursor string) (*UserPage, error)

	// CountUsers returns the number of stored user objects.
	CountUsers(ctx context.Context) (int, error)

	// UserExists reports whether a user object exists.
	UserExists(ctx context.Context, userID string) (bool, error)

	// DeleteUser removes a user object. Absence is not an error.
	DeleteUser(ctx context.Context, userID string) error
}
