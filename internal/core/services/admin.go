package services

import (
	"context"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
	"github.com/prospect-labs/prospect-core/internal/core/ports/driven"
	"github.com/prospect-labs/prospect-core/internal/core/ports/driving"
)

// Ensure adminService implements StoreAdminService
var _ driving.StoreAdminService = (*adminService)(nil)

// adminService is a thin administrative facade over the profiles store.
type adminService struct {
	store driven.Store
}

// NewStoreAdminService creates the store admin service.
func NewStoreAdminService(store driven.Store) driving.StoreAdminService {
	return &adminService{store: store}
}

func (s *adminService) GetUser(ctx context.Context, userID string) (*domain.UserObject, error) {
	doc, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	return domain.UserFromDocument(doc)
}

func (s *adminService) ListUsers(ctx context.Context, limit int, cursor string) (*driving.UserPage, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	page, err := s.store.GetPaginated(ctx, limit, cursor, nil)
	if err != nil {
		return nil, err
	}

	users := make([]*domain.UserObject, 0, len(page.Data))
	for _, doc := range page.Data {
		user, err := domain.UserFromDocument(doc)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return &driving.UserPage{
		Users:   users,
		HasMore: page.HasMore,
		Cursor:  page.Cursor,
	}, nil
}

func (s *adminService) CountUsers(ctx context.Context) (int, error) {
	return s.store.Count(ctx, nil)
}

func (s *adminService) UserExists(ctx context.Context, userID string) (bool, error) {
	return s.store.Exists(ctx, userID)
}

func (s *adminService) DeleteUser(ctx context.Context, userID string) error {
	return s.store.Delete(ctx, userID)
}
