package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/corvidmail/corvid/internal/identity/domain"
	"github.com/corvidmail/corvid/internal/identity/store"
)

// UserService is the read side of user profiles.
type UserService struct {
	Store store.Store
}

// Get returns the user and their primary address.
func (s *UserService) Get(ctx context.Context, userID string) (domain.User, string, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, "", store.ErrNotFound
		}
		return domain.User{}, "", fmt.Errorf("lookup user: %w", err)
	}

	emails, err := s.Store.EmailAddresses().ListUserEmails(ctx, userID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("list addresses: %w", err)
	}

	var primary string
	for _, e := range emails {
		if e.IsPrimary {
			primary = e.Address
			break
		}
	}
	return user, primary, nil
}
