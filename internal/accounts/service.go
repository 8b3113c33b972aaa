// Package accounts lists and removes user accounts for administrators.
package accounts

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"finitefield.org/retail-console/internal/api"
	"finitefield.org/retail-console/internal/rbac"
	"finitefield.org/retail-console/internal/textutil"
	"finitefield.org/retail-console/internal/transport"
)

// ErrSelfDelete is returned when an administrator tries to remove their own account.
var ErrSelfDelete = errors.New("accounts: cannot delete the signed-in account")

// API is the subset of the API client used for accounts.
type API interface {
	Users(ctx context.Context) ([]api.User, bool)
	DeleteUser(ctx context.Context, userID int64) error
}

// Row is one user in the listing.
type Row struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      rbac.Role `json:"role"`
	RoleLabel string    `json:"roleLabel"`
	Staff     bool      `json:"staff"`
}

// Service serves the user administration page.
type Service struct {
	api    API
	logger *zap.Logger
}

// NewService constructs a Service.
func NewService(client API, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: client, logger: logger.Named("accounts")}
}

// Users lists every account.
func (s *Service) Users(ctx context.Context) ([]Row, bool) {
	users, ok := s.api.Users(ctx)
	if !ok {
		return nil, false
	}
	rows := make([]Row, 0, len(users))
	for _, u := range users {
		_, staff := rbac.Badge(u.Role)
		row := Row{
			ID:        u.UserID,
			Name:      textutil.Plain(u.FullName),
			Email:     u.Email,
			Role:      rbac.Normalise(u.Role),
			RoleLabel: rbac.Label(u.Role),
			Staff:     staff,
		}
		if u.PhoneNumber != nil {
			row.Phone = *u.PhoneNumber
		}
		rows = append(rows, row)
	}
	return rows, true
}

// DeleteUser removes an account other than the actor's own.
func (s *Service) DeleteUser(ctx context.Context, userID, actorID int64) error {
	if userID == actorID {
		return transport.Invalid("You cannot delete your own account", ErrSelfDelete)
	}
	if err := s.api.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.Int64("userID", userID), zap.Int64("actorID", actorID))
	return nil
}
