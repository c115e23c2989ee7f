package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/docsmith/backend/models"
	"github.com/docsmith/backend/repositories"
	"github.com/docsmith/backend/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Principal is the authorization-ready result of reconciliation, attached to
// the request context for downstream consumers.
type Principal struct {
	UserID     uuid.UUID
	Username   string
	NationalID string
	Role       models.Role
	Authority  Authority
}

// HasAuthority reports whether the principal carries the given authority.
func (p *Principal) HasAuthority(a Authority) bool {
	return p != nil && p.Authority != AuthorityNone && p.Authority == a
}

// Unprivileged returns a principal for a caller whose token verified but
// whose claims were too incomplete to reconcile. It is authenticated, holds
// no authority, and maps to no user record.
func Unprivileged() *Principal {
	return &Principal{Authority: AuthorityNone}
}

// Service reconciles identity assertions against the user store and derives
// the authority used for access control.
type Service struct {
	users  repositories.UserRepository
	logger *zap.Logger
}

// NewService creates a new identity service
func NewService(users repositories.UserRepository, logger *zap.Logger) *Service {
	return &Service{
		users:  users,
		logger: logger,
	}
}

// Reconcile idempotently maps an assertion to a durable user record, creating
// one if absent, and returns the resulting principal.
//
// A national-id match takes precedence over a username match: the national id
// is the stable identity key, so a user whose username changed upstream still
// resolves to the same record. A create that loses a uniqueness race against
// a concurrent first-time request is retried exactly once through the update
// path; the retried update's values win.
func (s *Service) Reconcile(ctx context.Context, assertion *Assertion) (*Principal, error) {
	if assertion == nil {
		return nil, services.WrapInternal("nil assertion", nil)
	}

	user, err := s.lookup(ctx, assertion)
	if err != nil {
		return nil, services.WrapInternal("identity lookup failed", err)
	}

	if user == nil {
		user = models.NewUser(assertion.Username, assertion.DisplayName, assertion.Email, assertion.NationalID)

		err = s.users.Create(ctx, user)
		switch {
		case err == nil:
			s.logger.Info("user created",
				zap.String("user_id", user.ID.String()),
				zap.String("username", user.Username))
			return s.principalFor(user), nil

		case errors.Is(err, repositories.ErrConflict):
			// Lost the first-creation race. The record now exists; one
			// re-fetch and the usual update path converge on it.
			s.logger.Debug("create lost uniqueness race, retrying as update",
				zap.String("username", assertion.Username))

			user, err = s.lookup(ctx, assertion)
			if err != nil {
				return nil, services.WrapInternal("re-fetch after conflict failed", err)
			}
			if user == nil {
				return nil, services.WrapInternal("conflicting record vanished after create race", nil)
			}

		default:
			return nil, services.WrapInternal("user create failed", err)
		}
	}

	if err := s.applyUpdate(ctx, user, assertion); err != nil {
		return nil, err
	}

	return s.principalFor(user), nil
}

// lookup resolves an assertion to an existing record, national id first,
// username as fallback. Returns (nil, nil) when nothing matches.
func (s *Service) lookup(ctx context.Context, assertion *Assertion) (*models.User, error) {
	if assertion.NationalID != "" {
		user, err := s.users.GetByNationalID(ctx, assertion.NationalID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}

	user, err := s.users.GetByUsername(ctx, assertion.Username)
	if err == nil {
		return user, nil
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return nil, err
}

// applyUpdate overwrites the mutable profile fields from the assertion and
// persists. The role is never touched here.
func (s *Service) applyUpdate(ctx context.Context, user *models.User, assertion *Assertion) error {
	user.Username = assertion.Username
	user.DisplayName = assertion.DisplayName
	user.Email = assertion.Email
	user.NationalID = assertion.NationalID
	user.Touch(assertion.Username)

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			// A different record already owns the asserted username or
			// national id. Retrying cannot converge, so surface it.
			return services.WrapError(services.ErrorTypeConflict,
				fmt.Sprintf("identity fields conflict with another user: %s", assertion.Username), err)
		}
		return services.WrapInternal("user update failed", err)
	}

	s.logger.Debug("user reconciled",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))
	return nil
}

func (s *Service) principalFor(user *models.User) *Principal {
	return &Principal{
		UserID:     user.ID,
		Username:   user.Username,
		NationalID: user.NationalID,
		Role:       user.Role,
		Authority:  AuthorityFor(user.Role),
	}
}

// CurrentUser resolves the record behind a caller's normalized national id.
func (s *Service) CurrentUser(ctx context.Context, nationalID string) (*models.User, error) {
	normalized := NormalizeNationalID(nationalID)
	if normalized == "" {
		return nil, services.ErrUserNotFound
	}

	user, err := s.users.GetByNationalID(ctx, normalized)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrUserNotFound
		}
		return nil, services.WrapInternal("current user lookup failed", err)
	}

	return user, nil
}

// ListUsers retrieves all user records.
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("user listing failed", err)
	}
	return users, nil
}
