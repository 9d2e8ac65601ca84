// Package admin manages the bot's admin/super-admin allow-list.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"tallybot/internal/domain"
)

// Service provides allow-list checks and mutations. Mutations require the
// acting user to be a super admin.
type Service struct {
	repo   domain.AdminRepository
	logger *slog.Logger
}

// NewService creates an admin service.
func NewService(repo domain.AdminRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// IsAdmin reports whether userID is on the allow-list.
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	_, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		return true, nil
	}
	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, err
}

// IsSuperAdmin reports whether userID is a super admin.
func (s *Service) IsSuperAdmin(ctx context.Context, userID int64) (bool, error) {
	a, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		return a.IsSuperAdmin, nil
	}
	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, err
}

// EnsureSuperAdmin bootstraps the configured super admin at startup:
// missing rows are created, existing ones promoted. Idempotent.
func (s *Service) EnsureSuperAdmin(ctx context.Context, userID int64) error {
	a, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		if a.IsSuperAdmin {
			return nil
		}
		return s.repo.SetSuperAdmin(ctx, userID, true)
	}
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		return err
	}
	if _, err := s.repo.Add(ctx, userID, "", true); err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			// Raced with another instance bootstrapping the same row.
			return s.repo.SetSuperAdmin(ctx, userID, true)
		}
		return err
	}
	s.logger.Info("super admin bootstrapped", "user_id", userID)
	return nil
}

// AddAdmin puts the target on the allow-list. target is a numeric user ID or
// an @username known from the potential-admin registry.
func (s *Service) AddAdmin(ctx context.Context, actorID int64, target string) (*domain.Admin, error) {
	if err := s.requireSuperAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	userID, username, err := s.resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.Add(ctx, userID, username, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin added", "user_id", userID, "by", actorID)
	return a, nil
}

// PromoteSuperAdmin makes the target a super admin, adding them first if
// they are not on the allow-list yet.
func (s *Service) PromoteSuperAdmin(ctx context.Context, actorID int64, target string) (*domain.Admin, error) {
	if err := s.requireSuperAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	userID, username, err := s.resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		if existing.IsSuperAdmin {
			return nil, domain.ErrConflict("user %d is already a super admin", userID)
		}
		if err := s.repo.SetSuperAdmin(ctx, userID, true); err != nil {
			return nil, err
		}
		existing.IsSuperAdmin = true
		s.logger.Info("admin promoted", "user_id", userID, "by", actorID)
		return existing, nil
	}
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}

	a, err := s.repo.Add(ctx, userID, username, true)
	if err != nil {
		return nil, err
	}
	s.logger.Info("super admin added", "user_id", userID, "by", actorID)
	return a, nil
}

// RemoveAdmin takes the target off the allow-list. target is a numeric user
// ID or the @username of an existing admin.
func (s *Service) RemoveAdmin(ctx context.Context, actorID int64, target string) error {
	if err := s.requireSuperAdmin(ctx, actorID); err != nil {
		return err
	}

	target = strings.TrimSpace(target)
	userID, numErr := strconv.ParseInt(target, 10, 64)
	if numErr != nil {
		a, err := s.repo.GetByUsername(ctx, target)
		if err != nil {
			return err
		}
		userID = a.UserID
	}

	if err := s.repo.Remove(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("admin removed", "user_id", userID, "by", actorID)
	return nil
}

// ListAdmins returns the full allow-list.
func (s *Service) ListAdmins(ctx context.Context) ([]domain.Admin, error) {
	return s.repo.List(ctx)
}

// RecordPotentialAdmin remembers a user who messaged the bot directly so
// super admins can later promote them by username.
func (s *Service) RecordPotentialAdmin(ctx context.Context, userID int64, username string) error {
	if strings.TrimSpace(username) == "" {
		// Nothing to look up later without a username.
		return nil
	}
	return s.repo.UpsertPotentialAdmin(ctx, userID, username)
}

// SweepExpired drops potential-admin registrations past their TTL.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-domain.PotentialAdminTTL)
	return s.repo.SweepPotentialAdmins(ctx, cutoff)
}

func (s *Service) requireSuperAdmin(ctx context.Context, actorID int64) error {
	super, err := s.IsSuperAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !super {
		return domain.ErrAccessDenied("user %d is not a super admin", actorID)
	}
	return nil
}

// resolveTarget turns "12345" into a user ID directly, and "@name" into the
// user ID recorded when that user last messaged the bot.
func (s *Service) resolveTarget(ctx context.Context, target string) (int64, string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return 0, "", domain.ErrValidation("target user is required")
	}
	if userID, err := strconv.ParseInt(target, 10, 64); err == nil {
		return userID, "", nil
	}
	username := strings.TrimPrefix(target, "@")
	p, err := s.repo.GetPotentialAdminByUsername(ctx, username)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return 0, "", domain.ErrNotFound("user @%s has not messaged the bot", username)
		}
		return 0, "", err
	}
	return p.UserID, p.Username, nil
}
