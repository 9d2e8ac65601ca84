// Package membership implements the unique-member bookkeeping service:
// the ledger-backed counting of distinct users per chat group.
package membership

import (
	"context"
	"errors"
	"log/slog"

	"tallybot/internal/domain"
)

// Service orchestrates group lifecycle and unique-member counting.
//
// All writes to a group's unique-member counter flow through this service's
// repository, which couples the ledger insert and the counter increment in
// one transaction. No other code path may touch the counter.
type Service struct {
	groups domain.GroupRepository
	cache  domain.MemberCache // nil disables the read-through fast path
	logger *slog.Logger
}

// NewService creates a membership service. cache may be nil.
func NewService(groups domain.GroupRepository, cache domain.MemberCache, logger *slog.Logger) *Service {
	return &Service{groups: groups, cache: cache, logger: logger}
}

// AddUniqueMember counts userID toward the group's unique total exactly once.
// Replayed and concurrently delivered join events for the same pair resolve
// to MemberAlreadyCounted without error.
func (s *Service) AddUniqueMember(ctx context.Context, group *domain.Group, userID int64) (domain.AddMemberOutcome, error) {
	if group == nil {
		return 0, domain.ErrValidation("group is required")
	}

	// Cache hit means the ledger row already exists: entries are only added
	// after the ledger insert resolved. A miss or a cache failure falls
	// through to the constraint-guarded path, so staleness can at worst cost
	// a redundant write that the ledger rejects.
	if s.cache != nil {
		known, err := s.cache.Contains(ctx, group.ChatID, userID)
		if err != nil {
			s.logger.Debug("member cache read failed", "chat_id", group.ChatID, "error", err)
		} else if known {
			return domain.MemberAlreadyCounted, nil
		}
	}

	added, err := s.groups.AddUniqueMember(ctx, group.ID, userID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Add(ctx, group.ChatID, userID); err != nil {
			s.logger.Debug("member cache write failed", "chat_id", group.ChatID, "error", err)
		}
	}

	if added {
		s.logger.Info("unique member counted", "chat_id", group.ChatID, "user_id", userID)
		return domain.MemberAdded, nil
	}
	return domain.MemberAlreadyCounted, nil
}

// GetOrCreateGroup returns the group for chatID, creating it with a zero
// counter on first sight. A lost creation race re-fetches the winner's row.
func (s *Service) GetOrCreateGroup(ctx context.Context, chatID int64, title string) (*domain.Group, error) {
	group, err := s.groups.GetByChatID(ctx, chatID)
	if err == nil {
		return group, nil
	}
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}

	group, err = s.groups.Create(ctx, chatID, title)
	if err == nil {
		s.logger.Info("group registered", "chat_id", chatID, "title", title)
		return group, nil
	}
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		// A concurrent creator won; the existing row is the answer.
		return s.groups.GetByChatID(ctx, chatID)
	}
	return nil, err
}

// GetGroupByRef resolves a group by chat ID or exact title.
func (s *Service) GetGroupByRef(ctx context.Context, ref domain.GroupRef) (*domain.Group, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if ref.IsChatID() {
		return s.groups.GetByChatID(ctx, ref.ChatID())
	}
	return s.groups.GetByTitle(ctx, ref.Title())
}

// GetActiveGroups returns all groups the bot is actively counting.
func (s *Service) GetActiveGroups(ctx context.Context) ([]domain.Group, error) {
	return s.groups.ListActive(ctx)
}

// DeleteGroup removes a group and, via cascade, its whole membership ledger.
// It returns the deleted group, or a typed not-found error.
func (s *Service) DeleteGroup(ctx context.Context, ref domain.GroupRef) (*domain.Group, error) {
	group, err := s.GetGroupByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.groups.Delete(ctx, group.ID); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateGroup(ctx, group.ChatID); err != nil {
			s.logger.Debug("member cache invalidate failed", "chat_id", group.ChatID, "error", err)
		}
	}
	s.logger.Info("group deleted", "chat_id", group.ChatID, "title", group.Title)
	return group, nil
}

// MarkInactive flags a group as inactive, e.g. after the bot was removed
// from the chat. The ledger and counters are kept.
func (s *Service) MarkInactive(ctx context.Context, chatID int64) error {
	group, err := s.groups.GetByChatID(ctx, chatID)
	if err != nil {
		return err
	}
	return s.groups.SetActive(ctx, group.ID, false)
}
