package membership

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tallybot/internal/domain"
)

// Reconciler corrects the tracked counts against the platform's own view of
// a group, picking up joins the bot never saw (delivered before the bot was
// added, or lost downstream).
type Reconciler struct {
	svc    *Service
	groups domain.GroupRepository
	api    domain.ChatAPI
	logger *slog.Logger
}

// NewReconciler creates a reconciler on top of the membership service.
func NewReconciler(svc *Service, groups domain.GroupRepository, api domain.ChatAPI, logger *slog.Logger) *Reconciler {
	return &Reconciler{svc: svc, groups: groups, api: api, logger: logger}
}

// SyncMembers reconciles one group. Every externally visible member is fed
// through the idempotent add path, then the group's high-water member count
// is raised to the platform's reported total. The walk is not atomic: a
// crash mid-list is fine because a rerun only adds what is still missing.
func (r *Reconciler) SyncMembers(ctx context.Context, chatID int64) error {
	runID := uuid.Must(uuid.NewV7()).String()
	log := r.logger.With("run_id", runID, "chat_id", chatID)

	group, err := r.groups.GetByChatID(ctx, chatID)
	if err != nil {
		return err
	}

	members, err := r.api.GetMembers(ctx, chatID)
	if err != nil {
		return domain.ErrExternal(err, "fetch member list for chat %d", chatID)
	}

	added := 0
	for _, member := range members {
		outcome, err := r.svc.AddUniqueMember(ctx, group, member.ID)
		if err != nil {
			return err
		}
		if outcome == domain.MemberAdded {
			added++
		}
	}

	observed, err := r.api.GetMemberCount(ctx, chatID)
	if err != nil {
		return domain.ErrExternal(err, "fetch member count for chat %d", chatID)
	}
	if err := r.groups.RaiseMaxMemberCount(ctx, group.ID, observed); err != nil {
		return err
	}

	log.Info("group reconciled", "listed", len(members), "added", added, "observed", observed)
	return nil
}

// SyncAll reconciles every active group with bounded concurrency. A failure
// for one group is logged and skipped; the next scheduled run retries it.
func (r *Reconciler) SyncAll(ctx context.Context) error {
	groups, err := r.svc.GetActiveGroups(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, group := range groups {
		chatID := group.ChatID
		g.Go(func() error {
			if err := r.SyncMembers(ctx, chatID); err != nil {
				var external *domain.ExternalError
				if errors.As(err, &external) {
					r.logger.Warn("reconciliation skipped", "chat_id", chatID, "error", err)
					return nil
				}
				r.logger.Error("reconciliation failed", "chat_id", chatID, "error", err)
				return nil
			}
			return nil
		})
	}
	return g.Wait()
}
