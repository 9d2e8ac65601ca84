// Package bot polls Telegram for updates and dispatches them to the
// membership and admin services.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"tallybot/internal/domain"
	"tallybot/internal/i18n"
	"tallybot/internal/service/admin"
	"tallybot/internal/service/membership"
	"tallybot/internal/tgapi"
)

const (
	defaultPollTimeout   = 30 * time.Second
	errorBackoff         = 3 * time.Second
	chatTypePrivate      = "private"
	maxGroupsPerResponse = 50
)

// API is the slice of the Telegram client the bot consumes.
type API interface {
	GetMe(ctx context.Context) (*tgapi.User, error)
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]tgapi.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Bot is the update loop and command dispatcher.
type Bot struct {
	api     API
	members *membership.Service
	admins  *admin.Service
	logger  *slog.Logger

	pollTimeout time.Duration
	selfID      int64
}

// New creates a Bot. Run must be called to start polling.
func New(api API, members *membership.Service, admins *admin.Service, logger *slog.Logger) *Bot {
	return &Bot{
		api:         api,
		members:     members,
		admins:      admins,
		logger:      logger,
		pollTimeout: defaultPollTimeout,
	}
}

// Run polls for updates until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	me, err := b.api.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("identify bot: %w", err)
	}
	b.selfID = me.ID
	b.logger.Info("bot started", "bot_id", me.ID, "username", me.Username)

	var offset int64
	for {
		updates, err := b.api.GetUpdates(ctx, offset, int(b.pollTimeout.Seconds()))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Warn("poll failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(errorBackoff):
			}
			continue
		}
		for _, update := range updates {
			offset = update.UpdateID + 1
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgapi.Update) {
	msg := update.Message
	if msg == nil {
		return
	}

	switch {
	case len(msg.NewChatMembers) > 0:
		b.handleNewMembers(ctx, msg)
	case msg.LeftChatMember != nil && msg.LeftChatMember.ID == b.selfID:
		if err := b.members.MarkInactive(ctx, msg.Chat.ID); err != nil {
			b.logger.Error("mark group inactive", "chat_id", msg.Chat.ID, "error", err)
		}
	case strings.HasPrefix(msg.Text, "/"):
		b.handleCommand(ctx, msg)
	case msg.Chat.Type == chatTypePrivate && msg.From != nil:
		// Any direct message teaches us the sender's id, which lets a
		// super admin later promote them by @username.
		if err := b.admins.RecordPotentialAdmin(ctx, msg.From.ID, msg.From.Username); err != nil {
			b.logger.Warn("record potential admin", "user_id", msg.From.ID, "error", err)
		}
	}
}

func (b *Bot) handleNewMembers(ctx context.Context, msg *tgapi.Message) {
	group, err := b.members.GetOrCreateGroup(ctx, msg.Chat.ID, msg.Chat.Title)
	if err != nil {
		b.logger.Error("get or create group", "chat_id", msg.Chat.ID, "error", err)
		return
	}

	for _, user := range msg.NewChatMembers {
		if user.IsBot {
			continue
		}
		outcome, err := b.members.AddUniqueMember(ctx, group, user.ID)
		if err != nil {
			b.logger.Error("count member", "chat_id", msg.Chat.ID, "user_id", user.ID, "error", err)
			continue
		}

		tr := i18n.ForLocale(user.LanguageCode)
		switch outcome {
		case domain.MemberAdded:
			fresh, err := b.members.GetGroupByRef(ctx, domain.ByChatID(msg.Chat.ID))
			if err != nil {
				b.logger.Error("refetch group", "chat_id", msg.Chat.ID, "error", err)
				continue
			}
			b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyMemberCounted, fresh.UniqueMemberCount))
		default:
			b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyMemberKnown))
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgapi.Message) {
	if msg.From == nil {
		return
	}
	cmd, args := parseCommand(msg.Text)
	tr := i18n.ForLocale(msg.From.LanguageCode)

	switch cmd {
	case "/start":
		if msg.Chat.Type == chatTypePrivate {
			if err := b.admins.RecordPotentialAdmin(ctx, msg.From.ID, msg.From.Username); err != nil {
				b.logger.Warn("record potential admin", "user_id", msg.From.ID, "error", err)
			}
		}
		b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyStart))
	case "/count":
		b.cmdCount(ctx, msg, tr)
	case "/specific_group":
		b.cmdSpecificGroup(ctx, msg, args, tr)
	case "/delete_group":
		b.cmdDeleteGroup(ctx, msg, args, tr)
	case "/add_admin":
		b.cmdAdmin(ctx, msg, args, tr, adminActionAdd)
	case "/add_super_admin":
		b.cmdAdmin(ctx, msg, args, tr, adminActionPromote)
	case "/remove_admin":
		b.cmdAdmin(ctx, msg, args, tr, adminActionRemove)
	}
}

// requireGate runs an allow-list check and replies with a refusal when it
// fails. It returns true when the caller may proceed.
func (b *Bot) requireGate(ctx context.Context, msg *tgapi.Message, tr *i18n.Translator,
	check func(context.Context, int64) (bool, error)) bool {
	ok, err := check(ctx, msg.From.ID)
	if err != nil {
		b.logger.Error("check admin", "user_id", msg.From.ID, "error", err)
		b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyInternalError))
		return false
	}
	if !ok {
		b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyNoPermission))
		return false
	}
	return true
}

func (b *Bot) cmdCount(ctx context.Context, msg *tgapi.Message, tr *i18n.Translator) {
	if !b.requireGate(ctx, msg, tr, b.admins.IsAdmin) {
		return
	}
	groups, err := b.members.GetActiveGroups(ctx)
	if err != nil {
		b.logger.Error("list groups", "error", err)
		b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyInternalError))
		return
	}
	if len(groups) == 0 {
		b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyGroupListEmpty))
		return
	}
	if len(groups) > maxGroupsPerResponse {
		groups = groups[:maxGroupsPerResponse]
	}

	lines := []string{tr.Sprintf(i18n.KeyGroupList)}
	for _, g := range groups {
		lines = append(lines, tr.Sprintf(i18n.KeyGroupSummary, g.Title, g.UniqueMemberCount, g.MaxMemberCount))
	}
	b.reply(ctx, msg.Chat.ID, strings.Join(lines, "\n\n"))
}

func (b *Bot) cmdSpecificGroup(ctx context.Context, msg *tgapi.Message, args string, tr *i18n.Translator) {
	if !b.requireGate(ctx, msg, tr, b.admins.IsAdmin) {
		return
	}
	if args == "" {
		b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyUsageSpecific))
		return
	}
	group, err := b.members.GetGroupByRef(ctx, parseGroupRef(args))
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyGroupNotFound, args))
			return
		}
		b.logger.Error("get group", "ref", args, "error", err)
		b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyInternalError))
		return
	}
	b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyGroupSummary, group.Title, group.UniqueMemberCount, group.MaxMemberCount))
}

func (b *Bot) cmdDeleteGroup(ctx context.Context, msg *tgapi.Message, args string, tr *i18n.Translator) {
	// Deleting a group destroys its whole ledger, so only super admins may.
	if !b.requireGate(ctx, msg, tr, b.admins.IsSuperAdmin) {
		return
	}
	if args == "" {
		b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyUsageDelete))
		return
	}

	deleted, err := b.members.DeleteGroup(ctx, parseGroupRef(args))
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyGroupNotFound, args))
			return
		}
		b.logger.Error("delete group", "ref", args, "error", err)
		b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyInternalError))
		return
	}
	b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyGroupDeleted, deleted.Title))
}

type adminAction int

const (
	adminActionAdd adminAction = iota
	adminActionPromote
	adminActionRemove
)

func (b *Bot) cmdAdmin(ctx context.Context, msg *tgapi.Message, args string, tr *i18n.Translator, action adminAction) {
	if args == "" {
		b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyUsageAdmin))
		return
	}

	var err error
	var replyKey string
	switch action {
	case adminActionAdd:
		_, err = b.admins.AddAdmin(ctx, msg.From.ID, args)
		replyKey = i18n.KeyAdminAdded
	case adminActionPromote:
		_, err = b.admins.PromoteSuperAdmin(ctx, msg.From.ID, args)
		replyKey = i18n.KeySuperAdminAdded
	case adminActionRemove:
		err = b.admins.RemoveAdmin(ctx, msg.From.ID, args)
		replyKey = i18n.KeyAdminRemoved
	}

	if err != nil {
		var denied *domain.AccessDeniedError
		var notFound *domain.NotFoundError
		var invalid *domain.ValidationError
		switch {
		case errors.As(err, &denied):
			b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyNoPermission))
		case errors.As(err, &notFound):
			b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyAdminUnknownUser, args))
		case errors.As(err, &invalid):
			b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyUsageAdmin))
		default:
			b.logger.Error("admin command", "actor_id", msg.From.ID, "target", args, "error", err)
			b.reply(ctx, msg.Chat.ID, tr.Sprintf(i18n.KeyInternalError))
		}
		return
	}
	b.reply(ctx, msg.Chat.ID, tr.Sprintf(replyKey, args))
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.api.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Warn("send message", "chat_id", chatID, "error", err)
	}
}

// parseCommand splits "/cmd@bot arg one" into "/cmd" and "arg one".
func parseCommand(text string) (string, string) {
	cmd, args, _ := strings.Cut(strings.TrimSpace(text), " ")
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	return cmd, strings.TrimSpace(args)
}

// parseGroupRef treats a numeric argument as a chat id and anything else
// as an exact title.
func parseGroupRef(arg string) domain.GroupRef {
	if chatID, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return domain.ByChatID(chatID)
	}
	return domain.ByTitle(arg)
}
