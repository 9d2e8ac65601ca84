package bot

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "tallybot/internal/db"
	"tallybot/internal/db/repository"
	"tallybot/internal/domain"
	"tallybot/internal/service/admin"
	"tallybot/internal/service/membership"
	"tallybot/internal/tgapi"
)

const superAdminID int64 = 1000

type fakeAPI struct {
	mu      sync.Mutex
	sent    []string
	sentTo  []int64
	updates [][]tgapi.Update
}

func (f *fakeAPI) GetMe(ctx context.Context) (*tgapi.User, error) {
	return &tgapi.User{ID: 99, IsBot: true, Username: "tally_bot"}, nil
}

func (f *fakeAPI) GetUpdates(ctx context.Context, offset int64, timeout int) ([]tgapi.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		return nil, context.Canceled
	}
	batch := f.updates[0]
	f.updates = f.updates[1:]
	return batch, nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	f.sentTo = append(f.sentTo, chatID)
	return nil
}

func (f *fakeAPI) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func setupBot(t *testing.T) (*Bot, *fakeAPI, *membership.Service) {
	t.Helper()
	db := internaldb.OpenTest(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	groups := repository.NewGroupRepo(db.Write, db.Read)
	admins := repository.NewAdminRepo(db.Write, db.Read)

	members := membership.NewService(groups, nil, logger)
	adminSvc := admin.NewService(admins, logger)
	require.NoError(t, adminSvc.EnsureSuperAdmin(context.Background(), superAdminID))

	api := &fakeAPI{}
	b := New(api, members, adminSvc, logger)
	b.selfID = 99
	return b, api, members
}

func groupMessage(chatID int64, title, text string, fromID int64) *tgapi.Message {
	return &tgapi.Message{
		Chat: tgapi.Chat{ID: chatID, Type: "supergroup", Title: title},
		From: &tgapi.User{ID: fromID, Username: "someone", LanguageCode: "en"},
		Text: text,
	}
}

func TestBot_NewMemberIsCountedOnce(t *testing.T) {
	b, api, members := setupBot(t)
	ctx := context.Background()

	msg := &tgapi.Message{
		Chat:           tgapi.Chat{ID: -500, Type: "supergroup", Title: "book club"},
		NewChatMembers: []tgapi.User{{ID: 7, Username: "alice", LanguageCode: "en"}},
	}
	b.handleUpdate(ctx, tgapi.Update{UpdateID: 1, Message: msg})
	b.handleUpdate(ctx, tgapi.Update{UpdateID: 2, Message: msg})

	group, err := members.GetGroupByRef(ctx, domain.ByChatID(-500))
	require.NoError(t, err)
	assert.Equal(t, int64(1), group.UniqueMemberCount)

	sent := api.messages()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0], "member number 1")
	assert.Contains(t, sent[1], "already been counted")
}

func TestBot_NewMemberSkipsBots(t *testing.T) {
	b, api, members := setupBot(t)
	ctx := context.Background()

	msg := &tgapi.Message{
		Chat: tgapi.Chat{ID: -500, Type: "supergroup", Title: "book club"},
		NewChatMembers: []tgapi.User{
			{ID: 99, IsBot: true, Username: "tally_bot"},
			{ID: 8, Username: "bob", LanguageCode: "en"},
		},
	}
	b.handleUpdate(ctx, tgapi.Update{UpdateID: 1, Message: msg})

	group, err := members.GetGroupByRef(ctx, domain.ByChatID(-500))
	require.NoError(t, err)
	assert.Equal(t, int64(1), group.UniqueMemberCount)
	assert.Len(t, api.messages(), 1)
}

func TestBot_BotRemovalMarksGroupInactive(t *testing.T) {
	b, _, members := setupBot(t)
	ctx := context.Background()

	_, err := members.GetOrCreateGroup(ctx, -500, "book club")
	require.NoError(t, err)

	msg := &tgapi.Message{
		Chat:           tgapi.Chat{ID: -500, Type: "supergroup", Title: "book club"},
		LeftChatMember: &tgapi.User{ID: 99, IsBot: true},
	}
	b.handleUpdate(ctx, tgapi.Update{UpdateID: 1, Message: msg})

	groups, err := members.GetActiveGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestBot_CountCommand(t *testing.T) {
	b, api, members := setupBot(t)
	ctx := context.Background()

	group, err := members.GetOrCreateGroup(ctx, -500, "book club")
	require.NoError(t, err)
	_, err = members.AddUniqueMember(ctx, group, 7)
	require.NoError(t, err)

	b.handleUpdate(ctx, tgapi.Update{Message: groupMessage(-500, "book club", "/count", superAdminID)})

	sent := api.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "book club")
	assert.Contains(t, sent[0], "Unique members: 1")
}

func TestBot_CountCommandRequiresAdmin(t *testing.T) {
	b, api, members := setupBot(t)
	ctx := context.Background()

	group, err := members.GetOrCreateGroup(ctx, -500, "book club")
	require.NoError(t, err)
	_, err = members.AddUniqueMember(ctx, group, 7)
	require.NoError(t, err)

	b.handleUpdate(ctx, tgapi.Update{Message: groupMessage(-500, "book club", "/count", 42)})

	sent := api.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "permission")
	assert.NotContains(t, sent[0], "book club")
}

func TestBot_CountCommandNoGroups(t *testing.T) {
	b, api, _ := setupBot(t)

	b.handleUpdate(context.Background(), tgapi.Update{Message: groupMessage(-1, "x", "/count", superAdminID)})

	sent := api.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "not tracking")
}

func TestBot_SpecificGroupByTitleAndChatID(t *testing.T) {
	b, api, members := setupBot(t)
	ctx := context.Background()

	_, err := members.GetOrCreateGroup(ctx, -500, "book club")
	require.NoError(t, err)

	b.handleUpdate(ctx, tgapi.Update{Message: groupMessage(-1, "x", "/specific_group book club", superAdminID)})
	b.handleUpdate(ctx, tgapi.Update{Message: groupMessage(-1, "x", "/specific_group -500", superAdminID)})
	b.handleUpdate(ctx, tgapi.Update{Message: groupMessage(-1, "x", "/specific_group nope", superAdminID)})
	b.handleUpdate(ctx, tgapi.Update{Message: groupMessage(-1, "x", "/specific_group book club", 42)})

	sent := api.messages()
	require.Len(t, sent, 4)
	assert.Contains(t, sent[0], "book club")
	assert.Contains(t, sent[1], "book club")
	assert.Contains(t, sent[2], "not found")
	assert.Contains(t, sent[3], "permission")
}

func TestBot_DeleteGroupRequiresSuperAdmin(t *testing.T) {
	b, api, members := setupBot(t)
	ctx := context.Background()

	_, err := members.GetOrCreateGroup(ctx, -500, "book club")
	require.NoError(t, err)

	// A plain admin may inspect groups but not destroy their ledgers.
	_, err = b.admins.AddAdmin(ctx, superAdminID, "42")
	require.NoError(t, err)

	b.handleUpdate(ctx, tgapi.Update{Message: groupMessage(-1, "x", "/delete_group book club", 99999)})
	b.handleUpdate(ctx, tgapi.Update{Message: groupMessage(-1, "x", "/delete_group book club", 42)})

	sent := api.messages()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0], "permission")
	assert.Contains(t, sent[1], "permission")

	group, err := members.GetGroupByRef(ctx, domain.ByChatID(-500))
	require.NoError(t, err)
	assert.Equal(t, "book club", group.Title)
}

func TestBot_DeleteGroupAsSuperAdmin(t *testing.T) {
	b, api, members := setupBot(t)
	ctx := context.Background()

	_, err := members.GetOrCreateGroup(ctx, -500, "book club")
	require.NoError(t, err)

	b.handleUpdate(ctx, tgapi.Update{Message: groupMessage(-1, "x", "/delete_group book club", superAdminID)})

	sent := api.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "deleted")

	_, err = members.GetGroupByRef(ctx, domain.ByChatID(-500))
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestBot_AddAdminFlow(t *testing.T) {
	b, api, _ := setupBot(t)
	ctx := context.Background()

	// Unknown @username: the target never messaged the bot.
	b.handleUpdate(ctx, tgapi.Update{Message: groupMessage(-1, "x", "/add_admin @ghost", superAdminID)})

	// The target messages the bot privately, then promotion works.
	private := &tgapi.Message{
		Chat: tgapi.Chat{ID: 555, Type: "private"},
		From: &tgapi.User{ID: 555, Username: "ghost", LanguageCode: "en"},
		Text: "hello",
	}
	b.handleUpdate(ctx, tgapi.Update{Message: private})
	b.handleUpdate(ctx, tgapi.Update{Message: groupMessage(-1, "x", "/add_admin @ghost", superAdminID)})

	// Non-super actors cannot add admins.
	b.handleUpdate(ctx, tgapi.Update{Message: groupMessage(-1, "x", "/add_admin 777", 42)})

	sent := api.messages()
	require.Len(t, sent, 3)
	assert.Contains(t, sent[0], "has not messaged the bot")
	assert.Contains(t, sent[1], "added")
	assert.Contains(t, sent[2], "permission")
}

func TestBot_RemoveAdmin(t *testing.T) {
	b, api, _ := setupBot(t)
	ctx := context.Background()

	b.handleUpdate(ctx, tgapi.Update{Message: groupMessage(-1, "x", "/add_admin 777", superAdminID)})
	b.handleUpdate(ctx, tgapi.Update{Message: groupMessage(-1, "x", "/remove_admin 777", superAdminID)})

	sent := api.messages()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1], "removed")
}

func TestBot_StartRecordsPotentialAdmin(t *testing.T) {
	b, api, _ := setupBot(t)
	ctx := context.Background()

	start := &tgapi.Message{
		Chat: tgapi.Chat{ID: 555, Type: "private"},
		From: &tgapi.User{ID: 555, Username: "newbie", LanguageCode: "en"},
		Text: "/start",
	}
	b.handleUpdate(ctx, tgapi.Update{Message: start})
	b.handleUpdate(ctx, tgapi.Update{Message: groupMessage(-1, "x", "/add_admin @newbie", superAdminID)})

	sent := api.messages()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0], "count unique group members")
	assert.Contains(t, sent[1], "added")
}

func TestBot_RunDrainsUpdatesAndStops(t *testing.T) {
	b, api, _ := setupBot(t)
	api.updates = [][]tgapi.Update{
		{{UpdateID: 1, Message: groupMessage(-1, "x", "/count", 7)}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	// The fake returns context.Canceled once drained; cancel to make the
	// loop treat it as a shutdown.
	cancel()
	err := <-done
	require.NoError(t, err)
}

func TestParseCommand(t *testing.T) {
	cmd, args := parseCommand("/delete_group@tally_bot book club")
	assert.Equal(t, "/delete_group", cmd)
	assert.Equal(t, "book club", args)

	cmd, args = parseCommand("/count")
	assert.Equal(t, "/count", cmd)
	assert.Empty(t, args)
}

func TestParseGroupRef(t *testing.T) {
	ref := parseGroupRef("-100500")
	assert.True(t, ref.IsChatID())
	assert.Equal(t, int64(-100500), ref.ChatID())

	ref = parseGroupRef("book club 2024")
	assert.False(t, ref.IsChatID())
	assert.Equal(t, "book club 2024", ref.Title())
}
