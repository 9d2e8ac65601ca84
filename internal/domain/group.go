package domain

import "time"

// Group represents a chat group the bot counts members for.
//
// UniqueMemberCount is denormalized from the membership ledger and must
// always equal the number of ledger rows for this group. Ledger rows are
// immutable: inserted once per (group, user) pair, removed only when the
// group is deleted. The counter is only ever moved by the transactional
// add-member path.
type Group struct {
	ID                int64
	ChatID            int64 // platform-assigned chat identifier, unique
	Title             string
	IsActive          bool
	UniqueMemberCount int64
	MaxMemberCount    int64 // high-water mark of externally observed member counts
	AddedAt           time.Time
}

// ChatUser identifies a platform user as seen in join events and member lists.
type ChatUser struct {
	ID       int64
	Username string
}

// AddMemberOutcome reports how an add-unique-member call resolved.
type AddMemberOutcome int

const (
	// MemberAdded means this call inserted the ledger row and bumped the counter.
	MemberAdded AddMemberOutcome = iota
	// MemberAlreadyCounted means the pair was already in the ledger; no-op.
	MemberAlreadyCounted
)

// GroupRef references a group either by platform chat ID or by exact title.
// Callers resolve the "number or name" question once, at the edge.
type GroupRef struct {
	chatID int64
	title  string
	byID   bool
}

// ByChatID builds a reference by platform chat identifier.
func ByChatID(chatID int64) GroupRef {
	return GroupRef{chatID: chatID, byID: true}
}

// ByTitle builds a reference by exact group title.
func ByTitle(title string) GroupRef {
	return GroupRef{title: title}
}

// IsChatID reports whether the reference carries a chat ID.
func (r GroupRef) IsChatID() bool { return r.byID }

// ChatID returns the chat ID; valid only when IsChatID is true.
func (r GroupRef) ChatID() int64 { return r.chatID }

// Title returns the title; valid only when IsChatID is false.
func (r GroupRef) Title() string { return r.title }

// Validate checks that the reference is usable for a lookup.
func (r GroupRef) Validate() error {
	if !r.byID && r.title == "" {
		return ErrValidation("group reference requires a chat id or a title")
	}
	return nil
}
