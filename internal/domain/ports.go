package domain

import (
	"context"
	"time"
)

// GroupRepository provides persistence for groups and the membership ledger.
type GroupRepository interface {
	Create(ctx context.Context, chatID int64, title string) (*Group, error)
	GetByChatID(ctx context.Context, chatID int64) (*Group, error)
	GetByTitle(ctx context.Context, title string) (*Group, error)
	ListActive(ctx context.Context) ([]Group, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error

	// AddUniqueMember inserts the (group, user) ledger row and increments the
	// group's unique-member counter in a single transaction. It returns false
	// when the pair was already in the ledger, in which case nothing changes.
	AddUniqueMember(ctx context.Context, groupID, userID int64) (bool, error)

	MemberIDs(ctx context.Context, groupID int64) ([]int64, error)
	CountMembers(ctx context.Context, groupID int64) (int64, error)

	// RaiseMaxMemberCount sets the group's high-water member count to the
	// given value if and only if it is higher than the stored one.
	RaiseMaxMemberCount(ctx context.Context, groupID, observed int64) error
}

// AdminRepository provides persistence for the admin allow-list.
type AdminRepository interface {
	Add(ctx context.Context, userID int64, username string, super bool) (*Admin, error)
	GetByUserID(ctx context.Context, userID int64) (*Admin, error)
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	List(ctx context.Context) ([]Admin, error)
	SetSuperAdmin(ctx context.Context, userID int64, super bool) error
	Remove(ctx context.Context, userID int64) error

	UpsertPotentialAdmin(ctx context.Context, userID int64, username string) error
	GetPotentialAdminByUsername(ctx context.Context, username string) (*PotentialAdmin, error)
	SweepPotentialAdmins(ctx context.Context, olderThan time.Time) (int64, error)
}

// ChatAPI is the external member-list provider (the chat platform).
type ChatAPI interface {
	// GetMemberCount returns the platform's current member count for a chat.
	GetMemberCount(ctx context.Context, chatID int64) (int64, error)
	// GetMembers returns the members the platform lets the bot enumerate.
	// The list may be a subset of the full membership.
	GetMembers(ctx context.Context, chatID int64) ([]ChatUser, error)
}

// MemberCache is an optional read-through set-membership cache. It is a
// performance shortcut only: staleness or loss must never affect counting
// correctness, so implementations may drop entries at any time.
type MemberCache interface {
	Contains(ctx context.Context, chatID, userID int64) (bool, error)
	Add(ctx context.Context, chatID, userID int64) error
	InvalidateGroup(ctx context.Context, chatID int64) error
}
