package domain

import "time"

// Admin is an allow-listed operator of the bot. Super admins may additionally
// manage the allow-list itself and delete groups.
type Admin struct {
	ID           int64
	UserID       int64 // platform user identifier, unique
	Username     string
	IsSuperAdmin bool
	AddedAt      time.Time
}

// PotentialAdmin is a user who messaged the bot directly and can therefore be
// promoted by username. Entries expire and are swept periodically.
type PotentialAdmin struct {
	UserID      int64
	Username    string
	RequestedAt time.Time
}

// PotentialAdminTTL is how long a potential-admin registration stays valid.
const PotentialAdminTTL = 24 * time.Hour
