package constants

import "time"

// Session and context keys
const (
	SessionCookieName = "periodical_session"
	ContextKeyUserID  = "user_id"
	ContextKeyActor   = "actor"
)

// Password rules
const (
	MinPasswordLength = 8
	BcryptCost        = 12
)

// Invitation settings
const (
	InvitationTTL        = 7 * 24 * time.Hour
	InvitationTokenBytes = 32
)

// Plan writer caps
const (
	FreeMaxWriters       = 5
	PremiumMaxWriters    = 20
	EnterpriseMaxWriters = 50
)

// Content limits
const (
	MaxTitleLength = 100
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)
