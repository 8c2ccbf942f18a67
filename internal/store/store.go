// Package store provides storage backends for PlanEat.
//
// It persists users, households, household members, and per-phone
// conversation continuity records. PostgreSQL and SQLite backends share
// the same interface; an in-memory store backs unit tests.
package store

import "github.com/planeat/planeat/internal/models"

// Opts holds configuration options for store backends.
type Opts struct {
	// DSN is the database connection string.
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// Store defines the persistence operations shared by all backends.
//
// Lookup methods return (nil, nil) when no row exists so callers can
// distinguish absence from storage failure.
type Store interface {
	// GetUser returns the user for the phone number, or nil if unregistered.
	GetUser(phone string) (*models.User, error)
	// UpsertUser inserts the user or updates its display name.
	UpsertUser(phone string, displayName *string) error
	// EnsureUser inserts the user if missing, leaving existing rows untouched.
	EnsureUser(phone string) error

	// CreateHousehold registers the admin user, inserts the household, and
	// adds the admin as its first member in a single transaction. A failure
	// at any step leaves no partial household behind.
	CreateHousehold(p models.CreateHouseholdParams) (*models.Household, error)
	// AddHouseholdMembers appends members to an existing household,
	// upserting user rows for members that have a phone number.
	AddHouseholdMembers(householdID int64, members []models.MemberParams) error
	// GetHouseholdByPhone returns the household the phone belongs to joined
	// with the member's role, or nil if the phone is in no household.
	GetHouseholdByPhone(phone string) (*models.HouseholdContext, error)
	// ListHouseholdMembers returns members ordered admins first, then by
	// insertion order.
	ListHouseholdMembers(householdID int64) ([]models.HouseholdMember, error)

	// GetConversation returns the continuity record for the phone, or nil
	// if none exists. Staleness is judged by the caller.
	GetConversation(phone string) (*models.Conversation, error)
	// SaveConversationState upserts the serialized history and optional
	// intent, refreshing last_message_at. The user row is ensured first.
	SaveConversationState(phone string, intent *string, state []byte) error
	// SaveSession upserts the engine session id for the phone, refreshing
	// last_message_at.
	SaveSession(phone, sessionID string) error

	// Close releases underlying resources.
	Close() error
}
