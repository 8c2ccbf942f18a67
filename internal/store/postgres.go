// Package store provides storage backends for PlanEat.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/planeat/planeat/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists PlanEat data in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("PostgresStore failed to open connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// GetUser returns the user for the phone number, or nil if unregistered.
func (s *PostgresStore) GetUser(phone string) (*models.User, error) {
	row := s.db.QueryRow(`SELECT phone_number, display_name, created_at, updated_at FROM users WHERE phone_number = $1`, phone)
	u, err := scanUserRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetUser failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to query user %s: %w", phone, err)
	}
	return u, nil
}

// UpsertUser inserts the user or updates its display name.
func (s *PostgresStore) UpsertUser(phone string, displayName *string) error {
	_, err := s.db.Exec(`INSERT INTO users (phone_number, display_name) VALUES ($1, $2)
		ON CONFLICT (phone_number) DO UPDATE SET display_name = $2, updated_at = NOW()`, phone, displayName)
	if err != nil {
		slog.Error("PostgresStore UpsertUser failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to upsert user %s: %w", phone, err)
	}
	return nil
}

// EnsureUser inserts the user if missing, leaving existing rows untouched.
func (s *PostgresStore) EnsureUser(phone string) error {
	_, err := s.db.Exec(`INSERT INTO users (phone_number) VALUES ($1) ON CONFLICT (phone_number) DO NOTHING`, phone)
	if err != nil {
		slog.Error("PostgresStore EnsureUser failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to ensure user %s: %w", phone, err)
	}
	return nil
}

// CreateHousehold registers the admin, inserts the household, and adds the
// admin member in one transaction.
func (s *PostgresStore) CreateHousehold(p models.CreateHouseholdParams) (*models.Household, error) {
	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("PostgresStore CreateHousehold begin failed", "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO users (phone_number, display_name) VALUES ($1, $2)
		ON CONFLICT (phone_number) DO UPDATE SET display_name = $2, updated_at = NOW()`, p.AdminPhone, p.DisplayName); err != nil {
		slog.Error("PostgresStore CreateHousehold user upsert failed", "error", err, "phone", p.AdminPhone)
		return nil, fmt.Errorf("failed to upsert admin user %s: %w", p.AdminPhone, err)
	}

	size := p.HouseholdSize
	if size <= 0 {
		size = 1
	}
	h := models.Household{
		AdminPhone:          p.AdminPhone,
		HouseholdSize:       size,
		DietaryRestrictions: p.DietaryRestrictions,
		Preferences:         p.Preferences,
		Goals:               p.Goals,
	}
	err = tx.QueryRow(`INSERT INTO households (admin_phone, household_size, dietary_restrictions, preferences, goals)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		p.AdminPhone, size, p.DietaryRestrictions, p.Preferences, p.Goals).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore CreateHousehold insert failed", "error", err, "phone", p.AdminPhone)
		return nil, fmt.Errorf("failed to insert household for %s: %w", p.AdminPhone, err)
	}

	if _, err := tx.Exec(`INSERT INTO household_members (household_id, phone_number, name, role) VALUES ($1, $2, $3, 'admin')`,
		h.ID, p.AdminPhone, p.DisplayName); err != nil {
		slog.Error("PostgresStore CreateHousehold admin member insert failed", "error", err, "household_id", h.ID)
		return nil, fmt.Errorf("failed to insert admin member for household %d: %w", h.ID, err)
	}

	if err := tx.Commit(); err != nil {
		slog.Error("PostgresStore CreateHousehold commit failed", "error", err)
		return nil, fmt.Errorf("failed to commit household creation: %w", err)
	}
	slog.Debug("PostgresStore CreateHousehold succeeded", "household_id", h.ID, "admin", p.AdminPhone)
	return &h, nil
}

// AddHouseholdMembers appends members to a household, upserting user rows
// for members that have a phone number.
func (s *PostgresStore) AddHouseholdMembers(householdID int64, members []models.MemberParams) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range members {
		if m.PhoneNumber != nil && *m.PhoneNumber != "" {
			if _, err := tx.Exec(`INSERT INTO users (phone_number, display_name) VALUES ($1, $2)
				ON CONFLICT (phone_number) DO UPDATE SET display_name = $2, updated_at = NOW()`, *m.PhoneNumber, m.Name); err != nil {
				slog.Error("PostgresStore AddHouseholdMembers user upsert failed", "error", err, "phone", *m.PhoneNumber)
				return fmt.Errorf("failed to upsert member user %s: %w", *m.PhoneNumber, err)
			}
		}
		role := m.Role
		if role == "" {
			role = "member"
		}
		if _, err := tx.Exec(`INSERT INTO household_members (household_id, phone_number, name, age, relationship, role)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			householdID, m.PhoneNumber, m.Name, m.Age, m.Relationship, role); err != nil {
			slog.Error("PostgresStore AddHouseholdMembers insert failed", "error", err, "household_id", householdID, "name", m.Name)
			return fmt.Errorf("failed to insert member %s: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit member additions: %w", err)
	}
	slog.Debug("PostgresStore AddHouseholdMembers succeeded", "household_id", householdID, "count", len(members))
	return nil
}

// GetHouseholdByPhone returns the household the phone belongs to joined with
// the member's role, or nil if the phone is in no household.
func (s *PostgresStore) GetHouseholdByPhone(phone string) (*models.HouseholdContext, error) {
	row := s.db.QueryRow(`SELECT h.id, h.admin_phone, h.household_size, h.dietary_restrictions, h.preferences, h.goals, h.created_at, hm.role
		FROM households h
		JOIN household_members hm ON h.id = hm.household_id
		WHERE hm.phone_number = $1`, phone)
	hc, err := scanHouseholdContextRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetHouseholdByPhone failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to query household for %s: %w", phone, err)
	}
	return hc, nil
}

// ListHouseholdMembers returns members ordered admins first, then by
// insertion order.
func (s *PostgresStore) ListHouseholdMembers(householdID int64) ([]models.HouseholdMember, error) {
	rows, err := s.db.Query(`SELECT id, household_id, phone_number, name, age, relationship, role, created_at
		FROM household_members
		WHERE household_id = $1
		ORDER BY CASE role WHEN 'admin' THEN 1 ELSE 2 END, created_at`, householdID)
	if err != nil {
		slog.Error("PostgresStore ListHouseholdMembers query failed", "error", err, "household_id", householdID)
		return nil, fmt.Errorf("failed to query members of household %d: %w", householdID, err)
	}
	defer rows.Close()
	var members []models.HouseholdMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate member rows: %w", err)
	}
	return members, nil
}

// GetConversation returns the continuity record for the phone, or nil if
// none exists.
func (s *PostgresStore) GetConversation(phone string) (*models.Conversation, error) {
	row := s.db.QueryRow(`SELECT phone_number, session_id, current_intent, conversation_state, last_message_at
		FROM conversations WHERE phone_number = $1`, phone)
	c, err := scanConversationRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetConversation failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to query conversation for %s: %w", phone, err)
	}
	return c, nil
}

// SaveConversationState upserts the serialized history and intent,
// refreshing last_message_at. The user row is ensured first so the foreign
// key holds for brand-new phones.
func (s *PostgresStore) SaveConversationState(phone string, intent *string, state []byte) error {
	if err := s.EnsureUser(phone); err != nil {
		return err
	}
	if len(state) == 0 {
		state = []byte("{}")
	}
	_, err := s.db.Exec(`INSERT INTO conversations (phone_number, current_intent, conversation_state, last_message_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (phone_number) DO UPDATE SET
			current_intent = COALESCE($2, conversations.current_intent),
			conversation_state = $3,
			last_message_at = NOW()`, phone, intent, state)
	if err != nil {
		slog.Error("PostgresStore SaveConversationState failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to save conversation state for %s: %w", phone, err)
	}
	return nil
}

// SaveSession upserts the engine session id for the phone.
func (s *PostgresStore) SaveSession(phone, sessionID string) error {
	if err := s.EnsureUser(phone); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO conversations (phone_number, session_id, last_message_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (phone_number) DO UPDATE SET
			session_id = $2,
			last_message_at = NOW()`, phone, sessionID)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to save session for %s: %w", phone, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
