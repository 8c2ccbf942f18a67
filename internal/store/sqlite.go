// Package store provides storage backends for PlanEat.
//
// This file implements the SQLite-backed store used for single-node and
// development deployments.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
	"github.com/planeat/planeat/internal/models"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists PlanEat data in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store based on provided options.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("SQLiteStore failed to open database", "error", err, "dsn", cfg.DSN)
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore failed to run migrations", "error", err, "dsn", cfg.DSN)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore migrations applied successfully", "dsn", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

// GetUser returns the user for the phone number, or nil if unregistered.
func (s *SQLiteStore) GetUser(phone string) (*models.User, error) {
	row := s.db.QueryRow(`SELECT phone_number, display_name, created_at, updated_at FROM users WHERE phone_number = ?`, phone)
	u, err := scanUserRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetUser failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to query user %s: %w", phone, err)
	}
	return u, nil
}

// UpsertUser inserts the user or updates its display name.
func (s *SQLiteStore) UpsertUser(phone string, displayName *string) error {
	_, err := s.db.Exec(`INSERT INTO users (phone_number, display_name) VALUES (?, ?)
		ON CONFLICT (phone_number) DO UPDATE SET display_name = excluded.display_name, updated_at = CURRENT_TIMESTAMP`, phone, displayName)
	if err != nil {
		slog.Error("SQLiteStore UpsertUser failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to upsert user %s: %w", phone, err)
	}
	return nil
}

// EnsureUser inserts the user if missing, leaving existing rows untouched.
func (s *SQLiteStore) EnsureUser(phone string) error {
	_, err := s.db.Exec(`INSERT INTO users (phone_number) VALUES (?) ON CONFLICT (phone_number) DO NOTHING`, phone)
	if err != nil {
		slog.Error("SQLiteStore EnsureUser failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to ensure user %s: %w", phone, err)
	}
	return nil
}

// CreateHousehold registers the admin, inserts the household, and adds the
// admin member in one transaction.
func (s *SQLiteStore) CreateHousehold(p models.CreateHouseholdParams) (*models.Household, error) {
	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("SQLiteStore CreateHousehold begin failed", "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO users (phone_number, display_name) VALUES (?, ?)
		ON CONFLICT (phone_number) DO UPDATE SET display_name = excluded.display_name, updated_at = CURRENT_TIMESTAMP`, p.AdminPhone, p.DisplayName); err != nil {
		slog.Error("SQLiteStore CreateHousehold user upsert failed", "error", err, "phone", p.AdminPhone)
		return nil, fmt.Errorf("failed to upsert admin user %s: %w", p.AdminPhone, err)
	}

	size := p.HouseholdSize
	if size <= 0 {
		size = 1
	}
	res, err := tx.Exec(`INSERT INTO households (admin_phone, household_size, dietary_restrictions, preferences, goals)
		VALUES (?, ?, ?, ?, ?)`, p.AdminPhone, size, p.DietaryRestrictions, p.Preferences, p.Goals)
	if err != nil {
		slog.Error("SQLiteStore CreateHousehold insert failed", "error", err, "phone", p.AdminPhone)
		return nil, fmt.Errorf("failed to insert household for %s: %w", p.AdminPhone, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read household id: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO household_members (household_id, phone_number, name, role) VALUES (?, ?, ?, 'admin')`,
		id, p.AdminPhone, p.DisplayName); err != nil {
		slog.Error("SQLiteStore CreateHousehold admin member insert failed", "error", err, "household_id", id)
		return nil, fmt.Errorf("failed to insert admin member for household %d: %w", id, err)
	}

	h := models.Household{
		ID:                  id,
		AdminPhone:          p.AdminPhone,
		HouseholdSize:       size,
		DietaryRestrictions: p.DietaryRestrictions,
		Preferences:         p.Preferences,
		Goals:               p.Goals,
	}
	if err := tx.QueryRow(`SELECT created_at FROM households WHERE id = ?`, id).Scan(&h.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to read household %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		slog.Error("SQLiteStore CreateHousehold commit failed", "error", err)
		return nil, fmt.Errorf("failed to commit household creation: %w", err)
	}
	slog.Debug("SQLiteStore CreateHousehold succeeded", "household_id", id, "admin", p.AdminPhone)
	return &h, nil
}

// AddHouseholdMembers appends members to a household, upserting user rows
// for members that have a phone number.
func (s *SQLiteStore) AddHouseholdMembers(householdID int64, members []models.MemberParams) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range members {
		if m.PhoneNumber != nil && *m.PhoneNumber != "" {
			if _, err := tx.Exec(`INSERT INTO users (phone_number, display_name) VALUES (?, ?)
				ON CONFLICT (phone_number) DO UPDATE SET display_name = excluded.display_name, updated_at = CURRENT_TIMESTAMP`, *m.PhoneNumber, m.Name); err != nil {
				slog.Error("SQLiteStore AddHouseholdMembers user upsert failed", "error", err, "phone", *m.PhoneNumber)
				return fmt.Errorf("failed to upsert member user %s: %w", *m.PhoneNumber, err)
			}
		}
		role := m.Role
		if role == "" {
			role = "member"
		}
		if _, err := tx.Exec(`INSERT INTO household_members (household_id, phone_number, name, age, relationship, role)
			VALUES (?, ?, ?, ?, ?, ?)`,
			householdID, m.PhoneNumber, m.Name, m.Age, m.Relationship, role); err != nil {
			slog.Error("SQLiteStore AddHouseholdMembers insert failed", "error", err, "household_id", householdID, "name", m.Name)
			return fmt.Errorf("failed to insert member %s: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit member additions: %w", err)
	}
	slog.Debug("SQLiteStore AddHouseholdMembers succeeded", "household_id", householdID, "count", len(members))
	return nil
}

// GetHouseholdByPhone returns the household the phone belongs to joined with
// the member's role, or nil if the phone is in no household.
func (s *SQLiteStore) GetHouseholdByPhone(phone string) (*models.HouseholdContext, error) {
	row := s.db.QueryRow(`SELECT h.id, h.admin_phone, h.household_size, h.dietary_restrictions, h.preferences, h.goals, h.created_at, hm.role
		FROM households h
		JOIN household_members hm ON h.id = hm.household_id
		WHERE hm.phone_number = ?`, phone)
	hc, err := scanHouseholdContextRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetHouseholdByPhone failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to query household for %s: %w", phone, err)
	}
	return hc, nil
}

// ListHouseholdMembers returns members ordered admins first, then by
// insertion order.
func (s *SQLiteStore) ListHouseholdMembers(householdID int64) ([]models.HouseholdMember, error) {
	rows, err := s.db.Query(`SELECT id, household_id, phone_number, name, age, relationship, role, created_at
		FROM household_members
		WHERE household_id = ?
		ORDER BY CASE role WHEN 'admin' THEN 1 ELSE 2 END, created_at`, householdID)
	if err != nil {
		slog.Error("SQLiteStore ListHouseholdMembers query failed", "error", err, "household_id", householdID)
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
func (s *SQLiteStore) GetConversation(phone string) (*models.Conversation, error) {
	row := s.db.QueryRow(`SELECT phone_number, session_id, current_intent, conversation_state, last_message_at
		FROM conversations WHERE phone_number = ?`, phone)
	c, err := scanConversationRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetConversation failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to query conversation for %s: %w", phone, err)
	}
	return c, nil
}

// SaveConversationState upserts the serialized history and intent,
// refreshing last_message_at.
func (s *SQLiteStore) SaveConversationState(phone string, intent *string, state []byte) error {
	if err := s.EnsureUser(phone); err != nil {
		return err
	}
	if len(state) == 0 {
		state = []byte("{}")
	}
	_, err := s.db.Exec(`INSERT INTO conversations (phone_number, current_intent, conversation_state, last_message_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (phone_number) DO UPDATE SET
			current_intent = COALESCE(excluded.current_intent, conversations.current_intent),
			conversation_state = excluded.conversation_state,
			last_message_at = CURRENT_TIMESTAMP`, phone, intent, string(state))
	if err != nil {
		slog.Error("SQLiteStore SaveConversationState failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to save conversation state for %s: %w", phone, err)
	}
	return nil
}

// SaveSession upserts the engine session id for the phone.
func (s *SQLiteStore) SaveSession(phone, sessionID string) error {
	if err := s.EnsureUser(phone); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO conversations (phone_number, session_id, last_message_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (phone_number) DO UPDATE SET
			session_id = excluded.session_id,
			last_message_at = CURRENT_TIMESTAMP`, phone, sessionID)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to save session for %s: %w", phone, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
