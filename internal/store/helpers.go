package store

import (
	"database/sql"

	"github.com/planeat/planeat/internal/models"
)

// nullStr converts sql.NullString to a *string, nil when invalid.
func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// nullInt converts sql.NullInt64 to a *int, nil when invalid.
func nullInt(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	n := int(ni.Int64)
	return &n
}

// scanUserRow scans a User from a single sql.Row.
func scanUserRow(row *sql.Row) (*models.User, error) {
	var u models.User
	var displayName sql.NullString
	if err := row.Scan(&u.PhoneNumber, &displayName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.DisplayName = nullStr(displayName)
	return &u, nil
}

// scanHouseholdContextRow scans a household joined with the member role.
func scanHouseholdContextRow(row *sql.Row) (*models.HouseholdContext, error) {
	var hc models.HouseholdContext
	var dietary, prefs, goals sql.NullString
	if err := row.Scan(&hc.ID, &hc.AdminPhone, &hc.HouseholdSize, &dietary, &prefs, &goals, &hc.CreatedAt, &hc.Role); err != nil {
		return nil, err
	}
	hc.DietaryRestrictions = nullStr(dietary)
	hc.Preferences = nullStr(prefs)
	hc.Goals = nullStr(goals)
	return &hc, nil
}

// scanMember scans a HouseholdMember from sql.Rows.
func scanMember(rows *sql.Rows) (models.HouseholdMember, error) {
	var m models.HouseholdMember
	var phone, name, relationship sql.NullString
	var age sql.NullInt64
	err := rows.Scan(&m.ID, &m.HouseholdID, &phone, &name, &age, &relationship, &m.Role, &m.CreatedAt)
	if err != nil {
		return m, err
	}
	m.PhoneNumber = nullStr(phone)
	m.Name = name.String
	m.Age = nullInt(age)
	m.Relationship = nullStr(relationship)
	return m, nil
}

// scanConversationRow scans a Conversation from a single sql.Row.
func scanConversationRow(row *sql.Row) (*models.Conversation, error) {
	var c models.Conversation
	var sessionID, intent sql.NullString
	var state []byte
	if err := row.Scan(&c.PhoneNumber, &sessionID, &intent, &state, &c.LastMessageAt); err != nil {
		return nil, err
	}
	c.SessionID = nullStr(sessionID)
	c.CurrentIntent = nullStr(intent)
	c.State = state
	return &c, nil
}
