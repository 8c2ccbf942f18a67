// Package store provides storage backends for PlanEat.
//
// This file implements an in-memory store used by unit tests and as a
// fallback when no database is configured.
package store

import (
	"sync"
	"time"

	"github.com/planeat/planeat/internal/models"
)

// InMemoryStore keeps all data in process memory. It implements the same
// semantics as the SQL backends, including transactional household
// creation. Failure injection fields let tests exercise error paths.
type InMemoryStore struct {
	mu              sync.Mutex
	users           map[string]models.User
	households      map[int64]models.Household
	members         map[int64][]models.HouseholdMember
	roles           map[string]int64 // phone -> household id
	conversations   map[string]models.Conversation
	nextHouseholdID int64
	nextMemberID    int64

	// NowFunc supplies timestamps; defaults to time.Now.
	NowFunc func() time.Time

	// Failure injection for tests. When set, the matching operation fails
	// with the given error.
	FailGetConversation error
	FailSaveState       error
	FailGetUser         error
	FailMemberInsert    error
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:         make(map[string]models.User),
		households:    make(map[int64]models.Household),
		members:       make(map[int64][]models.HouseholdMember),
		roles:         make(map[string]int64),
		conversations: make(map[string]models.Conversation),
		NowFunc:       time.Now,
	}
}

func (s *InMemoryStore) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now()
}

// GetUser returns the user for the phone number, or nil if unregistered.
func (s *InMemoryStore) GetUser(phone string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailGetUser != nil {
		return nil, s.FailGetUser
	}
	u, ok := s.users[phone]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// UpsertUser inserts the user or updates its display name.
func (s *InMemoryStore) UpsertUser(phone string, displayName *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertUserLocked(phone, displayName)
	return nil
}

// EnsureUser inserts the user if missing, leaving existing rows untouched.
func (s *InMemoryStore) EnsureUser(phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[phone]; !ok {
		now := s.now()
		s.users[phone] = models.User{PhoneNumber: phone, CreatedAt: now, UpdatedAt: now}
	}
	return nil
}

func (s *InMemoryStore) upsertUserLocked(phone string, displayName *string) {
	now := s.now()
	u, ok := s.users[phone]
	if !ok {
		u = models.User{PhoneNumber: phone, CreatedAt: now}
	}
	u.DisplayName = displayName
	u.UpdatedAt = now
	s.users[phone] = u
}

// CreateHousehold registers the admin, inserts the household, and adds the
// admin member. All effects are discarded if the member insert fails.
func (s *InMemoryStore) CreateHousehold(p models.CreateHouseholdParams) (*models.Household, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Rollback path: fail before any state is touched, matching the SQL
	// backends where the transaction discards the household insert.
	if s.FailMemberInsert != nil {
		return nil, s.FailMemberInsert
	}

	s.upsertUserLocked(p.AdminPhone, p.DisplayName)

	size := p.HouseholdSize
	if size <= 0 {
		size = 1
	}
	s.nextHouseholdID++
	h := models.Household{
		ID:                  s.nextHouseholdID,
		AdminPhone:          p.AdminPhone,
		HouseholdSize:       size,
		DietaryRestrictions: p.DietaryRestrictions,
		Preferences:         p.Preferences,
		Goals:               p.Goals,
		CreatedAt:           s.now(),
	}
	s.households[h.ID] = h

	s.nextMemberID++
	admin := p.AdminPhone
	name := ""
	if p.DisplayName != nil {
		name = *p.DisplayName
	}
	s.members[h.ID] = append(s.members[h.ID], models.HouseholdMember{
		ID:          s.nextMemberID,
		HouseholdID: h.ID,
		PhoneNumber: &admin,
		Name:        name,
		Role:        "admin",
		CreatedAt:   s.now(),
	})
	s.roles[p.AdminPhone] = h.ID
	return &h, nil
}

// AddHouseholdMembers appends members to an existing household.
func (s *InMemoryStore) AddHouseholdMembers(householdID int64, members []models.MemberParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailMemberInsert != nil {
		return s.FailMemberInsert
	}
	if _, ok := s.households[householdID]; !ok {
		return models.ErrInvalidHouseholdID
	}
	for _, m := range members {
		if m.PhoneNumber != nil && *m.PhoneNumber != "" {
			n := m.Name
			s.upsertUserLocked(*m.PhoneNumber, &n)
			if _, taken := s.roles[*m.PhoneNumber]; !taken {
				s.roles[*m.PhoneNumber] = householdID
			}
		}
		role := m.Role
		if role == "" {
			role = "member"
		}
		s.nextMemberID++
		s.members[householdID] = append(s.members[householdID], models.HouseholdMember{
			ID:           s.nextMemberID,
			HouseholdID:  householdID,
			PhoneNumber:  m.PhoneNumber,
			Name:         m.Name,
			Age:          m.Age,
			Relationship: m.Relationship,
			Role:         role,
			CreatedAt:    s.now(),
		})
	}
	return nil
}

// GetHouseholdByPhone returns the household the phone belongs to joined with
// the member's role, or nil if the phone is in no household.
func (s *InMemoryStore) GetHouseholdByPhone(phone string) (*models.HouseholdContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.roles[phone]
	if !ok {
		return nil, nil
	}
	h, ok := s.households[id]
	if !ok {
		return nil, nil
	}
	role := "member"
	for _, m := range s.members[id] {
		if m.PhoneNumber != nil && *m.PhoneNumber == phone {
			role = m.Role
			break
		}
	}
	return &models.HouseholdContext{Household: h, Role: role}, nil
}

// ListHouseholdMembers returns members ordered admins first, then by
// insertion order.
func (s *InMemoryStore) ListHouseholdMembers(householdID int64) ([]models.HouseholdMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var admins, rest []models.HouseholdMember
	for _, m := range s.members[householdID] {
		if m.Role == "admin" {
			admins = append(admins, m)
		} else {
			rest = append(rest, m)
		}
	}
	return append(admins, rest...), nil
}

// GetConversation returns the continuity record for the phone, or nil if
// none exists.
func (s *InMemoryStore) GetConversation(phone string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailGetConversation != nil {
		return nil, s.FailGetConversation
	}
	c, ok := s.conversations[phone]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// PutConversation replaces the continuity record verbatim. Used by tests
// to seed rows with controlled timestamps.
func (s *InMemoryStore) PutConversation(c models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.PhoneNumber] = c
}

// SaveConversationState upserts the serialized history and intent,
// refreshing last_message_at.
func (s *InMemoryStore) SaveConversationState(phone string, intent *string, state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaveState != nil {
		return s.FailSaveState
	}
	if _, ok := s.users[phone]; !ok {
		now := s.now()
		s.users[phone] = models.User{PhoneNumber: phone, CreatedAt: now, UpdatedAt: now}
	}
	if len(state) == 0 {
		state = []byte("{}")
	}
	c := s.conversations[phone]
	c.PhoneNumber = phone
	if intent != nil {
		c.CurrentIntent = intent
	}
	c.State = state
	c.LastMessageAt = s.now()
	s.conversations[phone] = c
	return nil
}

// SaveSession upserts the engine session id for the phone.
func (s *InMemoryStore) SaveSession(phone, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[phone]; !ok {
		now := s.now()
		s.users[phone] = models.User{PhoneNumber: phone, CreatedAt: now, UpdatedAt: now}
	}
	c := s.conversations[phone]
	c.PhoneNumber = phone
	c.SessionID = &sessionID
	c.LastMessageAt = s.now()
	s.conversations[phone] = c
	return nil
}

// Close releases nothing for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
