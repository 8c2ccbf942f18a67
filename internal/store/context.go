package store

import (
	"fmt"

	"github.com/planeat/planeat/internal/models"
)

// BuildUserContext aggregates the user row, household with role, and ordered
// member list into one payload. An unknown phone yields {Exists: false},
// distinct from a known user with no household.
func BuildUserContext(s Store, phone string) (*models.UserContext, error) {
	user, err := s.GetUser(phone)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return &models.UserContext{Exists: false}, nil
	}

	ctx := &models.UserContext{Exists: true, User: user}

	household, err := s.GetHouseholdByPhone(phone)
	if err != nil {
		return nil, fmt.Errorf("failed to load household: %w", err)
	}
	if household == nil {
		return ctx, nil
	}
	ctx.Household = household

	members, err := s.ListHouseholdMembers(household.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load household members: %w", err)
	}
	ctx.Members = members
	return ctx, nil
}
