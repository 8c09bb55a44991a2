// Package store defines the persistence contract for households, users and
// care events, and implements it on SQLite. The docstore subpackage
// implements it on a single JSON document.
package store

import (
	"errors"

	"github.com/dukerupert/pawboard/internal/model"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrEmailTaken    = errors.New("email already exists")
	ErrInvalidInvite = errors.New("invalid invite token")
)

// Snapshot is one household's state read at a single point in time.
type Snapshot struct {
	Household *model.Household
	Users     []model.User
	Events    []model.Event
}

// EventLog is the append-only collection of care events. Listing returns
// events in store order, which is stable between calls.
type EventLog interface {
	ListEvents(householdID string) ([]model.Event, error)
	AllEvents() ([]model.Event, error)
	GetEvent(id string) (*model.Event, error)
	AppendEvent(e model.Event) error
	DeleteEvent(id string) (bool, error)
	DeleteEventsForHousehold(householdID string) (int, error)
	DeleteAllEvents() (int, error)
}

// Directory holds users and households. Lookups return (nil, nil) when the
// record does not exist.
type Directory interface {
	ListUsers(householdID string) ([]model.User, error)
	AllUsers() ([]model.User, error)
	GetUser(id string) (*model.User, error)
	GetUserByToken(token string) (*model.User, error)
	GetUserByEmail(email string) (*model.User, error)
	SetPassword(userID, secret string) error

	// RegisterUser adds u to the household owning inviteToken, or to
	// newHousehold when inviteToken is empty. The user becomes admin when
	// the household had no members.
	RegisterUser(u model.User, inviteToken string, newHousehold model.Household) (*model.User, error)

	GetHousehold(id string) (*model.Household, error)
	ListHouseholds() ([]model.Household, error)
	UpdatePetProfile(householdID string, p model.PetProfile) (*model.Household, error)
	AddInviteToken(householdID, token string) (*model.Household, error)
	ResetInviteTokens(householdID, token string) (*model.Household, error)

	// EnsureAdmins promotes the first member of every household that has
	// members but no admin, returning the promoted users.
	EnsureAdmins() ([]model.User, error)
}

type Store interface {
	EventLog
	Directory
	Snapshot(householdID string) (*Snapshot, error)
	Close() error
}
