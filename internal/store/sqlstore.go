package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/dukerupert/pawboard/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// SQLStore implements Store on a migrated SQLite database.
type SQLStore struct {
	db *sql.DB

	// mu serializes multi-statement writes so SQLite never has to upgrade
	// two read transactions at once.
	mu sync.Mutex

	Households *HouseholdStore
	Users      *UserStore
	Events     *EventStore
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:         db,
		Households: NewHouseholdStore(db),
		Users:      NewUserStore(db),
		Events:     NewEventStore(db),
	}
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Snapshot(householdID string) (*Snapshot, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	h, err := getHousehold(tx, householdID)
	if err != nil {
		return nil, err
	}
	users, err := listUsers(tx, `WHERE household_id = ?`, householdID)
	if err != nil {
		return nil, err
	}
	events, err := listEvents(tx, `WHERE household_id = ?`, householdID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Household: h, Users: users, Events: events}, nil
}

// --- EventLog ---

func (s *SQLStore) ListEvents(householdID string) ([]model.Event, error) {
	return s.Events.ListByHousehold(householdID)
}

func (s *SQLStore) AllEvents() ([]model.Event, error) { return s.Events.List() }

func (s *SQLStore) GetEvent(id string) (*model.Event, error) { return s.Events.GetByID(id) }

func (s *SQLStore) AppendEvent(e model.Event) error { return s.Events.Create(e) }

func (s *SQLStore) DeleteEvent(id string) (bool, error) { return s.Events.Delete(id) }

func (s *SQLStore) DeleteEventsForHousehold(householdID string) (int, error) {
	return s.Events.DeleteByHousehold(householdID)
}

func (s *SQLStore) DeleteAllEvents() (int, error) { return s.Events.DeleteAll() }

// --- Directory ---

func (s *SQLStore) ListUsers(householdID string) ([]model.User, error) {
	return s.Users.ListByHousehold(householdID)
}

func (s *SQLStore) AllUsers() ([]model.User, error) { return s.Users.List() }

func (s *SQLStore) GetUser(id string) (*model.User, error) { return s.Users.GetByID(id) }

func (s *SQLStore) GetUserByToken(token string) (*model.User, error) {
	return s.Users.GetByToken(token)
}

func (s *SQLStore) GetUserByEmail(email string) (*model.User, error) {
	return s.Users.GetByEmail(email)
}

func (s *SQLStore) SetPassword(userID, secret string) error {
	return s.Users.SetPassword(userID, secret)
}

func (s *SQLStore) RegisterUser(u model.User, inviteToken string, newHousehold model.Household) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := getUserByEmail(tx, u.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("register user: %w", ErrEmailTaken)
	}

	if inviteToken != "" {
		h, err := getHouseholdByInvite(tx, inviteToken)
		if err != nil {
			return nil, err
		}
		if h == nil {
			return nil, fmt.Errorf("register user: %w", ErrInvalidInvite)
		}
		u.HouseholdID = h.ID
	} else {
		if err := insertHousehold(tx, newHousehold); err != nil {
			return nil, err
		}
		u.HouseholdID = newHousehold.ID
	}

	n, err := countMembers(tx, u.HouseholdID)
	if err != nil {
		return nil, err
	}
	u.IsAdmin = n == 0

	if err := insertUser(tx, u); err != nil {
		if isUniqueViolation(err, "users.email") {
			return nil, fmt.Errorf("register user: %w", ErrEmailTaken)
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit registration: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}

func (s *SQLStore) GetHousehold(id string) (*model.Household, error) {
	return s.Households.GetByID(id)
}

func (s *SQLStore) ListHouseholds() ([]model.Household, error) { return s.Households.List() }

func (s *SQLStore) UpdatePetProfile(householdID string, p model.PetProfile) (*model.Household, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, err := s.Households.UpdatePetProfile(householdID, p)
	if err != nil {
		return nil, fmt.Errorf("update pet profile: %w", err)
	}
	return h, nil
}

func (s *SQLStore) AddInviteToken(householdID, token string) (*model.Household, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, err := s.Households.AddInvite(householdID, token)
	if err != nil {
		return nil, fmt.Errorf("add invite token: %w", err)
	}
	return h, nil
}

func (s *SQLStore) ResetInviteTokens(householdID, token string) (*model.Household, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, err := s.Households.ResetInvites(householdID, token)
	if err != nil {
		return nil, fmt.Errorf("reset invite tokens: %w", err)
	}
	return h, nil
}

func (s *SQLStore) EnsureAdmins() ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	households, err := s.Households.List()
	if err != nil {
		return nil, fmt.Errorf("ensure admins: %w", err)
	}
	var promoted []model.User
	for _, h := range households {
		members, err := s.Users.ListByHousehold(h.ID)
		if err != nil {
			return nil, fmt.Errorf("ensure admins: %w", err)
		}
		if len(members) == 0 || hasAdmin(members) {
			continue
		}
		first := members[0]
		if err := s.Users.SetAdmin(first.ID, true); err != nil {
			return nil, fmt.Errorf("ensure admins: %w", err)
		}
		first.IsAdmin = true
		promoted = append(promoted, first)
	}
	return promoted, nil
}

func hasAdmin(users []model.User) bool {
	for _, u := range users {
		if u.IsAdmin {
			return true
		}
	}
	return false
}
