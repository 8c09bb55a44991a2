package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/pawboard/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var isAdmin int
	err := scanner.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.HouseholdID, &u.Token, &isAdmin)
	if err != nil {
		return nil, err
	}
	u.IsAdmin = isAdmin != 0
	return &u, nil
}

const userCols = `id, username, email, password, household_id, token, is_admin`

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *UserStore) Create(u model.User) (*model.User, error) {
	if err := insertUser(s.db, u); err != nil {
		return nil, err
	}
	return s.GetByID(u.ID)
}

func insertUser(q querier, u model.User) error {
	_, err := q.Exec(
		`INSERT INTO users (id, username, email, password, household_id, token, is_admin)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.Password, u.HouseholdID, u.Token, boolInt(u.IsAdmin),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) GetByID(id string) (*model.User, error) {
	return getUserWhere(s.db, "get user", `id = ?`, id)
}

func (s *UserStore) GetByToken(token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}
	return getUserWhere(s.db, "get user by token", `token = ?`, token)
}

// GetByEmail matches case-insensitively.
func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	return getUserByEmail(s.db, email)
}

func getUserByEmail(q querier, email string) (*model.User, error) {
	if email == "" {
		return nil, nil
	}
	return getUserWhere(q, "get user by email", `email = ?`, email)
}

func getUserWhere(q querier, op, where string, arg any) (*model.User, error) {
	row := q.QueryRow(`SELECT `+userCols+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ListByHousehold returns members in registration order.
func (s *UserStore) ListByHousehold(householdID string) ([]model.User, error) {
	return listUsers(s.db, `WHERE household_id = ?`, householdID)
}

func (s *UserStore) List() ([]model.User, error) {
	return listUsers(s.db, "")
}

func listUsers(q querier, where string, args ...any) ([]model.User, error) {
	rows, err := q.Query(`SELECT `+userCols+` FROM users `+where+` ORDER BY seq ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func countMembers(q querier, householdID string) (int, error) {
	var n int
	err := q.QueryRow(`SELECT COUNT(*) FROM users WHERE household_id = ?`, householdID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}

func (s *UserStore) SetPassword(id, secret string) error {
	return s.setColumn(id, "set password", `password = ?`, secret)
}

func (s *UserStore) SetAdmin(id string, admin bool) error {
	return s.setColumn(id, "set admin", `is_admin = ?`, boolInt(admin))
}

func (s *UserStore) setColumn(id, op, set string, value any) error {
	result, err := s.db.Exec(`UPDATE users SET `+set+` WHERE id = ?`, value, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
