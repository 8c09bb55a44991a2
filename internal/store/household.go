package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/pawboard/internal/model"
)

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	err := scanner.Scan(&h.ID, &h.DogName, &h.DogAgeMonths, &h.DogPhotoURL)
	if err != nil {
		return nil, err
	}
	h.InviteTokens = []string{}
	return &h, nil
}

const householdCols = `id, dog_name, dog_age_months, dog_photo_url`

func (s *HouseholdStore) Create(h model.Household) (*model.Household, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertHousehold(tx, h); err != nil {
		return nil, err
	}
	created, err := getHousehold(tx, h.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit household: %w", err)
	}
	return created, nil
}

func insertHousehold(q querier, h model.Household) error {
	_, err := q.Exec(
		`INSERT INTO households (id, dog_name, dog_age_months, dog_photo_url) VALUES (?, ?, ?, ?)`,
		h.ID, h.DogName, h.DogAgeMonths, h.DogPhotoURL,
	)
	if err != nil {
		return fmt.Errorf("insert household: %w", err)
	}
	for _, token := range h.InviteTokens {
		if err := insertInvite(q, h.ID, token); err != nil {
			return err
		}
	}
	return nil
}

func insertInvite(q querier, householdID, token string) error {
	_, err := q.Exec(
		`INSERT INTO household_invites (household_id, token) VALUES (?, ?)`,
		householdID, token,
	)
	if err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

func (s *HouseholdStore) GetByID(id string) (*model.Household, error) {
	return getHousehold(s.db, id)
}

func getHousehold(q querier, id string) (*model.Household, error) {
	row := q.QueryRow(`SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	tokens, err := listInvites(q, id)
	if err != nil {
		return nil, err
	}
	h.InviteTokens = tokens
	return h, nil
}

// GetByInvite returns the household holding token, or nil.
func (s *HouseholdStore) GetByInvite(token string) (*model.Household, error) {
	return getHouseholdByInvite(s.db, token)
}

func getHouseholdByInvite(q querier, token string) (*model.Household, error) {
	var id string
	err := q.QueryRow(`SELECT household_id FROM household_invites WHERE token = ?`, token).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household by invite: %w", err)
	}
	return getHousehold(q, id)
}

func listInvites(q querier, householdID string) ([]string, error) {
	rows, err := q.Query(
		`SELECT token FROM household_invites WHERE household_id = ? ORDER BY seq ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (s *HouseholdStore) List() ([]model.Household, error) {
	rows, err := s.db.Query(`SELECT ` + householdCols + ` FROM households ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list households: %w", err)
	}
	households := []model.Household{}
	index := map[string]int{}
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan household: %w", err)
		}
		index[h.ID] = len(households)
		households = append(households, *h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list households: %w", err)
	}

	invites, err := s.db.Query(`SELECT household_id, token FROM household_invites ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer invites.Close()
	for invites.Next() {
		var householdID, token string
		if err := invites.Scan(&householdID, &token); err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		if i, ok := index[householdID]; ok {
			households[i].InviteTokens = append(households[i].InviteTokens, token)
		}
	}
	return households, invites.Err()
}

func (s *HouseholdStore) UpdatePetProfile(id string, p model.PetProfile) (*model.Household, error) {
	h, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrNotFound
	}
	p.Apply(h)
	_, err = s.db.Exec(
		`UPDATE households SET dog_name = ?, dog_age_months = ?, dog_photo_url = ? WHERE id = ?`,
		h.DogName, h.DogAgeMonths, h.DogPhotoURL, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update household: %w", err)
	}
	return s.GetByID(id)
}

func (s *HouseholdStore) AddInvite(id, token string) (*model.Household, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	h, err := getHousehold(tx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrNotFound
	}
	if err := insertInvite(tx, id, token); err != nil {
		return nil, err
	}
	h.InviteTokens = append(h.InviteTokens, token)
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit invite: %w", err)
	}
	return h, nil
}

// ResetInvites replaces every invite token of the household with token.
func (s *HouseholdStore) ResetInvites(id, token string) (*model.Household, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	h, err := getHousehold(tx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrNotFound
	}
	if _, err := tx.Exec(`DELETE FROM household_invites WHERE household_id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete invites: %w", err)
	}
	if err := insertInvite(tx, id, token); err != nil {
		return nil, err
	}
	h.InviteTokens = []string{token}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit invites: %w", err)
	}
	return h, nil
}
