package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/pawboard/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	err := scanner.Scan(&e.ID, &e.HouseholdID, &e.UserID, &e.Type, &e.Timestamp)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const eventCols = `id, household_id, user_id, type, timestamp`

func (s *EventStore) Create(e model.Event) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	_, err := s.db.Exec(
		`INSERT INTO events (id, household_id, user_id, type, timestamp) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.HouseholdID, e.UserID, e.Type, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *EventStore) GetByID(id string) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListByHousehold returns the household's events in insertion order.
func (s *EventStore) ListByHousehold(householdID string) ([]model.Event, error) {
	return listEvents(s.db, `WHERE household_id = ?`, householdID)
}

func (s *EventStore) List() ([]model.Event, error) {
	return listEvents(s.db, "")
}

func listEvents(q querier, where string, args ...any) ([]model.Event, error) {
	rows, err := q.Query(`SELECT `+eventCols+` FROM events `+where+` ORDER BY seq ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) Delete(id string) (bool, error) {
	n, err := s.deleteWhere(`WHERE id = ?`, id)
	return n > 0, err
}

func (s *EventStore) DeleteByHousehold(householdID string) (int, error) {
	return s.deleteWhere(`WHERE household_id = ?`, householdID)
}

func (s *EventStore) DeleteAll() (int, error) {
	return s.deleteWhere("")
}

func (s *EventStore) deleteWhere(where string, args ...any) (int, error) {
	result, err := s.db.Exec(`DELETE FROM events `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	return int(n), nil
}
