// Package app holds the startup wiring shared by the server and the
// maintenance CLI.
package app

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukerupert/pawboard/internal/config"
	"github.com/dukerupert/pawboard/internal/database"
	"github.com/dukerupert/pawboard/internal/store"
	"github.com/dukerupert/pawboard/internal/store/docstore"
)

// OpenStore opens the configured backend. db is nil for the JSON store.
func OpenStore(cfg *config.Config, logger *slog.Logger) (st store.Store, db *sql.DB, err error) {
	switch cfg.Store {
	case config.StoreSQLite:
		db, err = database.Open(cfg.DataPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		return store.NewSQLStore(db), db, nil
	default:
		ds, err := docstore.Open(cfg.DataPath, logger.With("component", "docstore"))
		if err != nil {
			return nil, nil, fmt.Errorf("open document store: %w", err)
		}
		return ds, nil, nil
	}
}

// PromoteAdmins repairs households left without an admin and logs each
// promotion.
func PromoteAdmins(st store.Store, logger *slog.Logger) ([]string, error) {
	promoted, err := st.EnsureAdmins()
	if err != nil {
		return nil, fmt.Errorf("ensure admins: %w", err)
	}
	ids := make([]string, 0, len(promoted))
	for _, u := range promoted {
		logger.Info("promoted household admin",
			"user_id", u.ID,
			"username", u.Username,
			"household_id", u.HouseholdID,
		)
		ids = append(ids, u.ID)
	}
	return ids, nil
}
