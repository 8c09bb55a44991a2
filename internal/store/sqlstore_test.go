package store_test

import (
	"path/filepath"
	"testing"

	"github.com/dukerupert/pawboard/internal/database"
	"github.com/dukerupert/pawboard/internal/store"
	"github.com/dukerupert/pawboard/internal/store/storetest"
)

func openSQLStore(t *testing.T) *store.SQLStore {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "pawboard.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	s := store.NewSQLStore(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return openSQLStore(t) })
}

func TestSQLStoreEnsureAdminsPromotesFirstMember(t *testing.T) {
	s := openSQLStore(t)
	storetest.Register(t, s, storetest.User("alice"), storetest.Household("h1", "inv1"))
	storetest.Join(t, s, storetest.User("bob"), "inv1")
	storetest.Register(t, s, storetest.User("carol"), storetest.Household("h2", "inv2"))

	if err := s.Users.SetAdmin("u-alice", false); err != nil {
		t.Fatalf("clear admin: %v", err)
	}

	promoted, err := s.EnsureAdmins()
	if err != nil {
		t.Fatalf("ensure admins: %v", err)
	}
	if len(promoted) != 1 || promoted[0].ID != "u-alice" || !promoted[0].IsAdmin {
		t.Fatalf("promoted = %+v, want alice", promoted)
	}

	u, err := s.GetUser("u-alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !u.IsAdmin {
		t.Error("alice should be admin after promotion")
	}
	bob, err := s.GetUser("u-bob")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if bob.IsAdmin {
		t.Error("bob should not be promoted")
	}
}
