package store

import (
	"path/filepath"
	"testing"

	"github.com/dukerupert/pawboard/internal/database"
	"github.com/dukerupert/pawboard/internal/model"
)

func setupHouseholdTestDB(t *testing.T) (*HouseholdStore, *UserStore) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewHouseholdStore(db), NewUserStore(db)
}

func TestHouseholdCreate(t *testing.T) {
	hs, _ := setupHouseholdTestDB(t)

	h, err := hs.Create(model.Household{ID: "h1", DogName: "Rex", DogAgeMonths: 8, InviteTokens: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	if h.DogName != "Rex" {
		t.Errorf("dogName = %q, want %q", h.DogName, "Rex")
	}
	if h.DogAgeMonths != 8 {
		t.Errorf("dogAgeMonths = %d, want 8", h.DogAgeMonths)
	}
	if len(h.InviteTokens) != 2 || h.InviteTokens[0] != "a" || h.InviteTokens[1] != "b" {
		t.Errorf("inviteTokens = %v, want [a b]", h.InviteTokens)
	}
}

func TestHouseholdGetByIDNotFound(t *testing.T) {
	hs, _ := setupHouseholdTestDB(t)

	h, err := hs.GetByID("missing")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if h != nil {
		t.Error("expected nil for nonexistent household")
	}
}

func TestHouseholdGetByInvite(t *testing.T) {
	hs, _ := setupHouseholdTestDB(t)

	if _, err := hs.Create(model.Household{ID: "h1", InviteTokens: []string{"tok"}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	h, err := hs.GetByInvite("tok")
	if err != nil {
		t.Fatalf("get by invite: %v", err)
	}
	if h == nil || h.ID != "h1" {
		t.Errorf("household = %+v, want h1", h)
	}

	h, err = hs.GetByInvite("other")
	if err != nil {
		t.Fatalf("get by invite: %v", err)
	}
	if h != nil {
		t.Error("expected nil for unknown invite")
	}
}

func TestHouseholdListGroupsInvites(t *testing.T) {
	hs, _ := setupHouseholdTestDB(t)

	hs.Create(model.Household{ID: "h1", InviteTokens: []string{"a"}})
	hs.Create(model.Household{ID: "h2", InviteTokens: []string{"b"}})
	if _, err := hs.AddInvite("h1", "c"); err != nil {
		t.Fatalf("add invite: %v", err)
	}

	list, err := hs.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].ID != "h1" || len(list[0].InviteTokens) != 2 || list[0].InviteTokens[1] != "c" {
		t.Errorf("list[0] = %+v", list[0])
	}
	if list[1].ID != "h2" || len(list[1].InviteTokens) != 1 {
		t.Errorf("list[1] = %+v", list[1])
	}
}

func TestHouseholdInviteTokenIsUnique(t *testing.T) {
	hs, _ := setupHouseholdTestDB(t)

	hs.Create(model.Household{ID: "h1", InviteTokens: []string{"a"}})
	if _, err := hs.Create(model.Household{ID: "h2", InviteTokens: []string{"a"}}); err == nil {
		t.Fatal("expected error for duplicate invite token, got nil")
	}
	h, err := hs.GetByID("h2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if h != nil {
		t.Error("household insert should roll back with its invites")
	}
}
