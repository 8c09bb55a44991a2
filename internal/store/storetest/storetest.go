// Package storetest holds behavior shared by every store.Store
// implementation. Each backend runs it from its own tests.
package storetest

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dukerupert/pawboard/internal/model"
	"github.com/dukerupert/pawboard/internal/store"
)

// Run exercises a fresh, empty store returned by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"RegisterFirstMemberIsAdmin", testRegisterFirstMemberIsAdmin},
		{"RegisterWithInvite", testRegisterWithInvite},
		{"RegisterEmailTaken", testRegisterEmailTaken},
		{"RegisterInvalidInvite", testRegisterInvalidInvite},
		{"UserLookups", testUserLookups},
		{"SetPassword", testSetPassword},
		{"EventsKeepInsertionOrder", testEventsKeepInsertionOrder},
		{"AppendRejectsInvalidEvent", testAppendRejectsInvalidEvent},
		{"DeleteEvent", testDeleteEvent},
		{"DeleteEventsForHousehold", testDeleteEventsForHousehold},
		{"DeleteAllEvents", testDeleteAllEvents},
		{"PetProfile", testPetProfile},
		{"InviteTokens", testInviteTokens},
		{"EnsureAdmins", testEnsureAdmins},
		{"Snapshot", testSnapshot},
		{"ConcurrentAppends", testConcurrentAppends},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

// Household returns a household with a single invite token.
func Household(id, invite string) model.Household {
	return model.Household{ID: id, DogName: "Rex", InviteTokens: []string{invite}}
}

// User returns a user whose token and id derive from name.
func User(name string) model.User {
	return model.User{
		ID:       "u-" + name,
		Username: name,
		Email:    name + "@example.com",
		Password: "secret",
		Token:    "tok-" + name,
	}
}

// Register creates a new household h and its first member.
func Register(t *testing.T, s store.Store, u model.User, h model.Household) *model.User {
	t.Helper()
	got, err := s.RegisterUser(u, "", h)
	if err != nil {
		t.Fatalf("register %s: %v", u.Email, err)
	}
	return got
}

// Join registers u into the household that owns invite.
func Join(t *testing.T, s store.Store, u model.User, invite string) *model.User {
	t.Helper()
	got, err := s.RegisterUser(u, invite, model.Household{})
	if err != nil {
		t.Fatalf("join %s: %v", u.Email, err)
	}
	return got
}

// Event builds a valid event for u at ts.
func Event(id string, u *model.User, eventType string, ts float64) model.Event {
	return model.Event{ID: id, HouseholdID: u.HouseholdID, UserID: u.ID, Type: eventType, Timestamp: ts}
}

func testRegisterFirstMemberIsAdmin(t *testing.T, s store.Store) {
	u := Register(t, s, User("alice"), Household("h1", "inv1"))
	if !u.IsAdmin {
		t.Error("first member should be admin")
	}
	if u.HouseholdID != "h1" {
		t.Errorf("householdID = %q, want %q", u.HouseholdID, "h1")
	}

	h, err := s.GetHousehold("h1")
	if err != nil {
		t.Fatalf("get household: %v", err)
	}
	if h == nil {
		t.Fatal("household not created")
	}
	if h.DogName != "Rex" {
		t.Errorf("dogName = %q, want %q", h.DogName, "Rex")
	}
}

func testRegisterWithInvite(t *testing.T, s store.Store) {
	Register(t, s, User("alice"), Household("h1", "inv1"))
	bob := Join(t, s, User("bob"), "inv1")
	if bob.IsAdmin {
		t.Error("second member should not be admin")
	}
	if bob.HouseholdID != "h1" {
		t.Errorf("householdID = %q, want %q", bob.HouseholdID, "h1")
	}

	members, err := s.ListUsers("h1")
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(members) != 2 || members[0].ID != "u-alice" || members[1].ID != "u-bob" {
		t.Errorf("members = %+v, want alice then bob", members)
	}

	households, err := s.ListHouseholds()
	if err != nil {
		t.Fatalf("list households: %v", err)
	}
	if len(households) != 1 {
		t.Errorf("households = %d, want 1", len(households))
	}
}

func testRegisterEmailTaken(t *testing.T, s store.Store) {
	Register(t, s, User("alice"), Household("h1", "inv1"))

	dup := User("other")
	dup.Email = "ALICE@example.com"
	_, err := s.RegisterUser(dup, "", Household("h2", "inv2"))
	if !errors.Is(err, store.ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}

	h, err := s.GetHousehold("h2")
	if err != nil {
		t.Fatalf("get household: %v", err)
	}
	if h != nil {
		t.Error("failed registration should not create a household")
	}
}

func testRegisterInvalidInvite(t *testing.T, s store.Store) {
	Register(t, s, User("alice"), Household("h1", "inv1"))

	_, err := s.RegisterUser(User("bob"), "nope", model.Household{})
	if !errors.Is(err, store.ErrInvalidInvite) {
		t.Fatalf("err = %v, want ErrInvalidInvite", err)
	}
	u, err := s.GetUser("u-bob")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u != nil {
		t.Error("user should not be stored")
	}
}

func testUserLookups(t *testing.T, s store.Store) {
	Register(t, s, User("alice"), Household("h1", "inv1"))

	u, err := s.GetUserByToken("tok-alice")
	if err != nil {
		t.Fatalf("by token: %v", err)
	}
	if u == nil || u.ID != "u-alice" {
		t.Errorf("by token = %+v, want alice", u)
	}

	u, err = s.GetUserByEmail("Alice@Example.com")
	if err != nil {
		t.Fatalf("by email: %v", err)
	}
	if u == nil || u.ID != "u-alice" {
		t.Errorf("by email = %+v, want alice", u)
	}

	for _, token := range []string{"", "missing"} {
		u, err := s.GetUserByToken(token)
		if err != nil {
			t.Fatalf("by token %q: %v", token, err)
		}
		if u != nil {
			t.Errorf("by token %q = %+v, want nil", token, u)
		}
	}

	u, err = s.GetUser("missing")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if u != nil {
		t.Error("expected nil for missing user")
	}

	all, err := s.AllUsers()
	if err != nil {
		t.Fatalf("all users: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("all users = %d, want 1", len(all))
	}
}

func testSetPassword(t *testing.T, s store.Store) {
	Register(t, s, User("alice"), Household("h1", "inv1"))

	if err := s.SetPassword("u-alice", "$argon2id$new"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	u, err := s.GetUser("u-alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Password != "$argon2id$new" {
		t.Errorf("password = %q, want %q", u.Password, "$argon2id$new")
	}

	if err := s.SetPassword("missing", "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func testEventsKeepInsertionOrder(t *testing.T, s store.Store) {
	alice := Register(t, s, User("alice"), Household("h1", "inv1"))
	carol := Register(t, s, User("carol"), Household("h2", "inv2"))

	// Out of timestamp order on purpose.
	want := []model.Event{
		Event("e1", alice, model.EventPee, 300.5),
		Event("e2", alice, model.EventPoop, 100.25),
		Event("e3", alice, model.EventWalkMorning, 200),
	}
	for _, e := range want {
		if err := s.AppendEvent(e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.AppendEvent(Event("c1", carol, model.EventPee, 50)); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.ListEvents("h1")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("events = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	all, err := s.AllEvents()
	if err != nil {
		t.Fatalf("all events: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("all events = %d, want 4", len(all))
	}

	e, err := s.GetEvent("e2")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if e == nil || *e != want[1] {
		t.Errorf("get event = %+v, want %+v", e, want[1])
	}
	e, err = s.GetEvent("missing")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if e != nil {
		t.Error("expected nil for missing event")
	}
}

func testAppendRejectsInvalidEvent(t *testing.T, s store.Store) {
	alice := Register(t, s, User("alice"), Household("h1", "inv1"))

	bad := Event("e1", alice, "", 100)
	if err := s.AppendEvent(bad); !errors.Is(err, model.ErrInvalidEvent) {
		t.Errorf("err = %v, want ErrInvalidEvent", err)
	}
	events, err := s.ListEvents("h1")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events = %d, want 0", len(events))
	}
}

func testDeleteEvent(t *testing.T, s store.Store) {
	alice := Register(t, s, User("alice"), Household("h1", "inv1"))
	for i, typ := range []string{model.EventPee, model.EventPoop, model.EventPee} {
		if err := s.AppendEvent(Event(fmt.Sprintf("e%d", i), alice, typ, float64(100+i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	ok, err := s.DeleteEvent("e1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !ok {
		t.Error("delete existing event reported false")
	}
	ok, err = s.DeleteEvent("e1")
	if err != nil {
		t.Fatalf("delete again: %v", err)
	}
	if ok {
		t.Error("delete missing event reported true")
	}

	events, err := s.ListEvents("h1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 || events[0].ID != "e0" || events[1].ID != "e2" {
		t.Errorf("events = %+v, want e0, e2", events)
	}
}

func testDeleteEventsForHousehold(t *testing.T, s store.Store) {
	alice := Register(t, s, User("alice"), Household("h1", "inv1"))
	carol := Register(t, s, User("carol"), Household("h2", "inv2"))
	for _, e := range []model.Event{
		Event("a1", alice, model.EventPee, 1),
		Event("a2", alice, model.EventPoop, 2),
		Event("c1", carol, model.EventPee, 3),
	} {
		if err := s.AppendEvent(e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	n, err := s.DeleteEventsForHousehold("h1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	n, err = s.DeleteEventsForHousehold("h1")
	if err != nil {
		t.Fatalf("delete again: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted again = %d, want 0", n)
	}

	left, err := s.ListEvents("h2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left) != 1 {
		t.Errorf("other household events = %d, want 1", len(left))
	}
}

func testDeleteAllEvents(t *testing.T, s store.Store) {
	alice := Register(t, s, User("alice"), Household("h1", "inv1"))
	carol := Register(t, s, User("carol"), Household("h2", "inv2"))
	s.AppendEvent(Event("a1", alice, model.EventPee, 1))
	s.AppendEvent(Event("c1", carol, model.EventPee, 2))

	n, err := s.DeleteAllEvents()
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	all, err := s.AllEvents()
	if err != nil {
		t.Fatalf("all events: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("remaining = %d, want 0", len(all))
	}

	users, err := s.AllUsers()
	if err != nil {
		t.Fatalf("all users: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("users = %d, want 2", len(users))
	}
}

func testPetProfile(t *testing.T, s store.Store) {
	Register(t, s, User("alice"), Household("h1", "inv1"))

	name := "Bamba"
	age := 14
	h, err := s.UpdatePetProfile("h1", model.PetProfile{DogName: &name, DogAgeMonths: &age})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if h.DogName != "Bamba" || h.DogAgeMonths != 14 {
		t.Errorf("household = %+v, want Bamba aged 14", h)
	}

	photo := "https://example.com/bamba.jpg"
	h, err = s.UpdatePetProfile("h1", model.PetProfile{DogPhotoURL: &photo})
	if err != nil {
		t.Fatalf("update photo: %v", err)
	}
	if h.DogName != "Bamba" || h.DogPhotoURL != photo {
		t.Errorf("household = %+v, want name kept and photo set", h)
	}

	stored, err := s.GetHousehold("h1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.DogAgeMonths != 14 || stored.DogPhotoURL != photo {
		t.Errorf("stored = %+v", stored)
	}

	if _, err := s.UpdatePetProfile("missing", model.PetProfile{DogName: &name}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func testInviteTokens(t *testing.T, s store.Store) {
	Register(t, s, User("alice"), Household("h1", "inv1"))

	h, err := s.AddInviteToken("h1", "inv2")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(h.InviteTokens) != 2 || h.InviteTokens[0] != "inv1" || h.InviteTokens[1] != "inv2" {
		t.Errorf("tokens = %v, want [inv1 inv2]", h.InviteTokens)
	}
	Join(t, s, User("bob"), "inv2")

	h, err = s.ResetInviteTokens("h1", "inv3")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(h.InviteTokens) != 1 || h.InviteTokens[0] != "inv3" {
		t.Errorf("tokens = %v, want [inv3]", h.InviteTokens)
	}

	if _, err := s.RegisterUser(User("carol"), "inv1", model.Household{}); !errors.Is(err, store.ErrInvalidInvite) {
		t.Errorf("old invite: err = %v, want ErrInvalidInvite", err)
	}
	Join(t, s, User("dave"), "inv3")

	if _, err := s.AddInviteToken("missing", "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func testEnsureAdmins(t *testing.T, s store.Store) {
	Register(t, s, User("alice"), Household("h1", "inv1"))
	Join(t, s, User("bob"), "inv1")

	promoted, err := s.EnsureAdmins()
	if err != nil {
		t.Fatalf("ensure admins: %v", err)
	}
	if len(promoted) != 0 {
		t.Errorf("promoted = %+v, want none", promoted)
	}

	members, err := s.ListUsers("h1")
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	admins := 0
	for _, u := range members {
		if u.IsAdmin {
			admins++
		}
	}
	if admins != 1 {
		t.Errorf("admins = %d, want 1", admins)
	}
}

func testSnapshot(t *testing.T, s store.Store) {
	alice := Register(t, s, User("alice"), Household("h1", "inv1"))
	bob := Join(t, s, User("bob"), "inv1")
	carol := Register(t, s, User("carol"), Household("h2", "inv2"))
	s.AppendEvent(Event("a1", alice, model.EventPee, 1))
	s.AppendEvent(Event("b1", bob, model.EventPoop, 2))
	s.AppendEvent(Event("c1", carol, model.EventPee, 3))

	snap, err := s.Snapshot("h1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Household == nil || snap.Household.ID != "h1" {
		t.Errorf("household = %+v, want h1", snap.Household)
	}
	if len(snap.Users) != 2 {
		t.Errorf("users = %d, want 2", len(snap.Users))
	}
	if len(snap.Events) != 2 || snap.Events[0].ID != "a1" || snap.Events[1].ID != "b1" {
		t.Errorf("events = %+v, want a1, b1", snap.Events)
	}

	snap, err = s.Snapshot("missing")
	if err != nil {
		t.Fatalf("snapshot missing: %v", err)
	}
	if snap.Household != nil || len(snap.Users) != 0 || len(snap.Events) != 0 {
		t.Errorf("snapshot of missing household = %+v, want empty", snap)
	}
}

func testConcurrentAppends(t *testing.T, s store.Store) {
	alice := Register(t, s, User("alice"), Household("h1", "inv1"))

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.AppendEvent(Event(fmt.Sprintf("e%02d", i), alice, model.EventPee, float64(i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("append: %v", err)
		}
	}

	events, err := s.ListEvents("h1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != n {
		t.Errorf("events = %d, want %d", len(events), n)
	}
}
