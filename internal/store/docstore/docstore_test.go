package docstore

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukerupert/pawboard/internal/model"
	"github.com/dukerupert/pawboard/internal/store"
	"github.com/dukerupert/pawboard/internal/store/storetest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s, path
}

func TestDocStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, _ := openTestStore(t)
		return s
	})
}

const sampleDocument = `{
  "households": [
    {
      "id": "h1",
      "dogName": "במבה",
      "inviteTokens": [
        "inv1"
      ],
      "dogAgeMonths": 7,
      "dogPhotoUrl": ""
    }
  ],
  "users": [
    {
      "id": "u1",
      "username": "alice",
      "email": "alice@example.com",
      "password": "secret",
      "householdId": "h1",
      "token": "tok1",
      "isAdmin": false
    },
    {
      "id": "u2",
      "username": "bob",
      "email": "bob@example.com",
      "password": "secret",
      "householdId": "h1",
      "token": "tok2",
      "isAdmin": false
    }
  ],
  "events": [
    {
      "id": "e1",
      "householdId": "h1",
      "userId": "u1",
      "type": "pee",
      "timestamp": 1766390539.123456
    },
    {
      "id": "e2",
      "householdId": "h1",
      "userId": "u2",
      "type": "walk_morning",
      "timestamp": 1766390600
    }
  ]
}`

func TestDocumentRoundTripIsByteIdentical(t *testing.T) {
	doc, err := Decode([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(out, []byte(sampleDocument)) {
		t.Errorf("round trip differs:\n%s", out)
	}
}

func TestDecodeMissingCollections(t *testing.T) {
	doc, err := Decode([]byte(`{"users": []}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Households == nil || doc.Events == nil {
		t.Error("missing collections should decode as empty slices")
	}
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	s, path := openTestStore(t)

	events, err := s.AllEvents()
	if err != nil {
		t.Fatalf("all events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events = %d, want 0", len(events))
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("reading should not create the file")
	}
}

func TestCorruptFileServesEmptyAndIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	users, err := s.AllUsers()
	if err != nil {
		t.Fatalf("all users: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("users = %d, want 0", len(users))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "{not json" {
		t.Error("corrupt file should be left untouched by reads")
	}
}

func TestWritesPersistAcrossOpen(t *testing.T) {
	s, path := openTestStore(t)
	alice := storetest.Register(t, s, storetest.User("alice"), storetest.Household("h1", "inv1"))
	if err := s.AppendEvent(storetest.Event("e1", alice, model.EventPee, 1766390539.5)); err != nil {
		t.Fatalf("append: %v", err)
	}

	reopened, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	events, err := reopened.ListEvents("h1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].Timestamp != 1766390539.5 {
		t.Errorf("events = %+v", events)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not remain after a save")
	}
}

func TestExternalEditIsPickedUp(t *testing.T) {
	s, path := openTestStore(t)
	storetest.Register(t, s, storetest.User("alice"), storetest.Household("h1", "inv1"))

	if err := os.WriteFile(path, []byte(sampleDocument), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	users, err := s.ListUsers("h1")
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 || users[0].ID != "u1" {
		t.Errorf("users = %+v, want the externally written members", users)
	}
}

func TestInvalidEventsAreSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	doc := `{"households": [], "users": [], "events": [
		{"id": "ok", "householdId": "h1", "userId": "u1", "type": "pee", "timestamp": 10},
		{"id": "bad", "householdId": "h1", "userId": "u1", "type": "", "timestamp": 10}
	]}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	events, err := s.ListEvents("h1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].ID != "ok" {
		t.Errorf("events = %+v, want only the valid event", events)
	}
}

func TestInvalidEventSurvivesUnrelatedWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	legacy := model.Event{ID: "legacy", HouseholdID: "h1", UserID: "", Type: model.EventPee, Timestamp: 10}
	original := &Document{
		Households: []model.Household{storetest.Household("h1", "inv1")},
		Users:      []model.User{},
		Events:     []model.Event{legacy},
	}
	data, err := Encode(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got, _ := s.GetEvent("legacy"); got != nil {
		t.Errorf("GetEvent(legacy) = %+v, want hidden from readers", got)
	}
	fresh := model.Event{ID: "e2", HouseholdID: "h1", UserID: "u1", Type: model.EventPoop, Timestamp: 20}
	if err := s.AppendEvent(fresh); err != nil {
		t.Fatalf("append: %v", err)
	}
	if n, err := s.DeleteAllEvents(); err != nil || n != 1 {
		t.Fatalf("DeleteAllEvents = %d, %v, want 1", n, err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("document after writes =\n%s\nwant the invalid record kept byte for byte:\n%s", got, data)
	}
}

func TestCorruptFileIsMovedAsideOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")
	corrupt := []byte(`{"households": [{"id": "h1"}], "users": [`)
	if err := os.WriteFile(path, corrupt, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	storetest.Register(t, s, storetest.User("nine"), storetest.Household("h2", "inv2"))

	saved, err := filepath.Glob(path + ".corrupt.*")
	if err != nil || len(saved) != 1 {
		t.Fatalf("corrupt copies = %v, %v, want one", saved, err)
	}
	data, err := os.ReadFile(saved[0])
	if err != nil {
		t.Fatalf("read saved copy: %v", err)
	}
	if !bytes.Equal(data, corrupt) {
		t.Errorf("saved copy = %q, want the corrupt bytes", data)
	}

	users, err := s.AllUsers()
	if err != nil || len(users) != 1 || users[0].ID != "u-nine" {
		t.Errorf("users = %+v, %v", users, err)
	}

	// Later writes replace the now-valid document without another copy.
	if err := s.AppendEvent(storetest.Event("e1", &users[0], model.EventPee, 10)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if saved, _ := filepath.Glob(path + ".corrupt.*"); len(saved) != 1 {
		t.Errorf("corrupt copies = %v, want still one", saved)
	}
}

func TestEnsureAdminsPromotesFirstMember(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	if err := os.WriteFile(path, []byte(sampleDocument), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	promoted, err := s.EnsureAdmins()
	if err != nil {
		t.Fatalf("ensure admins: %v", err)
	}
	if len(promoted) != 1 || promoted[0].ID != "u1" {
		t.Fatalf("promoted = %+v, want u1", promoted)
	}

	again, err := s.EnsureAdmins()
	if err != nil {
		t.Fatalf("ensure admins again: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second run promoted %+v, want none", again)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s, _ := openTestStore(t)
	storetest.Register(t, s, storetest.User("alice"), storetest.Household("h1", "inv1"))

	h, err := s.GetHousehold("h1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	h.InviteTokens[0] = "mutated"
	h.DogName = "mutated"

	again, err := s.GetHousehold("h1")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if again.InviteTokens[0] != "inv1" || again.DogName != "Rex" {
		t.Errorf("household = %+v, mutation leaked into the store", again)
	}
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "db.json")
	if err := WriteFileAtomic(path, []byte("one")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "two" {
		t.Errorf("content = %q, want %q", data, "two")
	}
}
