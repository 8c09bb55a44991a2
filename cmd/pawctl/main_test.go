package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/pawboard/internal/calendar"
	"github.com/dukerupert/pawboard/internal/model"
	"github.com/dukerupert/pawboard/internal/store/docstore"
)

// seed writes a document with two households and returns its path.
func seed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	st, err := docstore.Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	now := model.Timestamp(time.Now())
	for _, hid := range []string{"h1", "h2"} {
		u := model.User{ID: "u-" + hid, Email: hid + "@example.com", Token: "t-" + hid}
		if _, err := st.RegisterUser(u, "", model.Household{ID: hid, InviteTokens: []string{"inv-" + hid}}); err != nil {
			t.Fatal(err)
		}
		for i, typ := range []string{model.EventPee, model.EventPoop} {
			e := model.Event{ID: hid + "-" + typ, HouseholdID: hid, UserID: u.ID, Type: typ, Timestamp: now - float64(i)}
			if err := st.AppendEvent(e); err != nil {
				t.Fatal(err)
			}
		}
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PAWBOARD_STORE", "json")
	t.Setenv("PAWBOARD_TIMEZONE", "UTC")
	t.Setenv("PAWBOARD_LOG_LEVEL", "error")
	t.Setenv("PAWBOARD_BACKUP_PASSPHRASE", "")
	t.Setenv("PAWBOARD_S3_BUCKET", "")
	t.Setenv("PAWBOARD_BACKUP_DIR", "")

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func openSeeded(t *testing.T, path string) *docstore.Store {
	t.Helper()
	st, err := docstore.Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestCheckEvents(t *testing.T) {
	path := seed(t)

	out, err := execute(t, "check-events", "--data", path, "--household", "h1", "--limit", "1")
	if err != nil {
		t.Fatalf("check-events: %v", err)
	}
	for _, want := range []string{"Total events: 2", "1 most recent events:", "pee", "Events today: 2", "  poop: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestClearEventsHousehold(t *testing.T) {
	path := seed(t)

	out, err := execute(t, "clear-events", "--data", path, "--household", "h1", "--yes")
	if err != nil {
		t.Fatalf("clear-events: %v", err)
	}
	if !strings.Contains(out, "Cleared 2 events for household h1") || !strings.Contains(out, "Backup saved to") {
		t.Errorf("output = %q", out)
	}

	st := openSeeded(t, path)
	events, _ := st.AllEvents()
	if len(events) != 2 || events[0].HouseholdID != "h2" {
		t.Errorf("remaining events = %+v", events)
	}

	matches, _ := filepath.Glob(path + ".bak.*")
	if len(matches) != 1 {
		t.Errorf("backups = %v, want one", matches)
	}
}

func TestClearEventsAbortsWithoutConfirmation(t *testing.T) {
	path := seed(t)

	if _, err := execute(t, "clear-events", "--data", path); err == nil {
		t.Fatal("expected abort without --yes")
	}
	events, _ := openSeeded(t, path).AllEvents()
	if len(events) != 4 {
		t.Errorf("events = %d, want 4", len(events))
	}
}

func TestBackupAndRestore(t *testing.T) {
	path := seed(t)

	out, err := execute(t, "backup", "--data", path)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	matches, _ := filepath.Glob(path + ".bak.*")
	if len(matches) != 1 || !strings.Contains(out, matches[0]) {
		t.Fatalf("backups = %v, output %q", matches, out)
	}

	if _, err := execute(t, "clear-events", "--data", path, "--yes", "--no-backup"); err != nil {
		t.Fatalf("clear-events: %v", err)
	}
	if _, err := execute(t, "restore", matches[0], "--data", path, "--yes"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	events, _ := openSeeded(t, path).AllEvents()
	if len(events) != 4 {
		t.Errorf("events after restore = %d, want 4", len(events))
	}
}

func TestFixAdmins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	doc := `{"households":[{"id":"h1","dogName":"","inviteTokens":[],"dogAgeMonths":0,"dogPhotoUrl":""}],` +
		`"users":[{"id":"u1","username":"a","email":"a@example.com","password":"pw","householdId":"h1","token":"t1","isAdmin":false}],` +
		`"events":[]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "fix-admins", "--data", path)
	if err != nil {
		t.Fatalf("fix-admins: %v", err)
	}
	if !strings.Contains(out, "Promoted u1") {
		t.Errorf("output = %q", out)
	}
	out, _ = execute(t, "fix-admins", "--data", path)
	if !strings.Contains(out, "already has an admin") {
		t.Errorf("second run output = %q", out)
	}
}

func TestEventReportMarksToday(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cal := calendar.New(time.UTC).WithClock(func() time.Time { return now })
	events := []model.Event{
		{ID: "a", HouseholdID: "h", UserID: "abcdefghijk", Type: "walk", Timestamp: model.Timestamp(now.Add(-time.Hour))},
		{ID: "b", HouseholdID: "h", UserID: "u", Type: "pee", Timestamp: model.Timestamp(now.AddDate(0, 0, -1))},
	}

	var buf bytes.Buffer
	writeEventReport(&buf, cal, events, 20)
	out := buf.String()
	if !strings.Contains(out, "by abcdefgh...  <-- today") {
		t.Errorf("today marker missing:\n%s", out)
	}
	if !strings.Contains(out, "Events today: 1") || !strings.Contains(out, "  walk: 1") {
		t.Errorf("today totals wrong:\n%s", out)
	}
}
