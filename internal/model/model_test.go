package model

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dukerupert/pawboard/internal/calendar"
)

func TestEventValidate(t *testing.T) {
	valid := Event{ID: "e1", HouseholdID: "h1", UserID: "u1", Type: EventPee, Timestamp: 1766390539.5}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid event: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Event)
	}{
		{"missing id", func(e *Event) { e.ID = "" }},
		{"missing household", func(e *Event) { e.HouseholdID = "" }},
		{"missing user", func(e *Event) { e.UserID = "" }},
		{"blank type", func(e *Event) { e.Type = "  " }},
		{"nan timestamp", func(e *Event) { e.Timestamp = math.NaN() }},
		{"infinite timestamp", func(e *Event) { e.Timestamp = math.Inf(1) }},
		{"negative timestamp", func(e *Event) { e.Timestamp = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			if err := e.Validate(); !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("Validate() = %v, want ErrInvalidEvent", err)
			}
		})
	}
}

func TestEventTime(t *testing.T) {
	e := Event{Timestamp: 1766390539.25}
	want := time.Unix(1766390539, 250_000_000).UTC()
	if got := e.Time(); !got.Equal(want) {
		t.Errorf("Time() = %v, want %v", got, want)
	}
	if got := Timestamp(want); got != 1766390539.25 {
		t.Errorf("Timestamp() = %v", got)
	}
	for _, ts := range []float64{0, 1766390539.123456, 1766390539.999999} {
		if got, want := (Event{Timestamp: ts}).Time(), calendar.Time(ts); !got.Equal(want) {
			t.Errorf("Event{%v}.Time() = %v, calendar.Time = %v", ts, got, want)
		}
	}
}

func TestIsWalk(t *testing.T) {
	for _, typ := range []string{EventWalk, EventWalkMorning, EventWalkAfternoon, EventWalkEvening} {
		if !IsWalk(typ) {
			t.Errorf("IsWalk(%q) = false", typ)
		}
	}
	if IsWalk(EventPee) {
		t.Error("IsWalk(pee) = true")
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if len(a) != 32 {
		t.Errorf("len = %d, want 32", len(a))
	}
	if a == b {
		t.Error("ids should differ")
	}
	for _, r := range a {
		if !('0' <= r && r <= '9' || 'a' <= r && r <= 'f') {
			t.Fatalf("non-hex rune %q in %s", r, a)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := (User{Username: "Dana", Email: "d@example.com"}).DisplayName(); got != "Dana" {
		t.Errorf("got %q", got)
	}
	if got := (User{Email: "d@example.com"}).DisplayName(); got != "d@example.com" {
		t.Errorf("got %q", got)
	}
}

func TestHouseholdInvites(t *testing.T) {
	h := Household{InviteTokens: []string{"a", "b"}}
	if !h.HasInvite("b") || h.HasInvite("c") || h.HasInvite("") {
		t.Errorf("HasInvite mismatch for %v", h.InviteTokens)
	}
}

func TestPetProfileApply(t *testing.T) {
	h := Household{DogName: "Rex", DogAgeMonths: 3, DogPhotoURL: "old.jpg"}
	name := "Fido"
	age := 0
	PetProfile{DogName: &name, DogAgeMonths: &age}.Apply(&h)
	if h.DogName != "Fido" || h.DogAgeMonths != 0 || h.DogPhotoURL != "old.jpg" {
		t.Errorf("after Apply: %+v", h)
	}
}
