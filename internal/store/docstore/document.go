package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/dukerupert/pawboard/internal/model"
)

// Document is the on-disk layout: three top-level collections.
type Document struct {
	Households []model.Household `json:"households"`
	Users      []model.User      `json:"users"`
	Events     []model.Event     `json:"events"`
}

func emptyDocument() *Document {
	return &Document{
		Households: []model.Household{},
		Users:      []model.User{},
		Events:     []model.Event{},
	}
}

// Decode parses a document. Missing collections decode as empty.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc.normalize()
	return &doc, nil
}

// Encode renders doc with two-space indentation and without escaping
// non-ASCII or HTML characters. Decode followed by Encode reproduces a
// document written by Encode byte for byte.
func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (d *Document) normalize() {
	if d.Households == nil {
		d.Households = []model.Household{}
	}
	if d.Users == nil {
		d.Users = []model.User{}
	}
	if d.Events == nil {
		d.Events = []model.Event{}
	}
	for i := range d.Households {
		if d.Households[i].InviteTokens == nil {
			d.Households[i].InviteTokens = []string{}
		}
	}
}

func (d *Document) clone() *Document {
	c := &Document{
		Households: make([]model.Household, len(d.Households)),
		Users:      slices.Clone(d.Users),
		Events:     slices.Clone(d.Events),
	}
	for i, h := range d.Households {
		c.Households[i] = cloneHousehold(h)
	}
	c.normalize()
	return c
}

func cloneHousehold(h model.Household) model.Household {
	h.InviteTokens = slices.Clone(h.InviteTokens)
	if h.InviteTokens == nil {
		h.InviteTokens = []string{}
	}
	return h
}

func (d *Document) household(id string) *model.Household {
	for i := range d.Households {
		if d.Households[i].ID == id {
			return &d.Households[i]
		}
	}
	return nil
}

func (d *Document) householdByInvite(token string) *model.Household {
	for i := range d.Households {
		if d.Households[i].HasInvite(token) {
			return &d.Households[i]
		}
	}
	return nil
}

func (d *Document) user(id string) *model.User {
	for i := range d.Users {
		if d.Users[i].ID == id {
			return &d.Users[i]
		}
	}
	return nil
}

func (d *Document) members(householdID string) []model.User {
	users := []model.User{}
	for _, u := range d.Users {
		if u.HouseholdID == householdID {
			users = append(users, u)
		}
	}
	return users
}

// validEvents returns the events readers may see. Records that fail
// validation stay in d.Events so a write never drops them from disk.
func (d *Document) validEvents() []model.Event {
	events := make([]model.Event, 0, len(d.Events))
	for _, e := range d.Events {
		if e.Validate() == nil {
			events = append(events, e)
		}
	}
	return events
}

func (d *Document) events(householdID string) []model.Event {
	events := []model.Event{}
	for _, e := range d.validEvents() {
		if e.HouseholdID == householdID {
			events = append(events, e)
		}
	}
	return events
}
