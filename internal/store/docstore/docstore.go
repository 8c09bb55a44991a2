// Package docstore keeps the whole database in one JSON document on disk.
//
// Readers share an immutable cached copy of the document that is reloaded
// when the file's version token (modification time and size) changes.
// Writers copy the document, mutate the copy and commit it by writing a
// temporary file and renaming it over the original, so no reader ever
// observes a partially written document.
package docstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/pawboard/internal/model"
	"github.com/dukerupert/pawboard/internal/store"
)

// errNoChange aborts an update without writing the file.
var errNoChange = errors.New("no change")

type version struct {
	modTime time.Time
	size    int64
}

func (v version) same(o version) bool {
	return v.size == o.size && v.modTime.Equal(o.modTime)
}

type Store struct {
	path   string
	logger *slog.Logger

	mu  sync.RWMutex // guards doc and ver
	doc *Document
	ver version
	// corrupt is set while the file on disk failed to decode.
	corrupt bool

	writeMu sync.Mutex // serializes writers in this process
}

var _ store.Store = (*Store)(nil)

// Open returns a store backed by the document at path. A missing file is
// not an error; it is created on the first write.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("open document store: empty path")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("document not found, starting empty", "path", path)
	} else if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}
	doc := s.load()
	logger.Debug("document loaded",
		"households", len(doc.Households),
		"users", len(doc.Users),
		"events", len(doc.Events),
	)
	return s, nil
}

// Path returns the location of the document file.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return nil }

// load returns the current document. The result is shared and must not be
// modified. Unreadable or corrupt files yield an empty document; the file
// itself is left untouched.
func (s *Store) load() *Document {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return emptyDocument()
	}
	if err != nil {
		s.logger.Error("stat document", "path", s.path, "error", err)
		return s.cachedOrEmpty()
	}
	v := version{modTime: info.ModTime(), size: info.Size()}

	s.mu.RLock()
	if s.doc != nil && s.ver.same(v) {
		doc := s.doc
		s.mu.RUnlock()
		return doc
	}
	s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Error("read document", "path", s.path, "error", err)
		return s.cachedOrEmpty()
	}
	doc, err := Decode(data)
	if err != nil {
		s.logger.Error("corrupt document, serving empty", "path", s.path, "error", err)
		s.mu.Lock()
		s.corrupt = true
		s.mu.Unlock()
		return emptyDocument()
	}
	s.reportInvalidEvents(doc)

	s.mu.Lock()
	s.doc = doc
	s.ver = v
	s.corrupt = false
	s.mu.Unlock()
	return doc
}

func (s *Store) cachedOrEmpty() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc != nil {
		return s.doc
	}
	return emptyDocument()
}

// reportInvalidEvents logs events that readers will not see. They are kept
// in the document and written back unchanged.
func (s *Store) reportInvalidEvents(doc *Document) {
	for _, e := range doc.Events {
		if err := e.Validate(); err != nil {
			s.logger.Error("skipping invalid event", "path", s.path, "error", err)
		}
	}
}

// update applies fn to a private copy of the document and commits it.
// Returning errNoChange from fn skips the write; any other error aborts.
func (s *Store) update(fn func(doc *Document) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	doc := s.load().clone()
	if err := fn(doc); err != nil {
		return err
	}
	return s.commit(doc)
}

func (s *Store) commit(doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	if err := s.preserveCorrupt(); err != nil {
		return err
	}
	if err := WriteFileAtomic(s.path, data); err != nil {
		s.invalidate()
		s.logger.Error("save document", "path", s.path, "error", err)
		return err
	}

	info, err := os.Stat(s.path)
	if err != nil {
		s.invalidate()
		return fmt.Errorf("stat saved document: %w", err)
	}
	s.mu.Lock()
	s.doc = doc
	s.ver = version{modTime: info.ModTime(), size: info.Size()}
	s.mu.Unlock()
	s.logger.Debug("document saved", "path", s.path, "bytes", len(data))
	return nil
}

// preserveCorrupt moves an undecodable document aside to
// <path>.corrupt.<UTC timestamp> before it is replaced. Callers hold writeMu.
func (s *Store) preserveCorrupt() error {
	s.mu.RLock()
	corrupt := s.corrupt
	s.mu.RUnlock()
	if !corrupt {
		return nil
	}

	dest := s.path + ".corrupt." + time.Now().UTC().Format("20060102T150405.000000000Z")
	if err := os.Rename(s.path, dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("preserve corrupt document: %w", err)
	}
	s.mu.Lock()
	s.corrupt = false
	s.mu.Unlock()
	s.logger.Warn("corrupt document moved aside", "path", s.path, "saved_as", dest)
	return nil
}

func (s *Store) invalidate() {
	s.mu.Lock()
	s.doc = nil
	s.mu.Unlock()
}

// WriteFileAtomic writes data to path+".tmp", syncs it and renames it over
// path.
func WriteFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}

// --- Snapshot ---

func (s *Store) Snapshot(householdID string) (*store.Snapshot, error) {
	doc := s.load()
	snap := &store.Snapshot{
		Users:  doc.members(householdID),
		Events: doc.events(householdID),
	}
	if h := doc.household(householdID); h != nil {
		c := cloneHousehold(*h)
		snap.Household = &c
	}
	return snap, nil
}

// --- Event methods ---

func (s *Store) ListEvents(householdID string) ([]model.Event, error) {
	return s.load().events(householdID), nil
}

func (s *Store) AllEvents() ([]model.Event, error) {
	return s.load().validEvents(), nil
}

func (s *Store) GetEvent(id string) (*model.Event, error) {
	for _, e := range s.load().validEvents() {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *Store) AppendEvent(e model.Event) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return s.update(func(doc *Document) error {
		doc.Events = append(doc.Events, e)
		return nil
	})
}

func (s *Store) DeleteEvent(id string) (bool, error) {
	err := s.update(func(doc *Document) error {
		for i, e := range doc.Events {
			if e.ID == id && e.Validate() == nil {
				doc.Events = append(doc.Events[:i], doc.Events[i+1:]...)
				return nil
			}
		}
		return errNoChange
	})
	if errors.Is(err, errNoChange) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete event: %w", err)
	}
	return true, nil
}

func (s *Store) DeleteEventsForHousehold(householdID string) (int, error) {
	return s.deleteEvents(func(e model.Event) bool { return e.HouseholdID == householdID })
}

func (s *Store) DeleteAllEvents() (int, error) {
	return s.deleteEvents(func(model.Event) bool { return true })
}

func (s *Store) deleteEvents(match func(model.Event) bool) (int, error) {
	removed := 0
	err := s.update(func(doc *Document) error {
		kept := make([]model.Event, 0, len(doc.Events))
		for _, e := range doc.Events {
			if e.Validate() == nil && match(e) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if removed == 0 {
			return errNoChange
		}
		doc.Events = kept
		return nil
	})
	if errors.Is(err, errNoChange) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	return removed, nil
}

// --- User methods ---

func (s *Store) ListUsers(householdID string) ([]model.User, error) {
	return s.load().members(householdID), nil
}

func (s *Store) AllUsers() ([]model.User, error) {
	doc := s.load()
	users := make([]model.User, len(doc.Users))
	copy(users, doc.Users)
	return users, nil
}

func (s *Store) GetUser(id string) (*model.User, error) {
	if u := s.load().user(id); u != nil {
		c := *u
		return &c, nil
	}
	return nil, nil
}

// GetUserByToken scans users for token. An empty token never matches.
func (s *Store) GetUserByToken(token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}
	for _, u := range s.load().Users {
		if u.Token == token {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *Store) GetUserByEmail(email string) (*model.User, error) {
	if email == "" {
		return nil, nil
	}
	for _, u := range s.load().Users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *Store) SetPassword(userID, secret string) error {
	err := s.update(func(doc *Document) error {
		u := doc.user(userID)
		if u == nil {
			return store.ErrNotFound
		}
		u.Password = secret
		return nil
	})
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}

func (s *Store) RegisterUser(u model.User, inviteToken string, newHousehold model.Household) (*model.User, error) {
	err := s.update(func(doc *Document) error {
		for _, existing := range doc.Users {
			if strings.EqualFold(existing.Email, u.Email) {
				return store.ErrEmailTaken
			}
		}

		if inviteToken != "" {
			h := doc.householdByInvite(inviteToken)
			if h == nil {
				return store.ErrInvalidInvite
			}
			u.HouseholdID = h.ID
		} else {
			h := cloneHousehold(newHousehold)
			doc.Households = append(doc.Households, h)
			u.HouseholdID = h.ID
		}

		u.IsAdmin = len(doc.members(u.HouseholdID)) == 0
		doc.Users = append(doc.Users, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	return &u, nil
}

// --- Household methods ---

func (s *Store) GetHousehold(id string) (*model.Household, error) {
	if h := s.load().household(id); h != nil {
		c := cloneHousehold(*h)
		return &c, nil
	}
	return nil, nil
}

func (s *Store) ListHouseholds() ([]model.Household, error) {
	doc := s.load()
	households := make([]model.Household, 0, len(doc.Households))
	for _, h := range doc.Households {
		households = append(households, cloneHousehold(h))
	}
	return households, nil
}

func (s *Store) UpdatePetProfile(householdID string, p model.PetProfile) (*model.Household, error) {
	return s.updateHousehold(householdID, "update pet profile", func(h *model.Household) {
		p.Apply(h)
	})
}

func (s *Store) AddInviteToken(householdID, token string) (*model.Household, error) {
	return s.updateHousehold(householdID, "add invite token", func(h *model.Household) {
		h.InviteTokens = append(h.InviteTokens, token)
	})
}

func (s *Store) ResetInviteTokens(householdID, token string) (*model.Household, error) {
	return s.updateHousehold(householdID, "reset invite tokens", func(h *model.Household) {
		h.InviteTokens = []string{token}
	})
}

func (s *Store) updateHousehold(id, op string, fn func(h *model.Household)) (*model.Household, error) {
	var updated model.Household
	err := s.update(func(doc *Document) error {
		h := doc.household(id)
		if h == nil {
			return store.ErrNotFound
		}
		fn(h)
		updated = cloneHousehold(*h)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &updated, nil
}

func (s *Store) EnsureAdmins() ([]model.User, error) {
	var promoted []model.User
	err := s.update(func(doc *Document) error {
		for _, h := range doc.Households {
			first := -1
			hasAdmin := false
			for i := range doc.Users {
				if doc.Users[i].HouseholdID != h.ID {
					continue
				}
				if first < 0 {
					first = i
				}
				if doc.Users[i].IsAdmin {
					hasAdmin = true
					break
				}
			}
			if first >= 0 && !hasAdmin {
				doc.Users[first].IsAdmin = true
				promoted = append(promoted, doc.Users[first])
			}
		}
		if len(promoted) == 0 {
			return errNoChange
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ensure admins: %w", err)
	}
	return promoted, nil
}
