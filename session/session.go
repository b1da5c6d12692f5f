// Package session persists the signed-in identity of the command line client:
// the bearer token and a snapshot of the current user.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/techagentng/ireporter/models"
)

const (
	tokenKey       = "token"
	currentUserKey = "ireporter_current_user"
)

// Snapshot is the whole session. It is always replaced as a unit.
type Snapshot struct {
	Token string
	User  *models.UserResponse
}

// SignedIn reports whether the snapshot carries a token.
func (s Snapshot) SignedIn() bool {
	return s.Token != ""
}

// IsAdmin is a UI hint only; the server enforces roles.
func (s Snapshot) IsAdmin() bool {
	return s.User != nil && s.User.IsAdmin
}

// UserID returns the current user's id or 0 when signed out.
func (s Snapshot) UserID() uint {
	if s.User == nil {
		return 0
	}
	return s.User.ID
}

type Store interface {
	Load() (Snapshot, error)
	Replace(Snapshot) error
	Clear() error
}

// record is the on-disk layout.
type record struct {
	Token string               `json:"token,omitempty"`
	User  *models.UserResponse `json:"ireporter_current_user,omitempty"`
}

// FileStore keeps the session in a JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load() (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, nil
		}
		return Snapshot{}, errors.Wrap(err, "reading session")
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Snapshot{}, errors.Wrapf(err, "session file %s is corrupt", f.path)
	}
	return Snapshot{Token: rec.Token, User: withDerived(rec.User)}, nil
}

// Replace writes snap to a temporary file and renames it over the session
// file, so readers never observe a partial snapshot.
func (f *FileStore) Replace(snap Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := json.MarshalIndent(record{Token: snap.Token, User: withDerived(snap.User)}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "creating session directory")
	}
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return errors.Wrap(err, "creating session file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing session")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing session")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "writing session")
	}
	return errors.Wrap(os.Rename(tmp.Name(), f.path), "saving session")
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "clearing session")
	}
	return nil
}

// MemoryStore is a Store that lives only as long as the process.
type MemoryStore struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewMemoryStore(snap Snapshot) *MemoryStore {
	return &MemoryStore{snap: Snapshot{Token: snap.Token, User: withDerived(snap.User)}}
}

func (m *MemoryStore) Load() (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := m.snap
	if snap.User != nil {
		u := *snap.User
		snap.User = &u
	}
	return snap, nil
}

func (m *MemoryStore) Replace(snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = Snapshot{Token: snap.Token, User: withDerived(snap.User)}
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.Replace(Snapshot{})
}

// withDerived returns a copy of u with Name and Role filled in.
func withDerived(u *models.UserResponse) *models.UserResponse {
	if u == nil {
		return nil
	}
	out := *u
	if out.Name == "" {
		out.Name = (&models.User{FirstName: u.FirstName, LastName: u.LastName}).FullName()
	}
	out.Role = models.RoleUser
	if out.IsAdmin {
		out.Role = models.RoleAdmin
	}
	return &out
}
