// Package watchstore persists per-(owner, dump_id) watch-expression lists,
// surviving across sessions that restore the same dump.
package watchstore

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/errkind"
)

// MutationFunc is called after every add/remove/clear so the session
// manager can bump the owning session's mutation epoch (§4.9).
type MutationFunc func(owner, dumpID string)

// Watch is one persisted watch expression.
type Watch struct {
	ID         string    `json:"id"`
	Expression string    `json:"expression"`
	CreatedAt  time.Time `json:"createdAt"`
}

// fileData is the on-disk format for one (owner, dump_id) pair.
type fileData struct {
	Watches []Watch `json:"watches"`
}

// Store is a JSON-file-backed, mutex-guarded registry of watch lists keyed
// by (owner, dump_id), mirroring the teacher's FileSession/Store shape
// generalized from conversation state to watch-expression lists.
type Store struct {
	mu       sync.RWMutex
	dir      string
	cache    map[string]*fileData
	onMutate MutationFunc
}

// New constructs a Store rooted at dir (one JSON file per (owner, dump_id)
// pair). onMutate may be nil.
func New(dir string, onMutate MutationFunc) (*Store, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errkind.Wrap(errkind.KindInternal, "create watch store directory", err)
		}
	}
	return &Store{
		dir:      dir,
		cache:    make(map[string]*fileData),
		onMutate: onMutate,
	}, nil
}

func key(owner, dumpID string) string {
	return owner + "/" + dumpID
}

func (s *Store) path(owner, dumpID string) string {
	return filepath.Join(s.dir, owner+"__"+dumpID+".json")
}

func (s *Store) load(owner, dumpID string) (*fileData, error) {
	k := key(owner, dumpID)
	if d, ok := s.cache[k]; ok {
		return d, nil
	}
	d := &fileData{}
	if s.dir != "" {
		raw, err := os.ReadFile(s.path(owner, dumpID))
		if err == nil {
			if jerr := json.Unmarshal(raw, d); jerr != nil {
				return nil, errkind.Wrap(errkind.KindInternal, "decode watch file", jerr)
			}
		} else if !os.IsNotExist(err) {
			return nil, errkind.Wrap(errkind.KindInternal, "read watch file", err)
		}
	}
	s.cache[k] = d
	return d, nil
}

func (s *Store) persist(owner, dumpID string, d *fileData) error {
	if s.dir == "" {
		return nil
	}
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return errkind.Wrap(errkind.KindInternal, "encode watch file", err)
	}
	return os.WriteFile(s.path(owner, dumpID), raw, 0o644)
}

// Add appends a watch expression, returning its generated id.
func (s *Store) Add(owner, dumpID, expression string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.load(owner, dumpID)
	if err != nil {
		return "", err
	}
	w := Watch{ID: newWatchID(), Expression: expression, CreatedAt: time.Now()}
	d.Watches = append(d.Watches, w)
	if err := s.persist(owner, dumpID, d); err != nil {
		return "", err
	}
	s.notify(owner, dumpID)
	return w.ID, nil
}

// List returns every watch for (owner, dump_id), oldest first.
func (s *Store) List(owner, dumpID string) ([]Watch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.load(owner, dumpID)
	if err != nil {
		return nil, err
	}
	out := make([]Watch, len(d.Watches))
	copy(out, d.Watches)
	return out, nil
}

// Remove deletes one watch by id. Returns KindNotFound if absent.
func (s *Store) Remove(owner, dumpID, watchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.load(owner, dumpID)
	if err != nil {
		return err
	}
	idx := -1
	for i, w := range d.Watches {
		if w.ID == watchID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return errkind.NotFoundf("watch %q not found", watchID)
	}
	d.Watches = append(d.Watches[:idx], d.Watches[idx+1:]...)
	if err := s.persist(owner, dumpID, d); err != nil {
		return err
	}
	s.notify(owner, dumpID)
	return nil
}

// Clear removes every watch for (owner, dump_id).
func (s *Store) Clear(owner, dumpID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.load(owner, dumpID)
	if err != nil {
		return err
	}
	if len(d.Watches) == 0 {
		s.notify(owner, dumpID)
		return nil
	}
	d.Watches = nil
	if err := s.persist(owner, dumpID, d); err != nil {
		return err
	}
	s.notify(owner, dumpID)
	return nil
}

// HasAny reports whether (owner, dump_id) has at least one watch.
func (s *Store) HasAny(owner, dumpID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.load(owner, dumpID)
	if err != nil {
		return false, err
	}
	return len(d.Watches) > 0, nil
}

func (s *Store) notify(owner, dumpID string) {
	if s.onMutate != nil {
		s.onMutate(owner, dumpID)
	}
}

func newWatchID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return "w_" + hex.EncodeToString(buf)
}
