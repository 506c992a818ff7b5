package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/polyglot/internal/logging"
)

// StateFileName is the name of the session state file under the config
// directory.
const StateFileName = "state.json"

// StateStore persists session state as a single JSON document.
// Values are addressed with gjson paths and written with sjson; panels
// get a namespaced view through Panel(id). The store is safe for
// concurrent use.
type StateStore struct {
	mu     sync.Mutex
	path   string
	doc    []byte
	dirty  bool
	logger *logging.Logger
}

// StateOption configures a StateStore.
type StateOption func(*StateStore)

// WithStateLogger sets the store logger.
func WithStateLogger(l *logging.Logger) StateOption {
	return func(s *StateStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStateStore creates a store backed by the JSON document at path.
// The document is empty until Load is called.
func NewStateStore(path string, opts ...StateOption) *StateStore {
	s := &StateStore{
		path:   path,
		doc:    []byte("{}"),
		logger: logging.Null,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("state")
	return s
}

// Load reads the state document from disk.
// A missing file leaves the store empty. A corrupted file is discarded
// with a warning so the session starts fresh rather than failing.
func (s *StateStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading state file %s: %w", s.path, err)
	}

	if !gjson.ValidBytes(data) {
		s.logger.Warn("state file %s is not valid JSON, starting fresh", s.path)
		return nil
	}

	s.mu.Lock()
	s.doc = data
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Save writes the state document to disk atomically.
func (s *StateStore) Save() error {
	s.mu.Lock()
	doc := make([]byte, len(s.doc))
	copy(doc, s.doc)
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.json")
	if err != nil {
		return fmt.Errorf("creating temp state: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing state: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing state: %w", err)
	}

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Dirty reports whether the document changed since the last Load/Save.
func (s *StateStore) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Path returns the state file path.
func (s *StateStore) Path() string {
	return s.path
}

// Get returns the raw result at a gjson path.
func (s *StateStore) Get(path string) gjson.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gjson.GetBytes(s.doc, path)
}

// GetString returns the string at path, or defaultValue if absent.
func (s *StateStore) GetString(path, defaultValue string) string {
	res := s.Get(path)
	if !res.Exists() {
		return defaultValue
	}
	return res.String()
}

// GetInt returns the integer at path, or defaultValue if absent.
func (s *StateStore) GetInt(path string, defaultValue int64) int64 {
	res := s.Get(path)
	if !res.Exists() {
		return defaultValue
	}
	return res.Int()
}

// GetBool returns the boolean at path, or defaultValue if absent.
func (s *StateStore) GetBool(path string, defaultValue bool) bool {
	res := s.Get(path)
	if !res.Exists() {
		return defaultValue
	}
	return res.Bool()
}

// GetStrings returns the string array at path, or nil if absent.
func (s *StateStore) GetStrings(path string) []string {
	res := s.Get(path)
	if !res.Exists() || !res.IsArray() {
		return nil
	}
	items := res.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}
	return out
}

// Set writes a value at a path, creating intermediate objects as needed.
func (s *StateStore) Set(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := sjson.SetBytes(s.doc, path, value)
	if err != nil {
		return fmt.Errorf("setting state %s: %w", path, err)
	}
	s.doc = doc
	s.dirty = true
	return nil
}

// Delete removes the value at a path. Deleting an absent path is a no-op.
func (s *StateStore) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := sjson.DeleteBytes(s.doc, path)
	if err != nil {
		return fmt.Errorf("deleting state %s: %w", path, err)
	}
	s.doc = doc
	s.dirty = true
	return nil
}

// Document returns a copy of the raw JSON document.
func (s *StateStore) Document() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := make([]byte, len(s.doc))
	copy(doc, s.doc)
	return doc
}

// Panel returns a view of the store namespaced to one panel id.
// Panel values live under "panels.<id>.".
func (s *StateStore) Panel(id string) *PanelState {
	return &PanelState{
		store:  s,
		prefix: "panels." + escapeStateKey(id),
	}
}

// PanelState is a panel-scoped view of a StateStore.
type PanelState struct {
	store  *StateStore
	prefix string
}

// GetString returns the panel string value for key.
func (p *PanelState) GetString(key, defaultValue string) string {
	return p.store.GetString(p.path(key), defaultValue)
}

// GetInt returns the panel integer value for key.
func (p *PanelState) GetInt(key string, defaultValue int64) int64 {
	return p.store.GetInt(p.path(key), defaultValue)
}

// GetBool returns the panel boolean value for key.
func (p *PanelState) GetBool(key string, defaultValue bool) bool {
	return p.store.GetBool(p.path(key), defaultValue)
}

// GetStrings returns the panel string array for key.
func (p *PanelState) GetStrings(key string) []string {
	return p.store.GetStrings(p.path(key))
}

// Set writes a panel value for key.
func (p *PanelState) Set(key string, value any) error {
	return p.store.Set(p.path(key), value)
}

// Delete removes the panel value for key.
func (p *PanelState) Delete(key string) error {
	return p.store.Delete(p.path(key))
}

func (p *PanelState) path(key string) string {
	return p.prefix + "." + key
}

// escapeStateKey escapes gjson/sjson path metacharacters in a key so
// panel ids cannot address outside their namespace.
func escapeStateKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '\\', '|':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
