// Package history keeps the newest-first list of finished translations.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	FileName     = "history.json"
	DefaultLimit = 50

	idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	idLength   = 8
)

var ErrNotFound = errors.New("history entry not found")

type Entry struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Translated string    `json:"translated"`
	SourceLang string    `json:"source_lang,omitempty"`
	TargetLang string    `json:"target_lang,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists entries as one JSON array, rewritten on every change.
type Store struct {
	path  string
	limit int

	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

// Open reads the list at path. A missing file is an empty history.
func Open(path string, limit int) (*Store, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	st := &Store{path: path, limit: limit, now: time.Now}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return st, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &st.entries); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	if len(st.entries) > limit {
		st.entries = st.entries[:limit]
	}
	for i := range st.entries {
		if st.entries[i].ID == "" {
			st.entries[i].ID = newID()
		}
	}
	return st, nil
}

// Add prepends a translation. It returns false without writing when the
// pair equals the newest entry; older duplicates are kept.
func (st *Store) Add(source, translated, sourceLang, targetLang string) (Entry, bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(st.entries) > 0 {
		head := st.entries[0]
		if head.Source == source && head.Translated == translated {
			return head, false, nil
		}
	}

	e := Entry{
		ID:         newID(),
		Source:     source,
		Translated: translated,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		CreatedAt:  st.now().UTC(),
	}

	next := make([]Entry, 0, min(len(st.entries)+1, st.limit))
	next = append(next, e)
	for _, old := range st.entries {
		if len(next) == st.limit {
			break
		}
		next = append(next, old)
	}

	if err := st.write(next); err != nil {
		return Entry{}, false, err
	}
	st.entries = next
	return e, true, nil
}

// List returns a copy, newest first.
func (st *Store) List() []Entry {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]Entry(nil), st.entries...)
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.entries)
}

func (st *Store) Limit() int { return st.limit }

func (st *Store) Get(id string) (Entry, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, e := range st.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	next := make([]Entry, 0, len(st.entries))
	for _, e := range st.entries {
		if e.ID != id {
			next = append(next, e)
		}
	}
	if len(next) == len(st.entries) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := st.write(next); err != nil {
		return err
	}
	st.entries = next
	return nil
}

func (st *Store) Clear() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.write([]Entry{}); err != nil {
		return err
	}
	st.entries = nil
	return nil
}

func (st *Store) write(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp history: %w", err)
	}
	if err := os.Rename(tmp, st.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}

func newID() string {
	id, err := nanoid.Generate(idAlphabet, idLength)
	if err != nil {
		// crypto/rand failure; fall back to a time-based id
		return fmt.Sprintf("t%x", time.Now().UnixNano())
	}
	return id
}
