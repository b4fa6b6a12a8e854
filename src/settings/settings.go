// Package settings persists the user-editable configuration record
// (languages, overlay size, API key) as a flat JSON document.
package settings

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	jsonparser "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"sstranslate/src/langs"
)

const (
	FileName = "settings.json"

	MinOverlayWidth  = 200
	MinOverlayHeight = 100
	MaxOverlayWidth  = 4000
	MaxOverlayHeight = 3000
)

var (
	ErrUnknownKey   = errors.New("unknown settings key")
	ErrInvalidValue = errors.New("invalid settings value")
)

type Settings struct {
	SourceLang    string `json:"source_lang"`
	TargetLang    string `json:"target_lang"`
	OverlayWidth  int    `json:"overlay_width"`
	OverlayHeight int    `json:"overlay_height"`
	APIKey        string `json:"api_key"`
}

// Defaults mirrors the values the tool shipped with before settings existed.
func Defaults() Settings {
	return Settings{
		SourceLang:    "EN",
		TargetLang:    "TR",
		OverlayWidth:  800,
		OverlayHeight: 500,
	}
}

// Keys lists the document keys accepted by Set.
func Keys() []string {
	return []string{"source_lang", "target_lang", "overlay_width", "overlay_height", "api_key"}
}

// Store is a concurrency-safe view of the settings file. The GUI writes it
// while workers read snapshots.
type Store struct {
	path string

	mu      sync.RWMutex
	current Settings
}

// Open loads defaults and merges the document at path over them.
// A missing file yields defaults.
func Open(path string) (*Store, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "json"), nil); err != nil {
		return nil, fmt.Errorf("failed to load default settings: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		doc := koanf.New(".")
		if err := doc.Load(file.Provider(path), jsonparser.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		// A null keeps the default instead of zeroing the field.
		for key, v := range doc.All() {
			if v == nil {
				doc.Delete(key)
			}
		}
		if err := k.Merge(doc); err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var s Settings
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	normalized, err := normalize(s)
	if err != nil {
		log.Printf("settings: %v in %s, falling back to defaults for invalid fields", err, path)
		normalized = repair(s)
	}

	return &Store{path: path, current: normalized}, nil
}

// Path returns the backing file path.
func (st *Store) Path() string { return st.path }

// Get returns a snapshot of the current settings.
func (st *Store) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// Save validates s and rewrites the whole document.
func (st *Store) Save(s Settings) error {
	normalized, err := normalize(s)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if err := writeDocument(st.path, normalized); err != nil {
		return err
	}
	st.current = normalized
	return nil
}

// Update applies fn to a snapshot and saves the result.
func (st *Store) Update(fn func(*Settings)) error {
	s := st.Get()
	fn(&s)
	return st.Save(s)
}

// Set updates a single field addressed by its document key.
func (st *Store) Set(key, value string) error {
	s := st.Get()
	value = strings.TrimSpace(value)

	switch strings.ToLower(strings.TrimSpace(key)) {
	case "source_lang":
		s.SourceLang = value
	case "target_lang":
		s.TargetLang = value
	case "overlay_width":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: overlay_width %q is not a number", ErrInvalidValue, value)
		}
		s.OverlayWidth = n
	case "overlay_height":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: overlay_height %q is not a number", ErrInvalidValue, value)
		}
		s.OverlayHeight = n
	case "api_key":
		s.APIKey = value
	default:
		return fmt.Errorf("%w: %q (valid: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}

	return st.Save(s)
}

// Reset writes the defaults, dropping the stored API key.
func (st *Store) Reset() error {
	return st.Save(Defaults())
}

// Map renders s as the flat key-value document.
func Map(s Settings) map[string]any {
	k := koanf.New(".")
	_ = k.Load(structs.Provider(s, "json"), nil)
	return k.All()
}

func normalize(s Settings) (Settings, error) {
	src, ok := langs.Source(s.SourceLang)
	if !ok {
		return s, fmt.Errorf("%w: unsupported source language %q", ErrInvalidValue, s.SourceLang)
	}
	tgt, ok := langs.Target(s.TargetLang)
	if !ok {
		return s, fmt.Errorf("%w: unsupported target language %q", ErrInvalidValue, s.TargetLang)
	}
	s.SourceLang = src.Code
	s.TargetLang = tgt.Code
	s.OverlayWidth = clamp(s.OverlayWidth, MinOverlayWidth, MaxOverlayWidth)
	s.OverlayHeight = clamp(s.OverlayHeight, MinOverlayHeight, MaxOverlayHeight)
	s.APIKey = strings.TrimSpace(s.APIKey)
	return s, nil
}

// repair replaces every invalid field with its default.
func repair(s Settings) Settings {
	def := Defaults()
	if _, ok := langs.Source(s.SourceLang); !ok {
		s.SourceLang = def.SourceLang
	}
	if _, ok := langs.Target(s.TargetLang); !ok {
		s.TargetLang = def.TargetLang
	}
	s, _ = normalize(s)
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func writeDocument(path string, s Settings) error {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(s, "json"), nil); err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	data, err := k.Marshal(jsonparser.Parser())
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}
