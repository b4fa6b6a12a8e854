package settings

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenMissingFileUsesDefaults(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := st.Get(); got != Defaults() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestOpenMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(`{"target_lang":"de","unknown":"x"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	got := st.Get()
	if got.TargetLang != "DE" {
		t.Errorf("expected merged target DE, got %q", got.TargetLang)
	}
	if got.SourceLang != "EN" || got.OverlayWidth != 800 || got.OverlayHeight != 500 {
		t.Errorf("expected defaults for missing keys, got %+v", got)
	}
}

func TestOpenNullKeepsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	doc := `{"overlay_width":null,"source_lang":null,"overlay_height":320}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	got := st.Get()
	if got.OverlayWidth != 800 || got.SourceLang != "EN" {
		t.Errorf("null must keep the default, got %+v", got)
	}
	if got.OverlayHeight != 320 {
		t.Errorf("expected merged height 320, got %d", got.OverlayHeight)
	}
}

func TestOpenMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(`{"target_lang":`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestOpenRepairsInvalidLanguage(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(`{"source_lang":"klingon","overlay_width":20}`), 0o600); err != nil {
		t.Fatal(err)
	}
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	got := st.Get()
	if got.SourceLang != "EN" {
		t.Errorf("expected default source after repair, got %q", got.SourceLang)
	}
	if got.OverlayWidth != MinOverlayWidth {
		t.Errorf("expected width clamped to %d, got %d", MinOverlayWidth, got.OverlayWidth)
	}
}

func TestSaveRewritesWholeDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	st, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	s := st.Get()
	s.TargetLang = "ja"
	s.APIKey = "  abc:fx  "
	s.OverlayHeight = 99999
	if err := st.Save(s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected settings file: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("settings file is not valid JSON: %v", err)
	}
	for _, key := range Keys() {
		if _, ok := doc[key]; !ok {
			t.Errorf("expected key %q in saved document", key)
		}
	}
	if doc["target_lang"] != "JA" || doc["api_key"] != "abc:fx" {
		t.Errorf("unexpected document %v", doc)
	}
	if doc["overlay_height"].(float64) != MaxOverlayHeight {
		t.Errorf("expected clamped height, got %v", doc["overlay_height"])
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Get() != st.Get() {
		t.Errorf("reopened settings differ: %+v vs %+v", reopened.Get(), st.Get())
	}
}

func TestSaveRejectsInvalidLanguage(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatal(err)
	}
	s := st.Get()
	s.TargetLang = "auto"
	if err := st.Save(s); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if st.Get().TargetLang != "TR" {
		t.Fatal("failed save must not change the current settings")
	}
}

func TestSet(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatal(err)
	}

	if err := st.Set("overlay_width", "640"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if st.Get().OverlayWidth != 640 {
		t.Errorf("expected width 640, got %d", st.Get().OverlayWidth)
	}
	if err := st.Set("overlay_width", "wide"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
	if err := st.Set("colour", "red"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
	if err := st.Set("source_lang", "auto"); err != nil {
		t.Errorf("auto source should be accepted: %v", err)
	}
}

func TestReset(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Set("api_key", "secret"); err != nil {
		t.Fatal(err)
	}
	if err := st.Reset(); err != nil {
		t.Fatal(err)
	}
	if st.Get() != Defaults() {
		t.Fatalf("expected defaults after reset, got %+v", st.Get())
	}
}

func TestMap(t *testing.T) {
	m := Map(Defaults())
	if m["target_lang"] != "TR" || m["overlay_width"] != 800 {
		t.Fatalf("unexpected map %v", m)
	}
}
