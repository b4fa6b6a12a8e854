package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sstranslate/src/history"
	"sstranslate/src/session"
	"sstranslate/src/settings"
)

// execute runs the CLI against a private data directory.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("OCR_ENGINE", "tesseract")
	t.Setenv("TRANSLATOR", "deepl")
	t.Setenv("DEEPL_API_KEY", "")

	var out bytes.Buffer
	cmd := newRootCmd(&cliOptions{})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--data-dir", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"sstranslate-cli", "image", "-file", "a.png", "-json"},
			out:  []string{"sstranslate-cli", "image", "--file", "a.png", "--json"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"sstranslate-cli", "image", "-file=a.png", "-to=DE"},
			out:  []string{"sstranslate-cli", "image", "--file=a.png", "--to=DE"},
		},
		{
			name: "Leaves short and unknown flags unchanged",
			in:   []string{"sstranslate-cli", "-v", "--json", "-other"},
			out:  []string{"sstranslate-cli", "-v", "--json", "-other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if strings.Join(got, " ") != strings.Join(tt.out, " ") {
				t.Fatalf("Expected %q, got %q", tt.out, got)
			}
		})
	}
}

func TestPNGValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{
			name:    "ValidPNG",
			data:    []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00},
			wantErr: false,
		},
		{
			name:    "InvalidMagic",
			data:    []byte{0x00, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a},
			wantErr: true,
		},
		{
			name:    "TooShort",
			data:    []byte{0x89, 'P', 'N', 'G'},
			wantErr: true,
		},
		{
			name:    "Empty",
			data:    []byte{},
			wantErr: true,
		},
		{
			name:    "TooLarge",
			data:    append(append([]byte{}, pngMagic...), make([]byte, maxFileSize)...),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePNG(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePNG() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestImageRequiresInput(t *testing.T) {
	_, err := execute(t, t.TempDir(), "image")
	if err == nil || !strings.Contains(err.Error(), "--file") {
		t.Fatalf("Expected missing input error, got %v", err)
	}
}

func TestImageMissingFile(t *testing.T) {
	_, err := execute(t, t.TempDir(), "image", "--file", filepath.Join(t.TempDir(), "missing.png"))
	if err == nil || !strings.Contains(err.Error(), "failed to read file") {
		t.Fatalf("Expected read error, got %v", err)
	}
}

func TestImageRejectsNonPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, t.TempDir(), "image", "--file", path)
	if err == nil || !strings.Contains(err.Error(), "not a valid PNG") {
		t.Fatalf("Expected PNG validation error, got %v", err)
	}
}

func TestImageRejectsOversizeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.png")
	data := append(append([]byte{}, pngMagic...), make([]byte, maxFileSize)...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readFileLimited(path); err == nil || !strings.Contains(err.Error(), "exceeds maximum size") {
		t.Fatalf("Expected size error, got %v", err)
	}
}

func TestImageLanguageFlags(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		wantErr  string
		wantFrom string
		wantTo   string
	}{
		{name: "Defaults kept", wantFrom: "EN", wantTo: "DE"},
		{name: "Codes normalized", from: "de", to: "en-us", wantFrom: "DE", wantTo: "EN-US"},
		{name: "Auto source", from: "auto", wantFrom: "auto", wantTo: "DE"},
		{name: "Auto target rejected", to: "auto", wantErr: "target"},
		{name: "Unknown target rejected", to: "xx", wantErr: "target"},
		{name: "Unknown source rejected", from: "klingon", wantErr: "source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := settings.Defaults()
			base.SourceLang, base.TargetLang = "EN", "DE"
			got, err := withLanguages(base, tt.from, tt.to)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Expected %q error, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got.SourceLang != tt.wantFrom || got.TargetLang != tt.wantTo {
				t.Errorf("Expected %s->%s, got %s->%s", tt.wantFrom, tt.wantTo, got.SourceLang, got.TargetLang)
			}
		})
	}
}

func TestImageRejectsAutoTargetBeforeReading(t *testing.T) {
	_, err := execute(t, t.TempDir(), "image", "--file", filepath.Join(t.TempDir(), "missing.png"), "--to", "auto")
	if err == nil || !strings.Contains(err.Error(), "unsupported target language") {
		t.Fatalf("Expected target language error, got %v", err)
	}
}

func TestImageRegion(t *testing.T) {
	_, err := execute(t, t.TempDir(), "image", "--region", "10,20,0,5")
	if err == nil || !strings.Contains(err.Error(), "region") {
		t.Fatalf("Expected region error, got %v", err)
	}

	_, err = execute(t, t.TempDir(), "image", "--region", "0,0,5,5", "--file", "a.png")
	if err == nil {
		t.Fatal("Expected --region and --file to be mutually exclusive")
	}

	opts := imageOptions{region: "0,0,5,5"}
	if got := sourceName(opts); got != "screen 0,0,5,5" {
		t.Errorf("Expected screen source, got %q", got)
	}
}

func TestDescribedErrorKeepsCause(t *testing.T) {
	err := &describedError{msg: session.Describe(session.ErrNoText), err: session.ErrNoText}
	if err.Error() != "No text found in the selected region" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if !errors.Is(err, session.ErrNoText) {
		t.Error("Expected errors.Is to reach the cause")
	}
}

func TestOutputResult(t *testing.T) {
	res := session.Result{
		SourceText:     "Hello",
		TranslatedText: "Merhaba",
		SourceLang:     "EN",
		TargetLang:     "TR",
		Elapsed:        1500 * time.Millisecond,
	}

	var plain bytes.Buffer
	if err := outputResult(&plain, res, "a.png", false); err != nil {
		t.Fatal(err)
	}
	if plain.String() != "Merhaba\n" {
		t.Fatalf("unexpected plain output %q", plain.String())
	}

	var js bytes.Buffer
	if err := outputResult(&js, res, "a.png", true); err != nil {
		t.Fatal(err)
	}
	var got TranslationResult
	if err := json.Unmarshal(js.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Translated != "Merhaba" || got.Text != "Hello" || got.Source != "a.png" || got.Duration != 1.5 {
		t.Fatalf("unexpected JSON result %+v", got)
	}
}

func TestHistoryCommands(t *testing.T) {
	dir := t.TempDir()
	hist, err := history.Open(filepath.Join(dir, history.FileName), 50)
	if err != nil {
		t.Fatal(err)
	}
	first, _, err := hist.Add("Good morning", "Günaydın", "EN", "TR")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := hist.Add("Thank you", "Teşekkürler", "EN", "TR"); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, dir, "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out, "Günaydın") || !strings.Contains(out, "Teşekkürler") {
		t.Fatalf("unexpected list output:\n%s", out)
	}

	out, err = execute(t, dir, "history", "list", "--json", "--limit", "1")
	if err != nil {
		t.Fatalf("history list --json: %v", err)
	}
	var entries []history.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].Translated != "Teşekkürler" {
		t.Fatalf("Expected newest entry only, got %+v", entries)
	}

	if _, err := execute(t, dir, "history", "delete", first.ID); err != nil {
		t.Fatalf("history delete: %v", err)
	}
	if _, err := execute(t, dir, "history", "delete", first.ID); err == nil {
		t.Fatal("Expected deleting a missing entry to fail")
	}

	out, err = execute(t, dir, "history", "clear")
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 1 entries") {
		t.Fatalf("unexpected clear output %q", out)
	}

	out, err = execute(t, dir, "history", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No saved translations.") {
		t.Fatalf("unexpected empty list output %q", out)
	}
}

func TestSettingsCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "settings", "set", "target_lang", "DE")
	if err != nil {
		t.Fatalf("settings set: %v", err)
	}
	if !strings.Contains(out, "DE") {
		t.Fatalf("unexpected set output:\n%s", out)
	}

	if _, err := execute(t, dir, "settings", "set", "api_key", "abcd1234efgh5678:fx"); err != nil {
		t.Fatalf("settings set api_key: %v", err)
	}
	out, err = execute(t, dir, "settings", "show", "--json")
	if err != nil {
		t.Fatalf("settings show: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if doc["target_lang"] != "DE" {
		t.Fatalf("Expected target_lang DE, got %v", doc["target_lang"])
	}
	if doc["api_key"] == "abcd1234efgh5678:fx" {
		t.Fatal("API key must be redacted in output")
	}

	if _, err := execute(t, dir, "settings", "set", "colour", "blue"); err == nil {
		t.Fatal("Expected unknown key to fail")
	}

	if _, err := execute(t, dir, "settings", "reset"); err != nil {
		t.Fatalf("settings reset: %v", err)
	}
	st, err := settings.Open(filepath.Join(dir, settings.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if st.Get() != settings.Defaults() {
		t.Fatalf("Expected defaults after reset, got %+v", st.Get())
	}
}

func TestLangsCommand(t *testing.T) {
	out, err := execute(t, t.TempDir(), "langs")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "auto") {
		t.Fatalf("Expected auto in source list:\n%s", out)
	}

	out, err = execute(t, t.TempDir(), "langs", "--target")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "auto") {
		t.Fatalf("auto must not be a target:\n%s", out)
	}
	if !strings.Contains(out, "TR") {
		t.Fatalf("Expected TR in target list:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 0, "hello"},
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"çalışkanlık", 6, "çal..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestOutputWidthNonTerminal(t *testing.T) {
	if w := outputWidth(&bytes.Buffer{}); w != 0 {
		t.Fatalf("Expected 0 for a buffer, got %d", w)
	}
}
