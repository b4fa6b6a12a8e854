package runtimeinit

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"sstranslate/src/clipboard"
	"sstranslate/src/config"
	"sstranslate/src/history"
	"sstranslate/src/llm"
	"sstranslate/src/logutil"
	"sstranslate/src/ocr"
	"sstranslate/src/settings"
	"sstranslate/src/translate"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(cfg *config.Config)
	// InitClipboard initializes the system clipboard; failure only disables copying.
	InitClipboard bool
}

// Runtime holds everything a translation needs, shared by the resident
// app and the CLI.
type Runtime struct {
	Config     *config.Config
	Settings   *settings.Store
	History    *history.Store
	Engine     ocr.Engine
	HTTPClient *http.Client
	// ClipboardReady is false when the clipboard could not be initialized.
	ClipboardReady bool
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg)
	}

	needsOpenRouter := cfg.OCREngine == config.EngineLLM || cfg.Translator == config.TranslatorOpenRouter
	if needsOpenRouter && (cfg.OpenRouterAPIKey == "" || cfg.Model == "") {
		return nil, fmt.Errorf("OPENROUTER_API_KEY and MODEL are required when OCR_ENGINE=llm or TRANSLATOR=openrouter")
	}

	st, err := settings.Open(cfg.SettingsPath())
	if err != nil {
		return nil, err
	}
	hist, err := history.Open(cfg.HistoryPath(), cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}
	engine, err := ocr.New(cfg)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:     cfg,
		Settings:   st,
		History:    hist,
		Engine:     engine,
		HTTPClient: &http.Client{Timeout: time.Duration(cfg.TranslateDeadlineSec) * time.Second},
	}

	if opts.InitClipboard {
		if err := clipboard.Init(); err != nil {
			log.Printf("Clipboard unavailable, copying disabled: %v", err)
		} else {
			rt.ClipboardReady = true
		}
	}

	s := st.Get()
	log.Printf("Data directory: %s", cfg.DataDir)
	log.Printf("OCR engine: %s, translator: %s", engine.Name(), cfg.Translator)
	log.Printf("Languages: %s -> %s", s.SourceLang, s.TargetLang)
	log.Printf("DeepL key: %s", logutil.RedactKey(rt.APIKey(s)))
	return rt, nil
}

// APIKey is the DeepL key in effect for s.
func (r *Runtime) APIKey(s settings.Settings) string {
	return translate.ResolveAPIKey(s.APIKey, r.Config.DeepLAPIKey)
}

// Translator builds the configured translator for the given settings.
func (r *Runtime) Translator(s settings.Settings) translate.Translator {
	return translate.New(r.Config, r.APIKey(s), r.HTTPClient)
}

// MissingKey reports whether DeepL is selected but no key is configured.
func (r *Runtime) MissingKey() bool {
	return r.Config.Translator == config.TranslatorDeepL && r.APIKey(r.Settings.Get()) == ""
}

// CheckKey validates apiKey against the translation service. An empty
// apiKey checks the key currently in effect.
func (r *Runtime) CheckKey(ctx context.Context, apiKey string) (string, error) {
	if r.Config.Translator == config.TranslatorOpenRouter {
		client := llm.New(llm.Config{
			APIKey:     r.Config.OpenRouterAPIKey,
			Model:      r.Config.Model,
			Providers:  r.Config.Providers,
			HTTPClient: r.HTTPClient,
		})
		if err := client.Ping(ctx); err != nil {
			return "", err
		}
		return "OpenRouter key OK.", nil
	}

	if apiKey == "" {
		apiKey = r.APIKey(r.Settings.Get())
	}
	d := translate.NewDeepL(translate.DeepLOptions{APIKey: apiKey, BaseURL: r.Config.DeepLAPIURL, HTTPClient: r.HTTPClient})
	u, err := d.Usage(ctx)
	if err != nil {
		return "", err
	}
	return FormatUsage(u), nil
}

// FormatUsage renders a usage report for people.
func FormatUsage(u translate.Usage) string {
	if u.CharacterLimit <= 0 {
		return fmt.Sprintf("Key OK: %d characters used this period.", u.CharacterCount)
	}
	pct := float64(u.CharacterCount) * 100 / float64(u.CharacterLimit)
	return fmt.Sprintf("Key OK: %d of %d characters used this period (%.1f%%).", u.CharacterCount, u.CharacterLimit, pct)
}

func (r *Runtime) Close() error {
	if r.Engine == nil {
		return nil
	}
	return r.Engine.Close()
}
