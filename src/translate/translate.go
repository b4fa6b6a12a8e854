// Package translate sends recognized text to a translation backend.
package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"sstranslate/src/config"
	"sstranslate/src/llm"
)

var (
	ErrMissingAPIKey = errors.New("translation API key is not set")
	ErrAuthorization = errors.New("authorization failed")
	ErrQuotaExceeded = errors.New("translation quota exceeded")
	ErrRateLimited   = errors.New("too many requests")
)

type Request struct {
	Text       string
	SourceLang string // empty or "auto" lets the backend detect it
	TargetLang string
}

type Result struct {
	Text               string
	DetectedSourceLang string
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
	Name() string
}

// APIError is a non-2xx reply from a backend. Kind holds the matching
// sentinel, when there is one, so callers can use errors.Is.
type APIError struct {
	Status  int
	Message string
	Kind    error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Kind != nil {
		return fmt.Sprintf("%v (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("translation API returned status %d: %s", e.Status, msg)
}

func (e *APIError) Unwrap() error { return e.Kind }

// New builds the translator selected by cfg.Translator. apiKey is the DeepL
// key resolved from settings and the environment.
func New(cfg *config.Config, apiKey string, hc *http.Client) Translator {
	if cfg.Translator == config.TranslatorOpenRouter {
		return NewOpenRouter(llm.New(llm.Config{
			APIKey:     cfg.OpenRouterAPIKey,
			Model:      cfg.Model,
			Providers:  cfg.Providers,
			HTTPClient: hc,
		}))
	}
	return NewDeepL(DeepLOptions{APIKey: apiKey, BaseURL: cfg.DeepLAPIURL, HTTPClient: hc})
}

// ResolveAPIKey prefers the key saved in settings over DEEPL_API_KEY.
func ResolveAPIKey(settingsKey, envKey string) string {
	if settingsKey != "" {
		return settingsKey
	}
	return envKey
}

// Describe turns a translation error into the message shown to the user.
func Describe(err error) string {
	switch {
	case errors.Is(err, ErrMissingAPIKey):
		return "DeepL API key not found.\nEnter it in Settings, or add DEEPL_API_KEY='...' to the .env file next to the program."
	case errors.Is(err, ErrAuthorization), errors.Is(err, llm.ErrUnauthorized):
		return "The translation service rejected the API key. Check it in Settings."
	case errors.Is(err, ErrQuotaExceeded):
		return "The translation quota for this API key is used up."
	case errors.Is(err, ErrRateLimited):
		return "Too many translation requests, please wait a moment and retry."
	case errors.Is(err, context.DeadlineExceeded):
		return "Translation timed out."
	default:
		return fmt.Sprintf("An error occurred: %v", err)
	}
}
