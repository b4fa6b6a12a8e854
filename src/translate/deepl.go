package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sstranslate/src/langs"
)

const (
	deeplFreeURL = "https://api-free.deepl.com"
	deeplProURL  = "https://api.deepl.com"

	// DeepL's non-standard status for an exhausted character quota.
	statusQuotaExceeded = 456
)

type DeepLOptions struct {
	APIKey     string
	BaseURL    string // empty selects the free or pro endpoint from the key
	HTTPClient *http.Client
}

type DeepL struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

type Usage struct {
	CharacterCount int64 `json:"character_count"`
	CharacterLimit int64 `json:"character_limit"`
}

type deeplRequest struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
	SourceLang string   `json:"source_lang,omitempty"`
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

func NewDeepL(opts DeepLOptions) *DeepL {
	key := strings.TrimSpace(opts.APIKey)
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DeepLEndpoint(key)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &DeepL{apiKey: key, baseURL: base, http: hc}
}

// DeepLEndpoint picks the API host for a key; free-plan keys end in ":fx".
func DeepLEndpoint(apiKey string) string {
	if strings.HasSuffix(apiKey, ":fx") {
		return deeplFreeURL
	}
	return deeplProURL
}

func (d *DeepL) Name() string { return "DeepL" }

func (d *DeepL) Translate(ctx context.Context, req Request) (Result, error) {
	if d.apiKey == "" {
		return Result{}, ErrMissingAPIKey
	}
	if strings.TrimSpace(req.Text) == "" {
		return Result{}, nil
	}

	body := deeplRequest{
		Text:       []string{req.Text},
		TargetLang: strings.ToUpper(req.TargetLang),
	}
	if src := strings.ToUpper(strings.TrimSpace(req.SourceLang)); src != "" && !strings.EqualFold(src, langs.Auto) {
		body.SourceLang = src
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	var out deeplResponse
	if err := d.do(ctx, http.MethodPost, "/v2/translate", payload, &out); err != nil {
		return Result{}, err
	}
	if len(out.Translations) == 0 {
		return Result{}, fmt.Errorf("DeepL returned no translations")
	}
	t := out.Translations[0]
	return Result{Text: t.Text, DetectedSourceLang: t.DetectedSourceLanguage}, nil
}

// Usage reports the characters translated in the current billing period.
func (d *DeepL) Usage(ctx context.Context) (Usage, error) {
	if d.apiKey == "" {
		return Usage{}, ErrMissingAPIKey
	}
	var u Usage
	if err := d.do(ctx, http.MethodGet, "/v2/usage", nil, &u); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (d *DeepL) do(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("DeepL request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read DeepL response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return deeplError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode DeepL response: %w", err)
	}
	return nil
}

func deeplError(status int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)

	e := &APIError{Status: status, Message: payload.Message}
	switch status {
	case http.StatusForbidden, http.StatusUnauthorized:
		e.Kind = ErrAuthorization
	case statusQuotaExceeded:
		e.Kind = ErrQuotaExceeded
	case http.StatusTooManyRequests:
		e.Kind = ErrRateLimited
	}
	return e
}
