package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	maxRetries     = 3
	initialDelay   = 1 * time.Second
	noTextMarker   = "NO_TEXT_FOUND"
)

var (
	ErrNoText = errors.New("no text detected in image")

	// ErrUnauthorized is a 401/403 reply; it is never retried.
	ErrUnauthorized = errors.New("OpenRouter rejected the API key")
)

type Config struct {
	APIKey     string
	Model      string
	Providers  []string
	BaseURL    string
	HTTPClient *http.Client
}

// Client talks to the OpenRouter chat completions API.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 45 * time.Second}
	}
	return &Client{cfg: cfg, http: hc}
}

// OpenRouter API structures
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ProviderPreferences struct {
	Order          []string `json:"order,omitempty"`
	AllowFallbacks *bool    `json:"allow_fallbacks,omitempty"`
}

type ChatRequest struct {
	Model       string               `json:"model"`
	Messages    []Message            `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Provider    *ProviderPreferences `json:"provider,omitempty"`
}

type ChatResponse struct {
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

type Choice struct {
	Message ResponseMessage `json:"message"`
}

type ResponseMessage struct {
	Content string `json:"content"`
}

type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"` // string or number
}

func (c *Client) validate() error {
	if c == nil {
		return fmt.Errorf("LLM client not initialized")
	}
	if c.cfg.APIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if c.cfg.Model == "" {
		return fmt.Errorf("MODEL is required")
	}
	return nil
}

// providerPreferences pins the configured providers without fallbacks.
func (c *Client) providerPreferences() *ProviderPreferences {
	if len(c.cfg.Providers) == 0 {
		return nil
	}
	allowFallbacks := false
	return &ProviderPreferences{
		Order:          c.cfg.Providers,
		AllowFallbacks: &allowFallbacks,
	}
}

// QueryVision sends a PNG to the vision model and returns the raw text.
func (c *Client) QueryVision(ctx context.Context, imageData []byte) (string, error) {
	if err := c.validate(); err != nil {
		return "", err
	}

	imageURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageData)
	request := ChatRequest{
		Model: c.cfg.Model,
		Messages: []Message{
			{
				Role: "user",
				Content: []Content{
					{
						Type: "text",
						Text: "Perform OCR on this image. Return ONLY the raw extracted text with:\n" +
							"- No formatting\n" +
							"- No XML/HTML tags\n" +
							"- No markdown\n" +
							"- No explanations\n" +
							"- Preserve line breaks accurately from the visual layout.\n" +
							"If no text found, return '" + noTextMarker + "'",
					},
					{Type: "image_url", ImageURL: &ImageURL{URL: imageURL}},
				},
			},
		},
		Temperature: 0.1,
		MaxTokens:   2000,
		Provider:    c.providerPreferences(),
	}

	text, err := c.complete(ctx, request)
	if err != nil {
		return "", err
	}
	text = cleanExtractedText(text)
	if strings.TrimSpace(text) == "" || strings.TrimSpace(text) == noTextMarker {
		return "", ErrNoText
	}
	return text, nil
}

// Translate asks the chat model for a plain translation. An empty or
// "auto" source lets the model detect the language.
func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	if err := c.validate(); err != nil {
		return "", err
	}

	from := "the detected source language"
	if source != "" && !strings.EqualFold(source, "auto") {
		from = "language code " + source
	}
	prompt := fmt.Sprintf("Translate the following text from %s into language code %s. "+
		"Return ONLY the translation, keep paragraph breaks, no explanations.\n\n%s", from, target, text)

	request := ChatRequest{
		Model: c.cfg.Model,
		Messages: []Message{
			{Role: "user", Content: []Content{{Type: "text", Text: prompt}}},
		},
		Temperature: 0.2,
		MaxTokens:   4000,
		Provider:    c.providerPreferences(),
	}

	out, err := c.complete(ctx, request)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Ping sends a tiny completion to validate the key and model.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.validate(); err != nil {
		return err
	}
	request := ChatRequest{
		Model:     c.cfg.Model,
		Messages:  []Message{{Role: "user", Content: []Content{{Type: "text", Text: "ping"}}}},
		MaxTokens: 1,
		Provider:  c.providerPreferences(),
	}
	_, err := c.makeAPIRequest(ctx, request)
	return err
}

// complete runs request with retries and linear backoff.
func (c *Client) complete(ctx context.Context, request ChatRequest) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(initialDelay) * (1.5 * float64(attempt)))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		response, err := c.makeAPIRequest(ctx, request)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if errors.Is(err, ErrUnauthorized) {
				return "", err
			}
			log.Printf("llm: attempt %d failed: %v", attempt+1, err)
			lastErr = err
			continue
		}
		if len(response.Choices) == 0 {
			lastErr = fmt.Errorf("no choices in API response")
			continue
		}
		return response.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) makeAPIRequest(ctx context.Context, request ChatRequest) (*ChatResponse, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("X-Title", "SSTranslate")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	}

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if response.Error != nil {
		return nil, fmt.Errorf("API error: %s (type: %s, code: %v)", response.Error.Message, response.Error.Type, response.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return &response, nil
}

func cleanExtractedText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "</image>")
	return text
}
