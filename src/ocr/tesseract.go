package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"sstranslate/src/screenshot"
)

// Tesseract wraps one gosseract client. The client is not safe for
// concurrent use, so calls are serialized.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func NewTesseract() *Tesseract {
	return &Tesseract{}
}

func (e *Tesseract) Name() string { return "tesseract" }

// Recognize converts img to grayscale and runs tesseract on it. The call
// returns early on ctx cancellation; the native call finishes in the background.
func (e *Tesseract) Recognize(ctx context.Context, img image.Image, lang string) (string, error) {
	data, err := screenshot.EncodePNG(screenshot.Grayscale(img))
	if err != nil {
		return "", err
	}

	type result struct {
		text string
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		text, err := e.run(data, lang)
		resCh <- result{text: text, err: err}
	}()

	select {
	case r := <-resCh:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (e *Tesseract) run(png []byte, lang string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client == nil {
		e.client = gosseract.NewClient()
	}
	if err := e.client.SetLanguage(splitLangs(lang)...); err != nil {
		return "", fmt.Errorf("tesseract: failed to set language %q: %w", lang, err)
	}
	if err := e.client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("tesseract: failed to load image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}

func (e *Tesseract) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

// splitLangs turns "eng+deu" or "eng, deu" into gosseract's language list.
func splitLangs(spec string) []string {
	fields := strings.FieldsFunc(spec, func(r rune) bool { return r == '+' || r == ',' || r == ' ' })
	if len(fields) == 0 {
		return []string{"eng"}
	}
	return fields
}
