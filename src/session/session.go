package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"sstranslate/src/clipboard"
	"sstranslate/src/langs"
	"sstranslate/src/ocr"
	"sstranslate/src/screenshot"
	"sstranslate/src/settings"
	"sstranslate/src/singleinstance"
	"sstranslate/src/textclean"
	"sstranslate/src/translate"
)

var (
	ErrSelectionCancelled = errors.New("selection cancelled")
	ErrNoText             = errors.New("no text recognized in the selected region")
)

const DefaultDeadline = 20 * time.Second

type Options struct {
	// Image is the frozen screen; Region is relative to its origin. A zero
	// Region means the whole image.
	Image           image.Image
	Region          screenshot.Region
	Engine          ocr.Engine
	Translator      translate.Translator
	Settings        settings.Settings
	OCRFallbackLang string
	Deadline        time.Duration
}

type Result struct {
	SourceText     string
	TranslatedText string
	SourceLang     string
	TargetLang     string
	Elapsed        time.Duration
}

// Run recognizes the text in the selected region and translates it.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Image == nil {
		return Result{}, errors.New("Image is required")
	}
	if opts.Engine == nil {
		return Result{}, errors.New("Engine is required")
	}
	if opts.Translator == nil {
		return Result{}, errors.New("Translator is required")
	}

	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	jobCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	started := time.Now()

	img := opts.Image
	if !opts.Region.Empty() {
		cropped, err := screenshot.Crop(opts.Image, opts.Region)
		if err != nil {
			return Result{}, err
		}
		img = cropped
	}

	source := opts.Settings.SourceLang
	target := opts.Settings.TargetLang
	ocrLang := langs.TesseractFor(source, opts.OCRFallbackLang)

	raw, err := opts.Engine.Recognize(jobCtx, img, ocrLang)
	if err != nil {
		return Result{}, fmt.Errorf("OCR failed: %w", err)
	}
	text := textclean.Clean(raw)
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrNoText
	}
	log.Printf("Session: recognized %d chars with %s (%s)", len(text), opts.Engine.Name(), ocrLang)

	res, err := opts.Translator.Translate(jobCtx, translate.Request{
		Text:       text,
		SourceLang: source,
		TargetLang: target,
	})
	if err != nil {
		return Result{}, err
	}

	detected := source
	if res.DetectedSourceLang != "" && (source == "" || strings.EqualFold(source, langs.Auto)) {
		detected = res.DetectedSourceLang
	}

	out := Result{
		SourceText:     text,
		TranslatedText: res.Text,
		SourceLang:     detected,
		TargetLang:     target,
		Elapsed:        time.Since(started),
	}
	log.Printf("Session: translated %s->%s via %s in %v", out.SourceLang, out.TargetLang, opts.Translator.Name(), out.Elapsed.Round(time.Millisecond))
	return out, nil
}

// ResultTarget receives the outcome of a run started by a particular requester.
type ResultTarget interface {
	OnSuccess(res Result) error
	OnFailure(err error) error
}

type ClipboardTarget struct{}

func (ClipboardTarget) OnSuccess(res Result) error {
	return clipboard.Write(res.TranslatedText)
}

func (ClipboardTarget) OnFailure(err error) error {
	return nil
}

type StdoutTarget struct {
	Writer io.Writer
}

func (t StdoutTarget) OnSuccess(res Result) error {
	w := t.Writer
	if w == nil {
		w = os.Stdout
	}
	_, err := fmt.Fprintln(w, res.TranslatedText)
	return err
}

func (t StdoutTarget) OnFailure(err error) error {
	return nil
}

// DelegatedTarget answers a TRANSLATE request from another process.
type DelegatedTarget struct {
	Conn singleinstance.Conn
}

func (t DelegatedTarget) OnSuccess(res Result) error {
	if t.Conn == nil {
		return errors.New("delegated target missing connection")
	}
	return t.Conn.RespondSuccess(res.TranslatedText)
}

func (t DelegatedTarget) OnFailure(err error) error {
	if t.Conn == nil {
		return nil
	}
	if err == nil {
		return t.Conn.RespondError("unknown session error")
	}
	return t.Conn.RespondError(describe(err))
}

// describe renders err for users; errors.Is checks wrap the translate
// sentinels too.
func describe(err error) string {
	switch {
	case errors.Is(err, ErrSelectionCancelled):
		return "Selection cancelled"
	case errors.Is(err, ErrNoText):
		return "No text found in the selected region"
	default:
		return translate.Describe(err)
	}
}

// Describe is the user-facing message for a failed run.
func Describe(err error) string { return describe(err) }
