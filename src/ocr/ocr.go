package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"sstranslate/src/config"
	"sstranslate/src/llm"
	"sstranslate/src/screenshot"
)

// Engine turns a bitmap into raw text. lang is a tesseract language
// spec ("eng", "eng+deu"); engines that detect languages themselves ignore it.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, lang string) (string, error)
	Name() string
	Close() error
}

// New returns the engine selected by cfg.OCREngine.
func New(cfg *config.Config) (Engine, error) {
	switch cfg.OCREngine {
	case config.EngineLLM:
		log.Printf("OCR engine: LLM vision (model %s)", cfg.Model)
		return NewLLM(llm.New(llm.Config{
			APIKey:    cfg.OpenRouterAPIKey,
			Model:     cfg.Model,
			Providers: cfg.Providers,
		})), nil
	case config.EngineTesseract, "":
		log.Printf("OCR engine: tesseract (fallback languages %s)", cfg.OCRLangs)
		return NewTesseract(), nil
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", cfg.OCREngine)
	}
}

// LLM runs OCR through a vision chat model.
type LLM struct {
	client *llm.Client
}

func NewLLM(client *llm.Client) *LLM { return &LLM{client: client} }

func (e *LLM) Name() string { return "llm" }

func (e *LLM) Recognize(ctx context.Context, img image.Image, _ string) (string, error) {
	data, err := screenshot.EncodePNG(img)
	if err != nil {
		return "", err
	}
	text, err := e.client.QueryVision(ctx, data)
	if errors.Is(err, llm.ErrNoText) {
		return "", nil
	}
	return text, err
}

func (e *LLM) Close() error { return nil }
