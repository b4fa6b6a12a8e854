package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"sstranslate/src/llm"
)

func TestOpenRouterTranslate(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(llm.ChatResponse{Choices: []llm.Choice{{Message: llm.ResponseMessage{Content: "Guten Morgen"}}}})
	}))
	defer srv.Close()

	o := NewOpenRouter(llm.New(llm.Config{APIKey: "key", Model: "m", BaseURL: srv.URL}))
	if o.Name() != "OpenRouter" {
		t.Errorf("unexpected name %q", o.Name())
	}

	res, err := o.Translate(context.Background(), Request{Text: "Good morning", SourceLang: "EN", TargetLang: "DE"})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if res.Text != "Guten Morgen" || res.DetectedSourceLang != "" {
		t.Fatalf("unexpected result %+v", res)
	}

	res, err = o.Translate(context.Background(), Request{Text: "  ", TargetLang: "DE"})
	if err != nil || res.Text != "" {
		t.Fatalf("blank text: got %+v, %v", res, err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected one request, got %d", n)
	}
}

func TestOpenRouterAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	o := NewOpenRouter(llm.New(llm.Config{APIKey: "bad", Model: "m", BaseURL: srv.URL}))
	_, err := o.Translate(context.Background(), Request{Text: "Hello", TargetLang: "DE"})
	if !errors.Is(err, ErrAuthorization) || !errors.Is(err, llm.ErrUnauthorized) {
		t.Fatalf("expected an authorization error, got %v", err)
	}
	if got, want := Describe(err), Describe(ErrAuthorization); got != want {
		t.Fatalf("Describe = %q, want %q", got, want)
	}
	if got := Describe(fmt.Errorf("OCR failed: %w", llm.ErrUnauthorized)); got != Describe(ErrAuthorization) {
		t.Fatalf("vision OCR auth failures must get the key hint, got %q", got)
	}
}
