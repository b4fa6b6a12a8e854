package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"sstranslate/src/screenshot"
	"sstranslate/src/settings"
	"sstranslate/src/singleinstance"
	"sstranslate/src/translate"
)

type fakeEngine struct {
	text    string
	err     error
	gotLang string
	gotSize image.Point
	block   bool
}

func (f *fakeEngine) Name() string { return "fake" }
func (f *fakeEngine) Close() error { return nil }
func (f *fakeEngine) Recognize(ctx context.Context, img image.Image, lang string) (string, error) {
	f.gotLang = lang
	f.gotSize = img.Bounds().Size()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

type fakeTranslator struct {
	got      translate.Request
	text     string
	detected string
	err      error
}

func (f *fakeTranslator) Name() string { return "fake" }
func (f *fakeTranslator) Translate(ctx context.Context, req translate.Request) (translate.Result, error) {
	f.got = req
	if f.err != nil {
		return translate.Result{}, f.err
	}
	return translate.Result{Text: f.text, DetectedSourceLang: f.detected}, nil
}

func screen() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 100, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func TestRunCropsCleansAndTranslates(t *testing.T) {
	eng := &fakeEngine{text: "Hel-\nlo\nworld\n"}
	tr := &fakeTranslator{text: "Merhaba dünya"}
	res, err := Run(context.Background(), Options{
		Image:           screen(),
		Region:          screenshot.Region{X: 10, Y: 10, Width: 40, Height: 20},
		Engine:          eng,
		Translator:      tr,
		Settings:        settings.Settings{SourceLang: "EN", TargetLang: "TR"},
		OCRFallbackLang: "eng",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if eng.gotSize != (image.Point{X: 40, Y: 20}) {
		t.Errorf("expected cropped 40x20 image, got %v", eng.gotSize)
	}
	if eng.gotLang != "eng" {
		t.Errorf("expected tesseract lang eng, got %q", eng.gotLang)
	}
	if tr.got.Text != "Hello world" || tr.got.SourceLang != "EN" || tr.got.TargetLang != "TR" {
		t.Errorf("unexpected request: %+v", tr.got)
	}
	if res.SourceText != "Hello world" || res.TranslatedText != "Merhaba dünya" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestRunAutoUsesDetectedLanguage(t *testing.T) {
	eng := &fakeEngine{text: "Guten Tag"}
	tr := &fakeTranslator{text: "Good day", detected: "DE"}
	res, err := Run(context.Background(), Options{
		Image:           screen(),
		Engine:          eng,
		Translator:      tr,
		Settings:        settings.Settings{SourceLang: "auto", TargetLang: "EN-US"},
		OCRFallbackLang: "eng+deu",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if eng.gotLang != "eng+deu" {
		t.Errorf("auto source should use fallback OCR langs, got %q", eng.gotLang)
	}
	if res.SourceLang != "DE" {
		t.Errorf("expected detected DE, got %q", res.SourceLang)
	}
}

func TestRunErrors(t *testing.T) {
	apiErr := &translate.APIError{Status: 456, Kind: translate.ErrQuotaExceeded}
	tests := []struct {
		name   string
		engine *fakeEngine
		tr     *fakeTranslator
		region screenshot.Region
		want   error
	}{
		{"blank text", &fakeEngine{text: " \n\n "}, &fakeTranslator{}, screenshot.Region{}, ErrNoText},
		{"ocr failure", &fakeEngine{err: errors.New("boom")}, &fakeTranslator{}, screenshot.Region{}, nil},
		{"quota", &fakeEngine{text: "x"}, &fakeTranslator{err: apiErr}, screenshot.Region{}, translate.ErrQuotaExceeded},
		{"region outside", &fakeEngine{text: "x"}, &fakeTranslator{}, screenshot.Region{X: 500, Y: 500, Width: 5, Height: 5}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), Options{
				Image:      screen(),
				Region:     tt.region,
				Engine:     tt.engine,
				Translator: tt.tr,
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRunDeadline(t *testing.T) {
	start := time.Now()
	_, err := Run(context.Background(), Options{
		Image:      screen(),
		Engine:     &fakeEngine{block: true},
		Translator: &fakeTranslator{},
		Deadline:   50 * time.Millisecond,
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("deadline not honored")
	}
}

func TestRunRequiresInputs(t *testing.T) {
	if _, err := Run(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for missing image")
	}
	if _, err := Run(context.Background(), Options{Image: screen()}); err == nil {
		t.Fatal("expected error for missing engine")
	}
}

type fakeConn struct {
	ok      bool
	success string
	failure string
}

func (c *fakeConn) Request() singleinstance.Request { return singleinstance.Request{} }
func (c *fakeConn) RespondSuccess(text string) error {
	c.ok = true
	c.success = text
	return nil
}
func (c *fakeConn) RespondError(msg string) error {
	c.failure = msg
	return nil
}
func (c *fakeConn) Close() error { return nil }

func TestTargets(t *testing.T) {
	var buf bytes.Buffer
	if err := (StdoutTarget{Writer: &buf}).OnSuccess(Result{TranslatedText: "hola"}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "hola\n" {
		t.Errorf("stdout target wrote %q", buf.String())
	}

	conn := &fakeConn{}
	target := DelegatedTarget{Conn: conn}
	_ = target.OnSuccess(Result{TranslatedText: "bonjour"})
	if !conn.ok || conn.success != "bonjour" {
		t.Errorf("delegated success not sent: %+v", conn)
	}
	_ = target.OnFailure(ErrNoText)
	if !strings.Contains(conn.failure, "No text") {
		t.Errorf("unexpected failure message %q", conn.failure)
	}
	if err := (DelegatedTarget{}).OnSuccess(Result{}); err == nil {
		t.Error("expected error without connection")
	}
}
