package gui

import (
	"image"
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"

	"sstranslate/src/config"
	"sstranslate/src/history"
	"sstranslate/src/overlay"
	"sstranslate/src/settings"
)

func newTestApp(t *testing.T) (*App, *settings.Store, *history.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := settings.Open(filepath.Join(dir, settings.FileName))
	if err != nil {
		t.Fatal(err)
	}
	hist, err := history.Open(filepath.Join(dir, history.FileName), 10)
	if err != nil {
		t.Fatal(err)
	}
	a := test.NewApp()
	t.Cleanup(a.Quit)
	app := New(a, Options{
		Config:    &config.Config{CaptureHotkey: "F8", CloseHotkey: "Esc"},
		Settings:  st,
		History:   hist,
		Clipboard: func(string) error { return nil },
	})
	return app, st, hist
}

func TestPanelSavesSettings(t *testing.T) {
	app, st, _ := newTestApp(t)
	p := newPanel(app)

	p.source.SetSelected("German (DE)")
	p.width.SetText("640")
	p.height.SetText("320")
	p.apiKey.SetText("abc:fx")
	p.saveSettings()

	got := st.Get()
	if got.SourceLang != "DE" || got.OverlayWidth != 640 || got.OverlayHeight != 320 || got.APIKey != "abc:fx" {
		t.Fatalf("unexpected settings %+v", got)
	}
	if p.status.Text != "Settings saved." {
		t.Errorf("status = %q", p.status.Text)
	}
}

func TestPanelRejectsBadWidth(t *testing.T) {
	app, st, _ := newTestApp(t)
	p := newPanel(app)
	p.width.SetText("wide")
	if _, err := p.formSettings(); err == nil {
		t.Fatal("expected error for non-numeric width")
	}
	if st.Get().OverlayWidth != settings.Defaults().OverlayWidth {
		t.Fatal("settings must not change")
	}
}

func TestPanelHistory(t *testing.T) {
	app, _, hist := newTestApp(t)
	if _, _, err := hist.Add("Hello", "Merhaba", "EN", "TR"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := hist.Add("World", "Dünya", "EN", "TR"); err != nil {
		t.Fatal(err)
	}
	p := newPanel(app)
	p.reloadHistory()
	if len(p.entries) != 2 || p.entries[0].Source != "World" {
		t.Fatalf("unexpected entries %+v", p.entries)
	}

	p.selected = 0
	e, ok := p.selectedEntry()
	if !ok || e.Translated != "Dünya" {
		t.Fatalf("unexpected selection %+v", e)
	}
}

func TestSelectionSurfaceDrag(t *testing.T) {
	var got overlay.Rect
	var gotOK bool
	s := newSelectionSurface(image.NewRGBA(image.Rect(0, 0, 200, 100)), func(r overlay.Rect, ok bool) {
		got, gotOK = r, ok
	})
	s.Resize(fyne.NewSize(200, 100))

	s.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(60, 50)}, Dragged: fyne.NewDelta(10, 10)})
	s.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(20, 70)}, Dragged: fyne.NewDelta(-40, 20)})
	s.DragEnd()

	if !gotOK || got != (overlay.Rect{X: 20, Y: 40, W: 30, H: 30}) {
		t.Fatalf("got %v ok=%v", got, gotOK)
	}

	s.Tapped(&fyne.PointEvent{})
	if gotOK {
		t.Fatal("a tap must cancel")
	}
}

func TestSelectionOutcomeScales(t *testing.T) {
	sel := &selection{img: image.NewRGBA(image.Rect(0, 0, 400, 200))}
	sel.surface = newSelectionSurface(sel.img, func(overlay.Rect, bool) {})
	sel.surface.Resize(fyne.NewSize(200, 100))

	out := sel.outcome(overlay.Rect{X: 10, Y: 10, W: 50, H: 20})
	if out.cancelled || out.region.X != 20 || out.region.Width != 100 || out.region.Height != 40 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out := sel.outcome(overlay.Rect{X: 10, Y: 10, W: 1, H: 1}); !out.cancelled {
		t.Fatal("tiny selections must cancel")
	}
}

func TestCursorFor(t *testing.T) {
	if cursorFor(overlay.EdgeNone) != cursorFor(0) {
		t.Fatal("cursorFor must be stable")
	}
	if cursorFor(overlay.EdgeLeft) == cursorFor(overlay.EdgeTop) {
		t.Fatal("horizontal and vertical resize cursors must differ")
	}
}

func TestOverlayResizeWithoutNative(t *testing.T) {
	app, st, _ := newTestApp(t)
	w := app.fyne.NewWindow("overlay")
	w.SetPadded(false)
	var saved fyne.Size
	s := newDragSurface(w, noopNative{}, func(sz fyne.Size) { saved = sz })
	w.SetContent(s)
	w.Resize(fyne.NewSize(400, 300))

	// Grab near the bottom-right corner and drag outwards.
	s.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(398, 298)}, Dragged: fyne.NewDelta(2, 2)})
	s.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(448, 318)}, Dragged: fyne.NewDelta(48, 18)})
	s.DragEnd()

	if saved.Width <= 400 || saved.Height <= 300 {
		t.Fatalf("expected the window to grow, saved %v", saved)
	}
	app.saveOverlaySize(saved)
	if got := st.Get(); got.OverlayWidth != int(saved.Width) {
		t.Fatalf("size not persisted: %+v", got)
	}
}

type noopNative struct{}

func (noopNative) cursor() (overlay.Point, bool)         { return overlay.Point{}, false }
func (noopNative) rect(fyne.Window) (overlay.Rect, bool) { return overlay.Rect{}, false }
func (noopNative) place(fyne.Window, overlay.Rect) bool  { return false }
func (noopNative) topmost(fyne.Window) bool              { return false }
