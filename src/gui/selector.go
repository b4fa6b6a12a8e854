package gui

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"sstranslate/src/overlay"
	"sstranslate/src/screenshot"
)

// selector shows a frozen capture of the primary display full screen and
// lets the user drag a rectangle over it.
type selector struct {
	app     fyne.App
	capture func() (*image.RGBA, error)

	mu     sync.Mutex
	active *selection
}

type selectOutcome struct {
	region    screenshot.Region
	cancelled bool
}

// selection is one open selector window.
type selection struct {
	win     fyne.Window
	img     *image.RGBA
	surface *selectionSurface
	done    chan selectOutcome
	closed  chan struct{}
	once    sync.Once
}

func newSelector(a fyne.App) *selector {
	return &selector{app: a, capture: screenshot.CapturePrimary}
}

func (s *selector) Select(ctx context.Context) (overlay.Selection, bool, error) {
	img, err := s.capture()
	if err != nil {
		return overlay.Selection{}, false, fmt.Errorf("failed to capture screen: %w", err)
	}
	log.Printf("Selector: captured %dx%d", img.Bounds().Dx(), img.Bounds().Dy())

	var sel *selection
	fyne.DoAndWait(func() { sel = s.open(img) })

	select {
	case out := <-sel.done:
		if out.cancelled {
			return overlay.Selection{}, true, nil
		}
		log.Printf("Selector: region %+v", out.region)
		return overlay.Selection{Image: img, Region: out.region}, false, nil
	case <-ctx.Done():
		fyne.Do(func() { sel.finish(selectOutcome{cancelled: true}) })
		return overlay.Selection{}, false, ctx.Err()
	}
}

// open must run on the fyne thread.
func (s *selector) open(img *image.RGBA) *selection {
	sel := &selection{img: img, done: make(chan selectOutcome, 1), closed: make(chan struct{})}
	sel.win = s.app.NewWindow("Select region")
	sel.surface = newSelectionSurface(img, func(r overlay.Rect, ok bool) {
		if !ok {
			sel.finish(selectOutcome{cancelled: true})
			return
		}
		sel.finish(sel.outcome(r))
	})
	sel.win.SetPadded(false)
	sel.win.SetContent(sel.surface)
	sel.win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			sel.finish(selectOutcome{cancelled: true})
		}
	})
	sel.win.SetOnClosed(func() {
		sel.finish(selectOutcome{cancelled: true})
	})
	sel.win.SetFullScreen(true)
	sel.win.Show()
	sel.win.RequestFocus()

	s.mu.Lock()
	s.active = sel
	s.mu.Unlock()
	go func() {
		<-sel.closed
		s.mu.Lock()
		if s.active == sel {
			s.active = nil
		}
		s.mu.Unlock()
	}()
	return sel
}

// dismiss cancels the open selection, if any. Safe from any goroutine.
func (s *selector) dismiss() {
	s.mu.Lock()
	sel := s.active
	s.mu.Unlock()
	if sel == nil {
		return
	}
	fyne.Do(func() { sel.finish(selectOutcome{cancelled: true}) })
}

// outcome maps a canvas rectangle to image pixels.
func (sel *selection) outcome(r overlay.Rect) selectOutcome {
	canvasWidth := sel.surface.Size().Width
	scale := float32(1)
	if canvasWidth > 0 {
		scale = float32(sel.img.Bounds().Dx()) / canvasWidth
	}
	region := overlay.ScaleToPixels(r, scale)
	if region.Width <= overlay.MinSelectionSpan || region.Height <= overlay.MinSelectionSpan {
		log.Printf("Selector: selection too small (%dx%d), cancelling", region.Width, region.Height)
		return selectOutcome{cancelled: true}
	}
	return selectOutcome{region: region}
}

// finish reports the first outcome and closes the window. Closing calls
// back into finish through SetOnClosed, so it happens outside the once.
func (sel *selection) finish(out selectOutcome) {
	first := false
	sel.once.Do(func() {
		first = true
		sel.done <- out
		close(sel.closed)
	})
	if first && sel.win != nil {
		sel.win.Close()
	}
}

// selectionSurface draws the frozen screen, a dim layer and the rectangle
// being dragged.
type selectionSurface struct {
	widget.BaseWidget

	img      image.Image
	onDone   func(r overlay.Rect, ok bool)
	dragging bool
	start    fyne.Position
	end      fyne.Position
}

func newSelectionSurface(img image.Image, onDone func(overlay.Rect, bool)) *selectionSurface {
	s := &selectionSurface{img: img, onDone: onDone}
	s.ExtendBaseWidget(s)
	return s
}

func (s *selectionSurface) Dragged(ev *fyne.DragEvent) {
	if !s.dragging {
		s.dragging = true
		s.start = ev.Position.Subtract(ev.Dragged)
	}
	s.end = ev.Position
	s.Refresh()
}

func (s *selectionSurface) DragEnd() {
	if !s.dragging {
		return
	}
	s.dragging = false
	r := s.rect()
	s.onDone(r, r.W > 0 && r.H > 0)
}

// Tapped without dragging is a zero-size selection.
func (s *selectionSurface) Tapped(*fyne.PointEvent) {
	s.onDone(overlay.Rect{}, false)
}

func (s *selectionSurface) Cursor() desktop.Cursor { return desktop.CrosshairCursor }

func (s *selectionSurface) rect() overlay.Rect {
	return overlay.NormalizeSelection(pointOf(s.start), pointOf(s.end))
}

func (s *selectionSurface) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewImageFromImage(s.img)
	bg.FillMode = canvas.ImageFillStretch
	bg.ScaleMode = canvas.ImageScaleFastest

	dim := canvas.NewRectangle(selectionDim)

	box := canvas.NewRectangle(selectionFill)
	box.StrokeColor = overlayForeground
	box.StrokeWidth = 2
	box.Hide()

	hint := canvas.NewText("Drag to select the text to translate. Esc cancels.", overlayForeground)
	hint.TextSize = overlayTextSize

	return &selectionRenderer{s: s, bg: bg, dim: dim, box: box, hint: hint}
}

type selectionRenderer struct {
	s    *selectionSurface
	bg   *canvas.Image
	dim  *canvas.Rectangle
	box  *canvas.Rectangle
	hint *canvas.Text
}

func (r *selectionRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.dim.Resize(size)
	hs := r.hint.MinSize()
	r.hint.Move(fyne.NewPos((size.Width-hs.Width)/2, overlayPadding))
	r.hint.Resize(hs)
	r.layoutBox()
}

func (r *selectionRenderer) layoutBox() {
	if !r.s.dragging {
		r.box.Hide()
		return
	}
	rect := r.s.rect()
	r.box.Move(fyne.NewPos(rect.X, rect.Y))
	r.box.Resize(fyne.NewSize(rect.W, rect.H))
	r.box.Show()
}

func (r *selectionRenderer) MinSize() fyne.Size { return fyne.NewSize(1, 1) }

func (r *selectionRenderer) Refresh() {
	r.layoutBox()
	canvas.Refresh(r.box)
}

func (r *selectionRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.bg, r.dim, r.box, r.hint}
}

func (r *selectionRenderer) Destroy() {}
