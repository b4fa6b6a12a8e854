package gui

import (
	"image/color"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"sstranslate/src/overlay"
	"sstranslate/src/screenshot"
)

// translationOverlay is the borderless window showing one translation.
type translationOverlay struct {
	win     fyne.Window
	label   *widget.Label
	surface *dragSurface
}

// newTranslationOverlay builds the window; the caller shows it. Must run
// on the fyne thread.
func newTranslationOverlay(a fyne.App, native nativeWindow, text string, size fyne.Size, onResized func(fyne.Size)) *translationOverlay {
	var w fyne.Window
	if drv, ok := a.Driver().(desktop.Driver); ok {
		w = drv.CreateSplashWindow()
	} else {
		w = a.NewWindow("Translation")
	}

	bg := canvas.NewRectangle(overlayBackground)
	bg.CornerRadius = overlayRadius

	label := widget.NewLabel(text)
	label.Wrapping = fyne.TextWrapWord
	scroll := container.NewVScroll(label)
	body := container.NewThemeOverride(container.New(&paddedLayout{pad: overlayPadding}, scroll), newOverlayTheme())

	o := &translationOverlay{win: w, label: label}
	o.surface = newDragSurface(w, native, onResized)

	// The drag surface sits on top; scroll-wheel events still reach the
	// scroll container because the surface is not Scrollable.
	w.SetContent(container.NewStack(bg, body, o.surface))
	w.SetPadded(false)
	w.Resize(size)
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			w.Close()
		}
	})
	return o
}

func (o *translationOverlay) show(native nativeWindow) {
	o.win.Show()
	o.win.RequestFocus()
	if r, ok := native.rect(o.win); ok {
		if bounds, err := screenshot.PrimaryBounds(); err == nil {
			screen := overlay.Rect{X: float32(bounds.Min.X), Y: float32(bounds.Min.Y), W: float32(bounds.Dx()), H: float32(bounds.Dy())}
			native.place(o.win, overlay.Center(screen, r.W, r.H))
		}
	}
	if !native.topmost(o.win) {
		log.Printf("Overlay: topmost not available on this platform")
	}
}

func (o *translationOverlay) close() {
	o.win.Close()
}

// paddedLayout insets its objects by a fixed amount.
type paddedLayout struct {
	pad float32
}

func (l *paddedLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	inner := fyne.NewSize(size.Width-2*l.pad, size.Height-2*l.pad)
	for _, o := range objects {
		o.Move(fyne.NewPos(l.pad, l.pad))
		o.Resize(inner)
	}
}

func (l *paddedLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	minSize := fyne.NewSize(0, 0)
	for _, o := range objects {
		minSize = minSize.Max(o.MinSize())
	}
	return minSize.AddWidthHeight(2*l.pad, 2*l.pad)
}

// dragSurface moves the window when dragged in the middle and resizes it
// when dragged within overlay.ResizeMargin of the border.
type dragSurface struct {
	widget.BaseWidget

	win       fyne.Window
	native    nativeWindow
	onResized func(fyne.Size)

	hover    overlay.Edge
	dragging bool
	edge     overlay.Edge
	nativeOK bool
	start    overlay.Rect
	cursor0  overlay.Point
	moved    fyne.Delta
}

func newDragSurface(w fyne.Window, native nativeWindow, onResized func(fyne.Size)) *dragSurface {
	s := &dragSurface{win: w, native: native, onResized: onResized}
	s.ExtendBaseWidget(s)
	return s
}

func (s *dragSurface) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(canvas.NewRectangle(color.Transparent))
}

func (s *dragSurface) MouseIn(ev *desktop.MouseEvent) { s.MouseMoved(ev) }

func (s *dragSurface) MouseMoved(ev *desktop.MouseEvent) {
	if s.dragging {
		return
	}
	s.hover = overlay.HitTest(sizeOf(s.Size()), pointOf(ev.Position), overlay.ResizeMargin)
}

func (s *dragSurface) MouseOut() { s.hover = overlay.EdgeNone }

func (s *dragSurface) Cursor() desktop.Cursor {
	return cursorFor(s.hover)
}

func cursorFor(e overlay.Edge) desktop.Cursor {
	horizontal := e.Has(overlay.EdgeLeft) || e.Has(overlay.EdgeRight)
	vertical := e.Has(overlay.EdgeTop) || e.Has(overlay.EdgeBottom)
	switch {
	case horizontal && vertical:
		return desktop.CrosshairCursor
	case horizontal:
		return desktop.HResizeCursor
	case vertical:
		return desktop.VResizeCursor
	default:
		return desktop.DefaultCursor
	}
}

func (s *dragSurface) Dragged(ev *fyne.DragEvent) {
	if !s.dragging {
		s.begin(ev.Position.Subtract(ev.Dragged))
	}
	s.moved.DX += ev.Dragged.DX
	s.moved.DY += ev.Dragged.DY

	if s.nativeOK {
		cur, ok := s.native.cursor()
		if !ok {
			return
		}
		scale := s.win.Canvas().Scale()
		minSize := overlay.Size{W: overlay.MinOverlaySize.W * scale, H: overlay.MinOverlaySize.H * scale}
		r := overlay.Drag(s.start, s.edge, cur.X-s.cursor0.X, cur.Y-s.cursor0.Y, minSize)
		if s.edge == overlay.EdgeNone {
			if bounds, err := screenshot.PrimaryBounds(); err == nil {
				screen := overlay.Rect{X: float32(bounds.Min.X), Y: float32(bounds.Min.Y), W: float32(bounds.Dx()), H: float32(bounds.Dy())}
				r = overlay.ClampToScreen(r, screen)
			}
		}
		s.native.place(s.win, r)
		return
	}

	// Without native placement only the right and bottom edges can follow
	// the pointer, since fyne cannot move a window.
	if s.edge == overlay.EdgeNone {
		return
	}
	r := overlay.Drag(s.start, s.edge&(overlay.EdgeRight|overlay.EdgeBottom), s.moved.DX, s.moved.DY, overlay.MinOverlaySize)
	s.win.Resize(fyne.NewSize(r.W, r.H))
}

func (s *dragSurface) begin(at fyne.Position) {
	s.dragging = true
	s.moved = fyne.Delta{}
	s.edge = overlay.HitTest(sizeOf(s.Size()), pointOf(at), overlay.ResizeMargin)
	s.nativeOK = false
	if cur, ok := s.native.cursor(); ok {
		if r, ok := s.native.rect(s.win); ok {
			s.cursor0, s.start, s.nativeOK = cur, r, true
			return
		}
	}
	size := s.win.Canvas().Size()
	s.start = overlay.Rect{W: size.Width, H: size.Height}
}

func (s *dragSurface) DragEnd() {
	resized := s.dragging && s.edge != overlay.EdgeNone
	s.dragging = false
	if !resized || s.onResized == nil {
		return
	}
	size := s.win.Canvas().Size()
	if s.nativeOK {
		// The resize event may still be queued; ask the window itself.
		if r, ok := s.native.rect(s.win); ok {
			scale := s.win.Canvas().Scale()
			size = fyne.NewSize(r.W/scale, r.H/scale)
		}
	}
	s.onResized(size)
}

func sizeOf(s fyne.Size) overlay.Size { return overlay.Size{W: s.Width, H: s.Height} }

func pointOf(p fyne.Position) overlay.Point { return overlay.Point{X: p.X, Y: p.Y} }
