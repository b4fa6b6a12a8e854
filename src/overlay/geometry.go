package overlay

import (
	"math"

	"sstranslate/src/screenshot"
)

type Point struct{ X, Y float32 }

type Size struct{ W, H float32 }

// Rect is a window or selection rectangle in logical units.
type Rect struct {
	X, Y, W, H float32
}

func (r Rect) Right() float32  { return r.X + r.W }
func (r Rect) Bottom() float32 { return r.Y + r.H }

// Edge is the set of borders a drag grabs. Zero means the whole window moves.
type Edge uint8

const (
	EdgeLeft Edge = 1 << iota
	EdgeTop
	EdgeRight
	EdgeBottom
)

const EdgeNone Edge = 0

func (e Edge) Has(f Edge) bool { return e&f != 0 }

// NormalizeSelection turns a drag from a to b, in any direction, into a rectangle.
func NormalizeSelection(a, b Point) Rect {
	x0, x1 := a.X, b.X
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	y0, y1 := a.Y, b.Y
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// ScaleToPixels converts a rectangle in canvas units into image pixels.
func ScaleToPixels(r Rect, scale float32) screenshot.Region {
	if scale <= 0 {
		scale = 1
	}
	x0 := int(math.Round(float64(r.X * scale)))
	y0 := int(math.Round(float64(r.Y * scale)))
	x1 := int(math.Round(float64(r.Right() * scale)))
	y1 := int(math.Round(float64(r.Bottom() * scale)))
	return screenshot.Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Center places a w×h rectangle in the middle of screen, shrinking it to fit.
func Center(screen Rect, w, h float32) Rect {
	if w > screen.W {
		w = screen.W
	}
	if h > screen.H {
		h = screen.H
	}
	return Rect{
		X: screen.X + (screen.W-w)/2,
		Y: screen.Y + (screen.H-h)/2,
		W: w,
		H: h,
	}
}

// HitTest reports which edges a press at p (window-relative) grabs.
func HitTest(size Size, p Point, margin float32) Edge {
	var e Edge
	if p.X <= margin {
		e |= EdgeLeft
	} else if p.X >= size.W-margin {
		e |= EdgeRight
	}
	if p.Y <= margin {
		e |= EdgeTop
	} else if p.Y >= size.H-margin {
		e |= EdgeBottom
	}
	return e
}

// Drag applies a pointer delta to the rectangle the drag started with.
// Moving keeps the size. Resizing keeps the opposite edge fixed and never
// shrinks below min.
func Drag(start Rect, edge Edge, dx, dy float32, min Size) Rect {
	if edge == EdgeNone {
		start.X += dx
		start.Y += dy
		return start
	}

	r := start
	if edge.Has(EdgeRight) {
		r.W = maxf(start.W+dx, min.W)
	}
	if edge.Has(EdgeBottom) {
		r.H = maxf(start.H+dy, min.H)
	}
	if edge.Has(EdgeLeft) {
		r.W = maxf(start.W-dx, min.W)
		r.X = start.Right() - r.W
	}
	if edge.Has(EdgeTop) {
		r.H = maxf(start.H-dy, min.H)
		r.Y = start.Bottom() - r.H
	}
	return r
}

// ClampToScreen moves r so that at least a grab strip stays on screen.
func ClampToScreen(r Rect, screen Rect) Rect {
	const grab = 40
	if r.X > screen.Right()-grab {
		r.X = screen.Right() - grab
	}
	if r.Right() < screen.X+grab {
		r.X = screen.X + grab - r.W
	}
	if r.Y > screen.Bottom()-grab {
		r.Y = screen.Bottom() - grab
	}
	// The top edge carries no title bar, but keep it reachable.
	if r.Y < screen.Y {
		r.Y = screen.Y
	}
	return r
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
