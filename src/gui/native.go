package gui

import (
	"fyne.io/fyne/v2"

	"sstranslate/src/overlay"
)

// nativeWindow reaches below fyne for what it cannot do itself: window
// placement and z-order. Rectangles are in physical pixels. Each method
// reports false when the platform has no implementation.
type nativeWindow interface {
	cursor() (overlay.Point, bool)
	rect(w fyne.Window) (overlay.Rect, bool)
	place(w fyne.Window, r overlay.Rect) bool
	topmost(w fyne.Window) bool
}
