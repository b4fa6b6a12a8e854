//go:build !windows

package gui

import (
	"fyne.io/fyne/v2"

	"sstranslate/src/overlay"
)

type noNative struct{}

func newNative() nativeWindow { return noNative{} }

func (noNative) cursor() (overlay.Point, bool)         { return overlay.Point{}, false }
func (noNative) rect(fyne.Window) (overlay.Rect, bool) { return overlay.Rect{}, false }
func (noNative) place(fyne.Window, overlay.Rect) bool  { return false }
func (noNative) topmost(fyne.Window) bool              { return false }
