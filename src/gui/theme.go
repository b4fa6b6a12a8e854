package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

var (
	overlayBackground = color.NRGBA{A: 200}
	selectionDim      = color.NRGBA{A: 90}
	selectionFill     = color.NRGBA{R: 255, G: 255, B: 255, A: 30}
	overlayForeground = color.White
)

const (
	overlayPadding  = 15
	overlayTextSize = 14
	overlayRadius   = 10
)

// overlayTheme renders white text on the dark overlay, whatever the
// system variant is.
type overlayTheme struct {
	fyne.Theme
}

func newOverlayTheme() fyne.Theme { return overlayTheme{Theme: theme.DefaultTheme()} }

func (t overlayTheme) Color(n fyne.ThemeColorName, v fyne.ThemeVariant) color.Color {
	switch n {
	case theme.ColorNameForeground:
		return overlayForeground
	case theme.ColorNameBackground:
		return color.Transparent
	case theme.ColorNameScrollBar:
		return color.NRGBA{R: 255, G: 255, B: 255, A: 90}
	}
	return t.Theme.Color(n, v)
}

func (t overlayTheme) Size(n fyne.ThemeSizeName) float32 {
	if n == theme.SizeNameText {
		return overlayTextSize
	}
	return t.Theme.Size(n)
}
