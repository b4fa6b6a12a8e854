package tray

import (
	_ "embed"

	"fyne.io/fyne/v2"
)

//go:embed icon.svg
var iconSVG []byte

// Icon is the app and tray icon.
var Icon fyne.Resource = fyne.NewStaticResource("sstranslate.svg", iconSVG)
