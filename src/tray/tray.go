package tray

import (
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

const title = "SSTranslate"

type Menu struct {
	OnTranslate func()
	OnShowPanel func()
	OnQuit      func()
}

// Install sets the system tray menu when the driver has a tray. It
// reports whether a tray is available.
func Install(a fyne.App, m Menu) bool {
	a.SetIcon(Icon)
	desk, ok := a.(desktop.App)
	if !ok {
		log.Printf("Tray: not supported by this driver")
		return false
	}
	desk.SetSystemTrayMenu(newMenu(m))
	desk.SetSystemTrayIcon(Icon)
	log.Printf("Tray: installed")
	return true
}

func newMenu(m Menu) *fyne.Menu {
	translate := fyne.NewMenuItem("Translate region", orNoop(m.OnTranslate))
	panel := fyne.NewMenuItem("Settings and history", orNoop(m.OnShowPanel))
	quit := fyne.NewMenuItem("Quit", orNoop(m.OnQuit))
	quit.IsQuit = true
	return fyne.NewMenu(title, translate, panel, fyne.NewMenuItemSeparator(), quit)
}

func orNoop(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	return fn
}
