package gui

import (
	"context"
	"errors"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"sstranslate/src/clipboard"
	"sstranslate/src/config"
	"sstranslate/src/history"
	"sstranslate/src/overlay"
	"sstranslate/src/session"
	"sstranslate/src/settings"
	"sstranslate/src/translate"
)

type Options struct {
	Config   *config.Config
	Settings *settings.Store
	History  *history.Store
	// CheckKey validates an API key and returns a status line such as the
	// remaining quota. Nil when the translator has no such check.
	CheckKey func(ctx context.Context, apiKey string) (string, error)
	// Clipboard defaults to clipboard.Write.
	Clipboard func(text string) error
}

// App is the desktop front end. Its methods are safe to call from any
// goroutine; they hop onto the fyne thread themselves.
type App struct {
	fyne     fyne.App
	opts     Options
	native   nativeWindow
	selector *selector

	// Owned by the fyne thread.
	panel   *panel
	overlay *translationOverlay
}

func New(a fyne.App, opts Options) *App {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.Write
	}
	app := &App{
		fyne:     a,
		opts:     opts,
		native:   newNative(),
		selector: newSelector(a),
	}
	return app
}

// Fyne exposes the underlying app for the tray.
func (a *App) Fyne() fyne.App { return a.fyne }

// Selector returns the region selector used by the event loop.
func (a *App) Selector() overlay.Selector { return a.selector }

// Run blocks on the fyne event loop; it must be called from main.
func (a *App) Run() { a.fyne.Run() }

func (a *App) Quit() { fyne.Do(a.fyne.Quit) }

// ShowPanel opens the main window on the given tab.
func (a *App) ShowPanel(tab int) {
	fyne.Do(func() { a.ensurePanel().show(tab) })
}

func (a *App) ensurePanel() *panel {
	if a.panel == nil {
		a.panel = newPanel(a)
	}
	return a.panel
}

func (a *App) ShowTranslation(res session.Result) {
	fyne.Do(func() {
		a.showOverlay(res.TranslatedText)
		if a.panel != nil {
			a.panel.reloadHistory()
		}
	})
}

// showOverlay replaces the current overlay. Must run on the fyne thread.
func (a *App) showOverlay(text string) {
	if a.overlay != nil {
		a.overlay.close()
		a.overlay = nil
	}
	s := a.opts.Settings.Get()
	size := fyne.NewSize(float32(s.OverlayWidth), float32(s.OverlayHeight))
	o := newTranslationOverlay(a.fyne, a.native, text, size, a.saveOverlaySize)
	o.win.SetOnClosed(func() {
		if a.overlay == o {
			a.overlay = nil
		}
	})
	a.overlay = o
	o.show(a.native)
}

func (a *App) saveOverlaySize(size fyne.Size) {
	w, h := int(size.Width), int(size.Height)
	err := a.opts.Settings.Update(func(s *settings.Settings) {
		s.OverlayWidth, s.OverlayHeight = w, h
	})
	if err != nil {
		log.Printf("Overlay: failed to save size %dx%d: %v", w, h, err)
		return
	}
	log.Printf("Overlay: size saved as %dx%d", w, h)
	if a.panel != nil {
		a.panel.loadSettings()
	}
}

// ShowMessage is for short notices such as "Busy, please retry".
func (a *App) ShowMessage(msg string) {
	log.Printf("Notice: %s", msg)
	a.Notify(msg)
}

// Notify sends a desktop notification.
func (a *App) Notify(msg string) {
	a.fyne.SendNotification(fyne.NewNotification(panelTitle, msg))
}

// ShowError reports a failed translation. A missing key opens Settings so
// the user can enter one.
func (a *App) ShowError(err error) {
	msg := a.describe(err)
	log.Printf("Error shown to user: %v", err)
	fyne.Do(func() {
		p := a.ensurePanel()
		if errors.Is(err, translate.ErrMissingAPIKey) || errors.Is(err, translate.ErrAuthorization) {
			p.show(TabSettings)
		} else {
			p.win.Show()
		}
		dialog.ShowError(errors.New(msg), p.win)
	})
}

func (a *App) describe(err error) string { return session.Describe(err) }

// SetBusy reflects a running translation in the panel title.
func (a *App) SetBusy(busy bool) {
	title := panelTitle
	if busy {
		title = panelTitle + " (translating...)"
	}
	fyne.Do(func() {
		if a.panel != nil {
			a.panel.win.SetTitle(title)
		}
	})
}

// Dismiss closes the overlay and cancels an open selection.
func (a *App) Dismiss() {
	a.selector.dismiss()
	fyne.Do(func() {
		if a.overlay != nil {
			a.overlay.close()
			a.overlay = nil
		}
	})
}
