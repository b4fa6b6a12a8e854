package gui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"sstranslate/src/history"
	"sstranslate/src/langs"
	"sstranslate/src/settings"
	"sstranslate/src/textclean"
)

const (
	TabInfo = iota
	TabSettings
	TabHistory
)

const panelTitle = "SSTranslate"

// panel is the main window: usage info, settings and history.
type panel struct {
	app  *App
	win  fyne.Window
	tabs *container.AppTabs

	source  *widget.Select
	target  *widget.Select
	width   *widget.Entry
	height  *widget.Entry
	apiKey  *widget.Entry
	status  *widget.Label
	checkBt *widget.Button

	list     *widget.List
	entries  []history.Entry
	selected int
}

// newPanel must run on the fyne thread.
func newPanel(a *App) *panel {
	p := &panel{app: a, selected: -1}
	p.win = a.fyne.NewWindow(panelTitle)
	p.tabs = container.NewAppTabs(
		container.NewTabItem("Info", p.infoTab()),
		container.NewTabItem("Settings", p.settingsTab()),
		container.NewTabItem("History", p.historyTab()),
	)
	p.tabs.OnSelected = func(item *container.TabItem) {
		if item.Text == "History" {
			p.reloadHistory()
		}
	}
	p.win.SetContent(p.tabs)
	p.win.Resize(fyne.NewSize(420, 360))
	p.win.SetFixedSize(true)
	// Closing the panel keeps the tool running in the tray.
	p.win.SetCloseIntercept(p.win.Hide)
	p.loadSettings()
	return p
}

func (p *panel) show(tab int) {
	p.tabs.SelectIndex(tab)
	if tab == TabSettings {
		p.loadSettings()
	}
	p.win.Show()
	p.win.RequestFocus()
}

func (p *panel) infoTab() fyne.CanvasObject {
	cfg := p.app.opts.Config
	text := fmt.Sprintf("Press %s to start a translation, then drag over the text on screen.\n"+
		"The translation appears in a pop-up you can move and resize.\n"+
		"%s closes pop-ups and cancels a selection.\n\n"+
		"Source and target languages, pop-up size and the API key are in Settings.\n"+
		"Past translations are in History.",
		cfg.CaptureHotkey, cfg.CloseHotkey)
	info := widget.NewLabel(text)
	info.Wrapping = fyne.TextWrapWord
	return container.NewVScroll(info)
}

func (p *panel) settingsTab() fyne.CanvasObject {
	p.source = widget.NewSelect(langs.Labels(langs.Sources()), nil)
	p.target = widget.NewSelect(langs.Labels(langs.Targets()), nil)
	p.width = widget.NewEntry()
	p.height = widget.NewEntry()
	p.apiKey = widget.NewPasswordEntry()
	p.apiKey.SetPlaceHolder("DeepL API key")
	p.status = widget.NewLabel("")
	p.status.Wrapping = fyne.TextWrapWord

	save := widget.NewButton("Save", p.saveSettings)
	save.Importance = widget.HighImportance
	p.checkBt = widget.NewButton("Check key", p.checkKey)

	form := widget.NewForm(
		widget.NewFormItem("Source", p.source),
		widget.NewFormItem("Target", p.target),
		widget.NewFormItem("Width", p.width),
		widget.NewFormItem("Height", p.height),
		widget.NewFormItem("API key", p.apiKey),
	)
	return container.NewVBox(form, container.NewHBox(save, p.checkBt), p.status)
}

func (p *panel) loadSettings() {
	s := p.app.opts.Settings.Get()
	if l, ok := langs.Source(s.SourceLang); ok {
		p.source.SetSelected(langs.Label(l))
	}
	if l, ok := langs.Target(s.TargetLang); ok {
		p.target.SetSelected(langs.Label(l))
	}
	p.width.SetText(strconv.Itoa(s.OverlayWidth))
	p.height.SetText(strconv.Itoa(s.OverlayHeight))
	p.apiKey.SetText(s.APIKey)
}

// formSettings reads the form into a Settings value.
func (p *panel) formSettings() (settings.Settings, error) {
	s := p.app.opts.Settings.Get()
	s.SourceLang = langs.CodeFromLabel(p.source.Selected)
	s.TargetLang = langs.CodeFromLabel(p.target.Selected)
	w, err := strconv.Atoi(strings.TrimSpace(p.width.Text))
	if err != nil {
		return s, fmt.Errorf("width must be a number")
	}
	h, err := strconv.Atoi(strings.TrimSpace(p.height.Text))
	if err != nil {
		return s, fmt.Errorf("height must be a number")
	}
	s.OverlayWidth, s.OverlayHeight = w, h
	s.APIKey = strings.TrimSpace(p.apiKey.Text)
	return s, nil
}

func (p *panel) saveSettings() {
	s, err := p.formSettings()
	if err == nil {
		err = p.app.opts.Settings.Save(s)
	}
	if err != nil {
		log.Printf("Panel: failed to save settings: %v", err)
		dialog.ShowError(err, p.win)
		return
	}
	p.loadSettings()
	p.status.SetText("Settings saved.")
	log.Printf("Panel: settings saved (%s -> %s, %dx%d)", s.SourceLang, s.TargetLang, s.OverlayWidth, s.OverlayHeight)
}

func (p *panel) checkKey() {
	check := p.app.opts.CheckKey
	if check == nil {
		p.status.SetText("Key check is not available for this translator.")
		return
	}
	key := strings.TrimSpace(p.apiKey.Text)
	p.status.SetText("Checking...")
	p.checkBt.Disable()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		msg, err := check(ctx, key)
		fyne.Do(func() {
			p.checkBt.Enable()
			if err != nil {
				p.status.SetText(p.app.describe(err))
				return
			}
			p.status.SetText(msg)
		})
	}()
}

func (p *panel) historyTab() fyne.CanvasObject {
	p.list = widget.NewList(
		func() int { return len(p.entries) },
		func() fyne.CanvasObject {
			l := widget.NewLabel("")
			l.Truncation = fyne.TextTruncateEllipsis
			return l
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < len(p.entries) {
				obj.(*widget.Label).SetText(entryLine(p.entries[id]))
			}
		},
	)
	p.list.OnSelected = func(id widget.ListItemID) {
		p.selected = id
		if id < len(p.entries) {
			p.app.showOverlay(p.entries[id].Translated)
		}
	}
	p.list.OnUnselected = func(widget.ListItemID) { p.selected = -1 }

	copyBt := widget.NewButton("Copy translation", func() {
		e, ok := p.selectedEntry()
		if !ok {
			return
		}
		if err := p.app.opts.Clipboard(e.Translated); err != nil {
			dialog.ShowError(err, p.win)
		}
	})
	deleteBt := widget.NewButton("Delete", func() {
		e, ok := p.selectedEntry()
		if !ok {
			return
		}
		if err := p.app.opts.History.Delete(e.ID); err != nil && !errors.Is(err, history.ErrNotFound) {
			dialog.ShowError(err, p.win)
		}
		p.reloadHistory()
	})
	clearBt := widget.NewButton("Clear all", func() {
		dialog.ShowConfirm("Clear history", "Delete all saved translations?", func(ok bool) {
			if !ok {
				return
			}
			if err := p.app.opts.History.Clear(); err != nil {
				dialog.ShowError(err, p.win)
			}
			p.reloadHistory()
		}, p.win)
	})

	buttons := container.NewHBox(copyBt, deleteBt, clearBt)
	return container.NewBorder(nil, buttons, nil, nil, p.list)
}

func (p *panel) selectedEntry() (history.Entry, bool) {
	if p.selected < 0 || p.selected >= len(p.entries) {
		return history.Entry{}, false
	}
	return p.entries[p.selected], true
}

func (p *panel) reloadHistory() {
	p.entries = p.app.opts.History.List()
	p.selected = -1
	p.list.UnselectAll()
	p.list.Refresh()
}

// entryLine renders one history row.
func entryLine(e history.Entry) string {
	src := textclean.Sanitize(e.Source, 40)
	dst := textclean.Sanitize(e.Translated, 40)
	return fmt.Sprintf("%s  %s → %s", e.CreatedAt.Local().Format("01-02 15:04"), src, dst)
}
