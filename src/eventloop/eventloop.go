package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sstranslate/src/clipboard"
	"sstranslate/src/history"
	"sstranslate/src/hotkey"
	"sstranslate/src/ocr"
	"sstranslate/src/overlay"
	"sstranslate/src/session"
	"sstranslate/src/settings"
	"sstranslate/src/singleinstance"
	"sstranslate/src/translate"
	"sstranslate/src/worker"
)

var ErrBusy = errors.New("Busy, please retry")

// UI is what the loop needs from the desktop front end. The loop calls it
// from its own goroutine; implementations marshal onto the UI thread.
type UI interface {
	ShowTranslation(res session.Result)
	ShowMessage(msg string)
	ShowError(err error)
	SetBusy(busy bool)
	Dismiss()
}

// TranslatorFactory builds a translator for the current settings, so a key
// saved in the panel takes effect on the next capture.
type TranslatorFactory func(s settings.Settings) translate.Translator

type Options struct {
	Selector        overlay.Selector
	UI              UI
	Engine          ocr.Engine
	Translators     TranslatorFactory
	Settings        *settings.Store
	History         *history.Store
	Server          singleinstance.Server
	Pool            *worker.Pool
	OCRFallbackLang string
	Deadline        time.Duration
	CopyToClipboard bool
	// Clipboard defaults to clipboard.Write.
	Clipboard func(text string) error
}

// Loop is the single-threaded coordinator for hotkey, tray and delegated
// translation requests.
type Loop struct {
	opts     Options
	pool     *worker.Pool
	busy     bool
	results  chan result
	hotkeyCh chan struct{}
	deadline time.Duration
}

type result struct {
	res    session.Result
	err    error
	target resultTarget
	cancel context.CancelFunc
}

type resultTarget interface {
	OnSuccess(res session.Result) error
	OnProcessError(err error)
	Close()
}

// hotkeyResultTarget shows results on screen; the overlay is the delivery.
type hotkeyResultTarget struct {
	ui UI
}

func (t hotkeyResultTarget) OnSuccess(res session.Result) error {
	t.ui.ShowTranslation(res)
	return nil
}

func (t hotkeyResultTarget) OnProcessError(err error) {
	if errors.Is(err, session.ErrNoText) {
		t.ui.ShowMessage(session.Describe(err))
		return
	}
	t.ui.ShowError(err)
}

func (hotkeyResultTarget) Close() {}

// delegatedResultTarget also shows the overlay, then answers the client.
type delegatedResultTarget struct {
	ui   UI
	sink session.DelegatedTarget
	conn singleinstance.Conn
}

func newDelegatedResultTarget(ui UI, conn singleinstance.Conn) delegatedResultTarget {
	return delegatedResultTarget{ui: ui, sink: session.DelegatedTarget{Conn: conn}, conn: conn}
}

func (t delegatedResultTarget) OnSuccess(res session.Result) error {
	t.ui.ShowTranslation(res)
	return t.sink.OnSuccess(res)
}

func (t delegatedResultTarget) OnProcessError(err error) {
	_ = t.sink.OnFailure(err)
}

func (t delegatedResultTarget) Close() {
	if t.conn != nil {
		_ = t.conn.Close()
	}
}

type requestCallbacks struct {
	onBusy        func()
	onSelectError func(err error)
	onCancelled   func()
}

// New creates an event loop. A zero Deadline means session.DefaultDeadline.
func New(opts Options) *Loop {
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = session.DefaultDeadline
	}
	pool := opts.Pool
	if pool == nil {
		pool = worker.New(1)
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.Write
	}
	return &Loop{
		opts:     opts,
		pool:     pool,
		results:  make(chan result, 1),
		hotkeyCh: make(chan struct{}, 4),
		deadline: deadline,
	}
}

// Trigger asks the loop to start a capture. Safe from any goroutine.
func (l *Loop) Trigger() {
	select {
	case l.hotkeyCh <- struct{}{}:
	default:
	}
}

// StartHotkeys registers the capture and close hotkeys. Close dismisses
// the overlay directly because the loop is blocked while selecting.
func (l *Loop) StartHotkeys(capture, closeCombo string) (stop func(), err error) {
	return hotkey.Listen(l.hotkeyBindings(capture, closeCombo)...)
}

func (l *Loop) hotkeyBindings(capture, closeCombo string) []hotkey.Binding {
	var bindings []hotkey.Binding
	if capture != "" {
		bindings = append(bindings, hotkey.Binding{Combo: capture, OnPress: l.Trigger})
	}
	if closeCombo != "" {
		bindings = append(bindings, hotkey.Binding{Combo: closeCombo, OnPress: l.opts.UI.Dismiss})
	}
	return bindings
}

func (l *Loop) setBusy(b bool) {
	l.busy = b
	l.opts.UI.SetBusy(b)
}

// Run starts the single-instance server, when there is one, and processes
// requests until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.pool.Close()

	reqCh := make(chan singleinstance.Conn, 4)
	if srv := l.opts.Server; srv != nil {
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Close()
		if p := srv.Port(); p > 0 {
			log.Printf("Resident listening on 127.0.0.1:%d", p)
		}
		// Accept in the background so result handling never waits on clients.
		go func() {
			for {
				conn, err := srv.Next(ctx)
				if err != nil {
					return
				}
				select {
				case reqCh <- conn:
				case <-ctx.Done():
					_ = conn.Close()
					return
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.hotkeyCh:
			l.handleHotkey(ctx)
		case conn := <-reqCh:
			l.handleConn(ctx, conn)
		case res := <-l.results:
			l.handleResult(res)
		}
	}
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	target := newDelegatedResultTarget(l.opts.UI, conn)
	copyToClipboard := conn.Request().Clipboard
	l.startRequest(ctx, target, copyToClipboard, requestCallbacks{
		onBusy: func() {
			// Sent verbatim; clients match on it to retry.
			_ = conn.RespondError(ErrBusy.Error())
			target.Close()
		},
		onSelectError: func(err error) {
			target.OnProcessError(fmt.Errorf("Failed to select region: %w", err))
			target.Close()
		},
		onCancelled: func() {
			target.OnProcessError(session.ErrSelectionCancelled)
			target.Close()
		},
	})
}

func (l *Loop) handleHotkey(ctx context.Context) {
	log.Printf("handleHotkey: called")
	l.startRequest(ctx, hotkeyResultTarget{ui: l.opts.UI}, l.opts.CopyToClipboard, requestCallbacks{
		onBusy: func() {
			log.Printf("handleHotkey: busy, skipping")
			l.opts.UI.ShowMessage(ErrBusy.Error())
		},
		onSelectError: func(err error) {
			log.Printf("handleHotkey: selection error: %v", err)
			l.opts.UI.ShowError(fmt.Errorf("Failed to select region: %w", err))
		},
		onCancelled: func() {
			log.Printf("handleHotkey: selection cancelled")
		},
	})
}

func (l *Loop) startRequest(ctx context.Context, target resultTarget, copyToClipboard bool, callbacks requestCallbacks) {
	if l.busy {
		if callbacks.onBusy != nil {
			callbacks.onBusy()
		}
		return
	}

	sel, cancelled, err := l.opts.Selector.Select(ctx)
	if err != nil {
		if callbacks.onSelectError != nil {
			callbacks.onSelectError(err)
		}
		return
	}
	if cancelled {
		if callbacks.onCancelled != nil {
			callbacks.onCancelled()
		}
		return
	}
	log.Printf("startRequest: region %+v", sel.Region)

	current := l.opts.Settings.Get()
	opts := session.Options{
		Image:           sel.Image,
		Region:          sel.Region,
		Engine:          l.opts.Engine,
		Translator:      l.opts.Translators(current),
		Settings:        current,
		OCRFallbackLang: l.opts.OCRFallbackLang,
		Deadline:        l.deadline,
	}
	if copyToClipboard {
		target = clipboardTarget{resultTarget: target, write: l.opts.Clipboard}
	}

	jobCtx, cancel := context.WithTimeout(ctx, l.deadline)
	l.setBusy(true)
	submitted := l.pool.Submit(jobCtx, func(ctx context.Context) (session.Result, error) {
		return session.Run(ctx, opts)
	}, func(res session.Result, err error) {
		select {
		case l.results <- result{res: res, err: err, target: target, cancel: cancel}:
		case <-ctx.Done():
			cancel()
			target.Close()
		}
	})
	if !submitted {
		cancel()
		l.setBusy(false)
		if callbacks.onBusy != nil {
			callbacks.onBusy()
		}
	}
}

func (l *Loop) handleResult(res result) {
	log.Printf("handleResult: text length=%d, err=%v", len(res.res.TranslatedText), res.err)
	defer func() {
		l.setBusy(false)
		if res.cancel != nil {
			res.cancel()
		}
	}()
	if res.target == nil {
		log.Printf("handleResult: missing target")
		return
	}
	defer res.target.Close()

	if res.err != nil {
		log.Printf("handleResult: processing error: %v", res.err)
		res.target.OnProcessError(res.err)
		return
	}

	if l.opts.History != nil {
		if _, added, err := l.opts.History.Add(res.res.SourceText, res.res.TranslatedText, res.res.SourceLang, res.res.TargetLang); err != nil {
			log.Printf("handleResult: failed to save history: %v", err)
		} else if !added {
			log.Printf("handleResult: same as the previous translation, history unchanged")
		}
	}

	if err := res.target.OnSuccess(res.res); err != nil {
		log.Printf("handleResult: delivery error: %v", err)
	}
}

// clipboardTarget copies the translation before handing the result on.
type clipboardTarget struct {
	resultTarget
	write func(string) error
}

func (t clipboardTarget) OnSuccess(res session.Result) error {
	if err := t.write(res.TranslatedText); err != nil {
		log.Printf("clipboard error: %v", err)
	}
	return t.resultTarget.OnSuccess(res)
}

// Deadline returns the per-capture deadline.
func (l *Loop) Deadline() time.Duration { return l.deadline }
