package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"sstranslate/src/config"
	"sstranslate/src/eventloop"
	"sstranslate/src/gui"
	"sstranslate/src/logutil"
	"sstranslate/src/notification"
	"sstranslate/src/runtimeinit"
	"sstranslate/src/singleinstance"
	"sstranslate/src/tray"
)

const appID = "io.sstranslate.app"

type mainOptions struct {
	trigger    bool
	copy       bool
	print      bool
	dataDir    string
	translator string
	ocrEngine  string
}

func (o mainOptions) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		DataDirOverride:    o.dataDir,
		TranslatorOverride: o.translator,
		OCREngineOverride:  o.ocrEngine,
	}
}

func main() {
	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"sstranslate"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sstranslate",
		Short:         "Translate text anywhere on screen with a hotkey",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.trigger {
				return runTrigger(cmd.Context(), *opts, cmd.OutOrStdout())
			}
			return runResident(*opts, false)
		},
	}

	cmd.Flags().BoolVar(&opts.trigger, "trigger", false, "Ask the running instance to start a capture (starts one if none is running)")
	cmd.Flags().BoolVar(&opts.copy, "copy", false, "With --trigger: also copy the translation to the clipboard")
	cmd.Flags().BoolVar(&opts.print, "print", false, "With --trigger: print the translation to stdout")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Directory for settings.json, history.json and logs")
	cmd.Flags().StringVar(&opts.translator, "translator", "", "Translation backend: deepl or openrouter")
	cmd.Flags().StringVar(&opts.ocrEngine, "ocr-engine", "", "OCR engine: tesseract or llm")
	return cmd
}

// normalizeLegacyArgs maps single-dash long flags (-trigger) to cobra's --trigger.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	normalized := make([]string, len(args))
	copy(normalized, args)

	long := []string{"trigger", "copy", "print", "data-dir", "translator", "ocr-engine"}
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range long {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}
	return normalized
}

func runTrigger(ctx context.Context, opts mainOptions, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// Load .env early so SINGLEINSTANCE_PORT_* apply to the scan.
	_, _ = config.LoadWithOptions(opts.loadOptions())

	var out io.Writer
	if opts.print {
		out = stdout
	}
	return handleTriggerWithDelegation(ctx, singleinstance.NewClient(), singleinstance.Request{Clipboard: opts.copy}, out, func() error {
		log.Printf("No resident detected, starting one with an immediate capture")
		return runResident(opts, true)
	})
}

// handleTriggerWithDelegation sends the capture to a resident. Without
// one, or when the scan itself fails, fallback starts a resident locally.
// An error reported by the resident is returned as is.
func handleTriggerWithDelegation(ctx context.Context, client singleinstance.Client, req singleinstance.Request, out io.Writer, fallback func() error) error {
	delegated, text, err := client.TryTrigger(ctx, req)
	if delegated {
		if err != nil {
			return err
		}
		log.Printf("Delegated to resident")
		if out != nil {
			_, err = fmt.Fprintln(out, text)
		}
		return err
	}
	if err != nil {
		log.Printf("Delegation error: %v; starting a resident", err)
	}
	return fallback()
}

// preflightPort fails when another resident already owns the start port.
func preflightPort() error {
	startPort, _ := singleinstance.PortRange()
	addr := fmt.Sprintf("127.0.0.1:%d", startPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("Pre-flight: port %d busy, resident already exists", startPort)
		return fmt.Errorf("SSTranslate is already running (port %d)", startPort)
	}
	// Release it so the event loop can bind it again.
	_ = listener.Close()
	log.Printf("Pre-flight: port %d free", startPort)
	return nil
}

func runResident(opts mainOptions, triggerOnStart bool) error {
	enableDPIAwareness()

	// Load .env early so SINGLEINSTANCE_PORT_* are available for pre-flight.
	_, _ = config.LoadWithOptions(opts.loadOptions())
	if err := preflightPort(); err != nil {
		fmt.Println(err)
		return err
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: opts.loadOptions(),
		SetupLogging: func(cfg *config.Config) {
			logutil.Setup(cfg.EnableFileLogging, cfg.DataDir)
		},
		InitClipboard: true,
	})
	if err != nil {
		notification.ShowBlockingError("SSTranslate", fmt.Sprintf("Startup failed: %v", err))
		return err
	}
	defer rt.Close()
	cfg := rt.Config
	logMonitorConfiguration()

	a := app.NewWithID(appID)
	ui := gui.New(a, gui.Options{
		Config:   cfg,
		Settings: rt.Settings,
		History:  rt.History,
		CheckKey: rt.CheckKey,
	})

	loop := eventloop.New(eventloop.Options{
		Selector:        ui.Selector(),
		UI:              ui,
		Engine:          rt.Engine,
		Translators:     rt.Translator,
		Settings:        rt.Settings,
		History:         rt.History,
		Server:          singleinstance.NewServer(),
		OCRFallbackLang: cfg.OCRLangs,
		Deadline:        time.Duration(cfg.TranslateDeadlineSec) * time.Second,
		CopyToClipboard: cfg.CopyToClipboard && rt.ClipboardReady,
	})

	hasTray := tray.Install(a, tray.Menu{
		OnTranslate: loop.Trigger,
		OnShowPanel: func() { ui.ShowPanel(gui.TabInfo) },
		OnQuit:      ui.Quit,
	})

	stopHotkeys, err := loop.StartHotkeys(cfg.CaptureHotkey, cfg.CloseHotkey)
	if err != nil {
		log.Printf("Hotkeys unavailable: %v", err)
		stopHotkeys = func() {}
	}
	defer stopHotkeys()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			log.Printf("Signal received, quitting")
			ui.Quit()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()

	a.Lifecycle().SetOnStarted(func() {
		go func() {
			if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("event loop stopped: %v", err)
				notification.ShowBlockingError("SSTranslate", fmt.Sprintf("Event loop stopped: %v", err))
				ui.Quit()
			}
		}()

		switch {
		case rt.MissingKey():
			// Without a key there is nothing to translate with; ask for one.
			ui.ShowPanel(gui.TabSettings)
			ui.Notify("Enter your DeepL API key in Settings to start translating.")
		case !hasTray:
			ui.ShowPanel(gui.TabInfo)
		}
		if triggerOnStart {
			loop.Trigger()
		}
	})

	log.Printf("SSTranslate initialized: capture=%s close=%s deadline=%ds", cfg.CaptureHotkey, cfg.CloseHotkey, cfg.TranslateDeadlineSec)
	ui.Run()
	log.Printf("SSTranslate exiting")
	return nil
}
