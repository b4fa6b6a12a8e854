package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sstranslate/src/config"
	"sstranslate/src/history"
	"sstranslate/src/logutil"
	"sstranslate/src/settings"
)

type cliOptions struct {
	dataDir    string
	translator string
	ocrEngine  string
	verbose    bool
}

func (o *cliOptions) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		DataDirOverride:    o.dataDir,
		TranslatorOverride: o.translator,
		OCREngineOverride:  o.ocrEngine,
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"sstranslate-cli"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sstranslate-cli",
		Short:         "Translate images and manage SSTranslate data from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Configure logging BEFORE any other operations.
			logutil.SetupStderr(opts.verbose)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Directory holding settings.json and history.json")
	cmd.PersistentFlags().StringVar(&opts.translator, "translator", "", "Translation backend: deepl or openrouter")
	cmd.PersistentFlags().StringVar(&opts.ocrEngine, "ocr-engine", "", "OCR engine: tesseract or llm")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")

	cmd.AddCommand(
		newImageCmd(opts),
		newHistoryCmd(opts),
		newSettingsCmd(opts),
		newLangsCmd(),
		newUsageCmd(opts),
	)
	return cmd
}

// normalizeLegacyArgs maps single-dash long flags (-file) to cobra's --file.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	long := []string{"file", "json", "verbose", "data-dir", "translator", "ocr-engine", "from", "to", "save", "clipboard", "region", "limit", "target"}
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

// openStores opens settings and history without the OCR and translation
// stack, so data commands work without API keys.
func openStores(opts *cliOptions) (*config.Config, *settings.Store, *history.Store, error) {
	cfg, err := config.LoadWithOptions(opts.loadOptions())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}
	st, err := settings.Open(cfg.SettingsPath())
	if err != nil {
		return nil, nil, nil, err
	}
	hist, err := history.Open(cfg.HistoryPath(), cfg.HistoryLimit)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, st, hist, nil
}
