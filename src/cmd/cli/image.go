package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"sstranslate/src/clipboard"
	"sstranslate/src/config"
	"sstranslate/src/langs"
	"sstranslate/src/runtimeinit"
	"sstranslate/src/screenshot"
	"sstranslate/src/session"
	"sstranslate/src/settings"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type imageOptions struct {
	filePath      string
	fromClipboard bool
	region        string
	from          string
	to            string
	jsonOutput    bool
	save          bool
}

func newImageCmd(root *cliOptions) *cobra.Command {
	opts := &imageOptions{}
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Recognize and translate the text in a PNG image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.filePath == "" && !opts.fromClipboard && opts.region == "" {
				return fmt.Errorf("one of --file, --clipboard or --region is required")
			}
			return runImage(cmd.Context(), root, *opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.fromClipboard, "clipboard", false, "Read the image from the clipboard")
	cmd.Flags().StringVar(&opts.region, "region", "", "Capture this screen region instead: X,Y,W,H in pixels")
	cmd.Flags().StringVar(&opts.from, "from", "", "Source language code (defaults to the saved setting)")
	cmd.Flags().StringVar(&opts.to, "to", "", "Target language code (defaults to the saved setting)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Record the translation in history")
	cmd.MarkFlagsMutuallyExclusive("file", "clipboard", "region")
	return cmd
}

func runImage(ctx context.Context, root *cliOptions, opts imageOptions, stdin io.Reader, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:   root.loadOptions(),
		InitClipboard: opts.fromClipboard,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	s, err := withLanguages(rt.Settings.Get(), opts.from, opts.to)
	if err != nil {
		return err
	}

	img, err := loadImage(opts, stdin)
	if err != nil {
		return err
	}

	if rt.Config.Translator == config.TranslatorDeepL && rt.APIKey(s) == "" {
		return fmt.Errorf("DeepL API key is not set: run 'sstranslate-cli settings set api_key <key>' or set DEEPL_API_KEY")
	}

	res, err := session.Run(ctx, session.Options{
		Image:           img,
		Engine:          rt.Engine,
		Translator:      rt.Translator(s),
		Settings:        s,
		OCRFallbackLang: rt.Config.OCRLangs,
		Deadline:        time.Duration(rt.Config.TranslateDeadlineSec) * time.Second,
	})
	if err != nil {
		return &describedError{msg: session.Describe(err), err: err}
	}

	if opts.save {
		if _, _, err := rt.History.Add(res.SourceText, res.TranslatedText, res.SourceLang, res.TargetLang); err != nil {
			log.Printf("history: %v", err)
		}
	}

	return outputResult(stdout, res, sourceName(opts), opts.jsonOutput)
}

// describedError prints the user-facing message and keeps the cause for
// errors.Is.
type describedError struct {
	msg string
	err error
}

func (e *describedError) Error() string { return e.msg }
func (e *describedError) Unwrap() error { return e.err }

// withLanguages applies --from/--to over the saved settings. Codes are
// normalized to the table's spelling.
func withLanguages(s settings.Settings, from, to string) (settings.Settings, error) {
	if from != "" {
		l, ok := langs.Source(from)
		if !ok {
			return s, fmt.Errorf("unsupported source language %q (see 'sstranslate-cli langs')", from)
		}
		s.SourceLang = l.Code
	}
	if to != "" {
		l, ok := langs.Target(to)
		if !ok || l.Code == langs.Auto {
			return s, fmt.Errorf("unsupported target language %q (see 'sstranslate-cli langs --target')", to)
		}
		s.TargetLang = l.Code
	}
	return s, nil
}

func loadImage(opts imageOptions, stdin io.Reader) (image.Image, error) {
	if opts.region != "" {
		region, err := screenshot.ParseRegion(opts.region)
		if err != nil {
			return nil, err
		}
		log.Printf("Capturing screen region %+v", region)
		img, err := screenshot.CaptureRegion(region)
		if err != nil {
			return nil, err
		}
		return img, nil
	}

	data, err := readImageInput(opts, stdin)
	if err != nil {
		return nil, err
	}
	log.Printf("Read %d bytes", len(data))

	if err := validatePNG(data); err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}
	return img, nil
}

func sourceName(opts imageOptions) string {
	switch {
	case opts.fromClipboard:
		return "clipboard"
	case opts.region != "":
		return "screen " + opts.region
	}
	return opts.filePath
}

func readImageInput(opts imageOptions, stdin io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case opts.fromClipboard:
		log.Printf("Reading image from clipboard")
		data, err = clipboard.ReadImage()
		if err != nil {
			return nil, fmt.Errorf("failed to read clipboard: %w", err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("clipboard holds no image")
		}
	case opts.filePath == "-":
		log.Printf("Reading image from stdin")
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	default:
		log.Printf("Reading image from file: %s", opts.filePath)
		data, err = readFileLimited(opts.filePath)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// readFileLimited refuses files over maxFileSize before reading them.
func readFileLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	// The file may grow after Stat; validatePNG catches the extra byte.
	data, err := io.ReadAll(io.LimitReader(f, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

func validatePNG(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
		return fmt.Errorf("input is not a valid PNG file (invalid magic number)")
	}
	return nil
}

type TranslationResult struct {
	Source     string  `json:"source"`
	Text       string  `json:"text"`
	Translated string  `json:"translated"`
	SourceLang string  `json:"source_lang"`
	TargetLang string  `json:"target_lang"`
	Timestamp  string  `json:"timestamp"`
	Duration   float64 `json:"duration_seconds"`
}

func outputResult(w io.Writer, res session.Result, source string, jsonOutput bool) error {
	if !jsonOutput {
		_, err := fmt.Fprintln(w, res.TranslatedText)
		return err
	}

	out := TranslationResult{
		Source:     source,
		Text:       res.SourceText,
		Translated: res.TranslatedText,
		SourceLang: res.SourceLang,
		TargetLang: res.TargetLang,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Duration:   res.Elapsed.Seconds(),
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
