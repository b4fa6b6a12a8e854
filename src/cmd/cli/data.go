package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sstranslate/src/history"
	"sstranslate/src/langs"
	"sstranslate/src/logutil"
	"sstranslate/src/runtimeinit"
	"sstranslate/src/settings"
	"sstranslate/src/translate"
)

func newHistoryCmd(root *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or edit saved translations",
	}

	var (
		jsonOutput bool
		limit      int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved translations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, hist, err := openStores(root)
			if err != nil {
				return err
			}
			entries := hist.List()
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			return writeHistoryTable(cmd.OutOrStdout(), entries, outputWidth(cmd.OutOrStdout()))
		},
	}
	list.Flags().BoolVar(&jsonOutput, "json", false, "Output entries as JSON")
	list.Flags().IntVar(&limit, "limit", 0, "Show at most this many entries")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one saved translation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, hist, err := openStores(root)
			if err != nil {
				return err
			}
			if err := hist.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all saved translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, hist, err := openStores(root)
			if err != nil {
				return err
			}
			n := hist.Len()
			if err := hist.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d entries\n", n)
			return nil
		},
	}

	cmd.AddCommand(list, del, clearCmd)
	return cmd
}

func newSettingsCmd(root *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the saved settings",
	}

	var jsonOutput bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, _, err := openStores(root)
			if err != nil {
				return err
			}
			return writeSettings(cmd.OutOrStdout(), st.Get(), jsonOutput)
		},
	}
	show.Flags().BoolVar(&jsonOutput, "json", false, "Output settings as JSON")

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting (" + strings.Join(settings.Keys(), ", ") + ")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, _, err := openStores(root)
			if err != nil {
				return err
			}
			if err := st.Set(args[0], args[1]); err != nil {
				return err
			}
			return writeSettings(cmd.OutOrStdout(), st.Get(), false)
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, _, err := openStores(root)
			if err != nil {
				return err
			}
			if err := st.Reset(); err != nil {
				return err
			}
			return writeSettings(cmd.OutOrStdout(), st.Get(), false)
		},
	}

	cmd.AddCommand(show, set, reset)
	return cmd
}

func newLangsCmd() *cobra.Command {
	var target bool
	cmd := &cobra.Command{
		Use:   "langs",
		Short: "List supported language codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := langs.Sources()
			if target {
				table = langs.Targets()
			}
			return writeLangs(cmd.OutOrStdout(), table)
		},
	}
	cmd.Flags().BoolVar(&target, "target", false, "List target languages instead of source languages")
	return cmd
}

func newUsageCmd(root *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Check the API key and print the character usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeinit.Bootstrap(runtimeinit.Options{LoadOptions: root.loadOptions()})
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			msg, err := rt.CheckKey(ctx, "")
			if err != nil {
				return &describedError{msg: translate.Describe(err), err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

func writeSettings(w io.Writer, s settings.Settings, jsonOutput bool) error {
	doc := settings.Map(s)
	if key, ok := doc["api_key"].(string); ok && key != "" {
		doc["api_key"] = logutil.RedactKey(key)
	}
	if jsonOutput {
		return writeJSON(w, doc)
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%-15s %v\n", k, doc[k]); err != nil {
			return err
		}
	}
	return nil
}

func writeLangs(w io.Writer, table []langs.Language) error {
	for _, l := range table {
		if _, err := fmt.Fprintf(w, "%-6s %s\n", l.Code, l.Name); err != nil {
			return err
		}
	}
	return nil
}

// writeHistoryTable prints one line per entry. A width of zero disables
// truncation.
func writeHistoryTable(w io.Writer, entries []history.Entry, width int) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No saved translations.")
		return err
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %s  %s>%s  %s  =>  %s",
			e.ID,
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.SourceLang, e.TargetLang,
			oneLine(e.Source), oneLine(e.Translated))
		if _, err := fmt.Fprintln(w, truncate(line, width)); err != nil {
			return err
		}
	}
	return nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate shortens s to width runes, marking the cut with "...".
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

// outputWidth is the terminal width when w is a terminal, 0 otherwise.
func outputWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
