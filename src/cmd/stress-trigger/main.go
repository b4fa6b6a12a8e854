package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"sstranslate/src/singleinstance"
)

type stressOptions struct {
	n        int
	mode     string
	deadline time.Duration
}

type tally struct {
	ok, busy, failed, absent int32
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-trigger",
		Short:         "Fire concurrent capture triggers at the running resident",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.mode != "std" && opts.mode != "clip" {
				return fmt.Errorf("unknown mode %q (std|clip)", opts.mode)
			}
			t := runWithOptions(*opts, singleinstance.NewClient)
			report(cmd.OutOrStdout(), opts.n, t)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.mode, "mode", "std", "std|clip: plain trigger or trigger with clipboard copy")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

// runWithOptions launches opts.n concurrent triggers. Only one can hold
// the resident; the rest should come back busy.
func runWithOptions(opts stressOptions, newClient func() singleinstance.Client) *tally {
	var (
		wg sync.WaitGroup
		t  tally
	)
	req := singleinstance.Request{Clipboard: opts.mode == "clip"}

	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			delegated, _, err := newClient().TryTrigger(ctx, req)
			switch {
			case !delegated && err == nil:
				atomic.AddInt32(&t.absent, 1)
			case err != nil && strings.Contains(strings.ToLower(err.Error()), "busy"):
				atomic.AddInt32(&t.busy, 1)
			case err != nil:
				atomic.AddInt32(&t.failed, 1)
			default:
				atomic.AddInt32(&t.ok, 1)
			}
		}()
	}
	wg.Wait()
	return &t
}

func report(w io.Writer, n int, t *tally) {
	fmt.Fprintf(w, "launched=%d ok=%d busy=%d err=%d no-resident=%d\n", n, t.ok, t.busy, t.failed, t.absent)
}
