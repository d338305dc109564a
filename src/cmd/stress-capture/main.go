package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"screen-ocr/src/config"
	"screen-ocr/src/singleinstance"
)

type stressOptions struct {
	n        int
	port     int
	deadline time.Duration
}

type tally struct {
	ok         int32
	busy       int32
	noResident int32
	err        int32
}

func (t *tally) String() string {
	return fmt.Sprintf("ok=%d busy=%d no-resident=%d err=%d", t.ok, t.busy, t.noResident, t.err)
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
		Use:           "stress-capture",
		Short:         "Send concurrent capture requests to the resident",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts)
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().IntVar(&opts.port, "port", 0, "resident port (default: SINGLEINSTANCE_PORT or 49600)")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func runWithOptions(opts stressOptions) error {
	port := opts.port
	if port == 0 {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		port = cfg.SingleInstancePort
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
	defer cancel()
	if !singleinstance.DetectResident(ctx, port) {
		return fmt.Errorf("no resident answering on port %d", port)
	}

	start := time.Now()
	t := stress(singleinstance.NewClient(port), opts.n, opts.deadline)
	fmt.Fprintf(os.Stdout, "launched=%d %s elapsed=%s\n", opts.n, t, time.Since(start))
	return nil
}

// stress fires n concurrent capture requests. A resident with one free
// session slot accepts at most one of them; the rest must come back busy.
func stress(client singleinstance.Client, n int, deadline time.Duration) *tally {
	var wg sync.WaitGroup
	t := &tally{}

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), deadline)
			defer cancel()
			delegated, err := client.TryCapture(ctx)
			switch {
			case err != nil && strings.Contains(strings.ToLower(err.Error()), "busy"):
				atomic.AddInt32(&t.busy, 1)
			case err != nil:
				atomic.AddInt32(&t.err, 1)
			case delegated:
				atomic.AddInt32(&t.ok, 1)
			default:
				atomic.AddInt32(&t.noResident, 1)
			}
		}()
	}
	wg.Wait()
	return t
}
