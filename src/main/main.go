package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"screen-ocr/src/clipboard"
	"screen-ocr/src/config"
	"screen-ocr/src/eventloop"
	"screen-ocr/src/logutil"
	"screen-ocr/src/notification"
	"screen-ocr/src/ocr"
	"screen-ocr/src/overlay"
	"screen-ocr/src/popup"
	"screen-ocr/src/runtimeinit"
	"screen-ocr/src/screenshot"
	"screen-ocr/src/singleinstance"
	"screen-ocr/src/tesseract"
	"screen-ocr/src/tray"
	"screen-ocr/src/worker"
)

const delegateTimeout = 2 * time.Second

type mainOptions struct {
	tessdataDir string
	capture     bool
}

func main() {
	// The tray and the overlay both need a stable OS thread.
	runtime.LockOSThread()

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
		args = []string{"screen-ocr"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-ocr",
		Short:         "Select a screen region from the tray and extract its text",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResident(*opts)
		},
	}

	cmd.Flags().StringVar(&opts.tessdataDir, "tessdata", "", "Directory holding eng.traineddata (overrides TESSDATA_DIR)")
	cmd.Flags().BoolVar(&opts.capture, "capture", false, "Start a capture right after startup")

	return cmd
}

// normalizeLegacyArgs maps single-dash long flags to the GNU form cobra expects.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		switch {
		case arg == "-capture":
			normalized[i] = "--capture"
		case strings.HasPrefix(arg, "-capture="):
			normalized[i] = "--capture=" + arg[len("-capture="):]
		case arg == "-tessdata":
			normalized[i] = "--tessdata"
		case strings.HasPrefix(arg, "-tessdata="):
			normalized[i] = "--tessdata=" + arg[len("-tessdata="):]
		}
	}

	return normalized
}

// handleDelegation hands one capture to an already running resident. It
// reports true when this process has nothing left to do. A resident that
// refuses the request still owns the port, so this process exits as well.
func handleDelegation(ctx context.Context, client singleinstance.Client) bool {
	delegated, err := client.TryCapture(ctx)
	switch {
	case delegated && err != nil:
		log.Printf("Resident refused capture: %v", err)
		return true
	case delegated:
		log.Printf("Delegated capture to resident")
		return true
	case err != nil:
		log.Printf("Delegation error: %v; starting resident", err)
	}
	return false
}

func runResident(opts mainOptions) error {
	loadOptions := config.LoadOptions{TessdataDirOverride: opts.tessdataDir}

	// Load .env early so SINGLEINSTANCE_PORT is known before delegation.
	early, err := config.LoadWithOptions(loadOptions)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	dctx, dcancel := context.WithTimeout(context.Background(), delegateTimeout)
	done := handleDelegation(dctx, singleinstance.NewClient(early.SingleInstancePort))
	dcancel()
	if done {
		return nil
	}

	enableDPIAwareness()

	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:             loadOptions,
		SetupLogging:            logutil.Setup,
		ShowBlockingEngineError: true,
	})
	if err != nil {
		return err
	}
	logDisplayConfiguration()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := singleinstance.NewServer(cfg.SingleInstancePort)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("another instance owns port %d: %w", cfg.SingleInstancePort, err)
	}
	defer server.Close()
	log.Printf("Resident listening on port %d", server.Port())

	pool := worker.New(ocr.New(tesseract.New(cfg.TessdataDir), cfg.TempDir), 1)
	defer pool.Close()

	loop := eventloop.New(eventloop.Options{
		Capturer:  screenshot.PrimaryCapturer{},
		Selector:  overlay.NewSelector(overlay.DefaultStyle(cfg.OverlayOpacity)),
		Pool:      pool,
		Presenter: popup.New(notification.Native(), clipboard.System{}),
		Server:    server,
		OnBusy:    tray.SetBusy,
	})

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("event loop stopped: %v", err)
		}
		tray.Quit()
	}()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			log.Printf("Signal received, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	if opts.capture {
		loop.StartCapture()
	}

	log.Printf("Screen OCR resident started (language %s, tessdata %s)", cfg.Language, cfg.TessdataDir)
	tray.Run(tray.Options{
		OnCapture: loop.StartCapture,
		OnExit:    cancel,
	})

	cancel()
	<-stopped
	log.Printf("Screen OCR resident stopped")
	return nil
}

func logDisplayConfiguration() {
	bounds, err := screenshot.GetDisplayBounds()
	if err != nil {
		log.Printf("DISPLAY: %v", err)
		return
	}
	log.Printf("DISPLAY: primary %dx%d at (%d,%d)", bounds.Dx(), bounds.Dy(), bounds.Min.X, bounds.Min.Y)
}
