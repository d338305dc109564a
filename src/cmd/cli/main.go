package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"screen-ocr/src/config"
	"screen-ocr/src/ocr"
	"screen-ocr/src/screenshot"
	"screen-ocr/src/tesseract"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

type cliOptions struct {
	filePath    string
	region      string
	jsonOutput  bool
	verbose     bool
	tessdataDir string
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
		args = []string{"ocr-file"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ocr-file",
		Short:         "Run OCR on an image file",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to an image file (use '-' for stdin)")
	cmd.Flags().StringVar(&opts.region, "region", "", "Region to recognize as x,y,w,h (default: whole image)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.tessdataDir, "tessdata", "", "Directory holding eng.traineddata (highest precedence)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWithOptions(ctx context.Context, opts cliOptions, out io.Writer) error {
	// Configure logging BEFORE any other operations.
	if !opts.verbose {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(os.Stderr)
		fmt.Fprintf(os.Stderr, "[verbose] Starting OCR tool\n")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	region, err := parseRegion(opts.region)
	if err != nil {
		return err
	}

	cfg, err := config.LoadWithOptions(config.LoadOptions{TessdataDirOverride: opts.tessdataDir})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] Tessdata directory: %s\n", cfg.TessdataDir)
	}
	if err := tesseract.Probe(cfg.TessdataDir); err != nil {
		return err
	}

	img, err := loadImage(opts.filePath, opts.verbose)
	if err != nil {
		return err
	}

	snap := screenshot.NewSnapshot(img, image.Point{})
	if region == nil {
		whole := screenshot.Region{Width: snap.Width(), Height: snap.Height()}
		region = &whole
	}
	crop, err := screenshot.Extract(snap, *region)
	if err != nil {
		return fmt.Errorf("region %s: %w", region, err)
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] Recognizing region %s of a %dx%d image\n", region, snap.Width(), snap.Height())
	}

	rec := ocr.New(tesseract.New(cfg.TessdataDir), cfg.TempDir)
	startTime := time.Now()
	text, err := rec.Recognize(ctx, crop)
	elapsed := time.Since(startTime)
	if err != nil {
		if opts.verbose {
			fmt.Fprintf(os.Stderr, "[verbose] OCR failed after %v: %v\n", elapsed, err)
		}
		return fmt.Errorf("OCR failed: %w", err)
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] OCR completed in %v, extracted %d characters\n", elapsed, len([]rune(text)))
	}

	return outputResult(out, OCRResult{
		Text:      text,
		Source:    opts.filePath,
		Region:    region.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  elapsed.Seconds(),
		CharCount: len([]rune(text)),
	}, opts.jsonOutput)
}

// parseRegion reads "x,y,w,h". An empty value selects the whole image.
func parseRegion(s string) (*screenshot.Region, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid region %q: want x,y,w,h", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid region %q: %w", s, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return nil, fmt.Errorf("invalid region %q: %w", s, screenshot.ErrEmptyRegion)
	}
	return &screenshot.Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

func loadImage(filePath string, verbose bool) (image.Image, error) {
	var r io.Reader
	if filePath == "-" {
		if verbose {
			fmt.Fprintf(os.Stderr, "[verbose] Reading image from stdin\n")
		}
		r = os.Stdin
	} else {
		if verbose {
			fmt.Fprintf(os.Stderr, "[verbose] Reading image from file: %s\n", filePath)
		}
		f, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
		defer f.Close()
		r = f
	}
	return decodeImage(r)
}

var errEmptyInput = errors.New("input file is empty")

func decodeImage(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if len(data) == 0 {
		return nil, errEmptyInput
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("input is not a supported image: %w", err)
	}
	return img, nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "region", "json", "verbose", "tessdata"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}

type OCRResult struct {
	Text      string  `json:"text"`
	Source    string  `json:"source"`
	Region    string  `json:"region"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
	CharCount int     `json:"character_count"`
}

func outputResult(out io.Writer, result OCRResult, jsonOutput bool) error {
	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}
	fmt.Fprint(out, result.Text)
	return nil
}
