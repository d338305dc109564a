package runtimeinit

import (
	"fmt"
	"log"

	"screen-ocr/src/clipboard"
	"screen-ocr/src/config"
	"screen-ocr/src/notification"
	"screen-ocr/src/tesseract"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// ShowBlockingEngineError shows a system-modal notice when the engine probe fails.
	ShowBlockingEngineError bool
	// InitClipboard defaults to clipboard.Init.
	InitClipboard func() error
	// ShowError defaults to notification.ShowBlockingError.
	ShowError func(title, message string)
}

// Bootstrap loads configuration, configures logging and checks that the OCR
// engine can start. A clipboard failure is logged, not fatal: recognition
// still works and the copy offer reports the error.
func Bootstrap(opts Options) (*config.Config, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	if err := tesseract.Probe(cfg.TessdataDir); err != nil {
		if opts.ShowBlockingEngineError {
			show := opts.ShowError
			if show == nil {
				show = notification.ShowBlockingError
			}
			show("OCR engine unavailable", fmt.Sprintf("Startup check failed: %v\n\nPlease verify that %s contains %s.traineddata.", err, cfg.TessdataDir, cfg.Language))
		}
		return nil, fmt.Errorf("startup check failed: %w", err)
	}
	log.Printf("OCR engine data found in %s", cfg.TessdataDir)

	initClipboard := opts.InitClipboard
	if initClipboard == nil {
		initClipboard = clipboard.Init
	}
	if err := initClipboard(); err != nil {
		log.Printf("clipboard unavailable: %v", err)
	}

	return cfg, nil
}
