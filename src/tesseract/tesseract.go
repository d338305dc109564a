// Package tesseract binds the ocr.Engine capability to Tesseract through
// gosseract. The language and page segmentation mode are fixed; only the
// location of the language data is configurable.
package tesseract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"screen-ocr/src/config"
	"screen-ocr/src/ocr"
)

// Language is the only language the engine is initialized with.
const Language = config.Language

// Engine runs Tesseract against image files. A fresh native client is created
// per call, so an Engine is safe to share.
type Engine struct {
	DataDir string
}

// New returns an engine reading language data from dataDir.
func New(dataDir string) *Engine {
	return &Engine{DataDir: dataDir}
}

// TrainedDataPath is where the engine expects the language model.
func TrainedDataPath(dataDir, lang string) string {
	return filepath.Join(dataDir, lang+".traineddata")
}

// Probe checks that dataDir holds a readable model for the fixed language.
// It is the startup check; a failure here would fail every capture later.
func Probe(dataDir string) error {
	if strings.TrimSpace(dataDir) == "" {
		return &ocr.EngineError{Op: "init", Err: fmt.Errorf("tessdata directory is not configured")}
	}
	path := TrainedDataPath(dataDir, Language)
	info, err := os.Stat(path)
	if err != nil {
		return &ocr.EngineError{Op: "init", Err: fmt.Errorf("language data %s: %w", path, err)}
	}
	if info.IsDir() || info.Size() == 0 {
		return &ocr.EngineError{Op: "init", Err: fmt.Errorf("language data %s is not a model file", path)}
	}
	return nil
}
