// Package ocr turns a cropped image into text through an external engine.
// The engine only reads files, so every call writes the image to a transient
// PNG artifact and removes it again before returning.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"
)

// Engine is the external recognition capability. Text reads the image at path
// and returns whatever text it finds, which may be empty.
type Engine interface {
	Text(ctx context.Context, path string) (string, error)
}

// EngineError reports that the engine could not be initialized or could not
// process the image. Op is "init", "encode" or "process".
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("ocr %s failed: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Recognizer runs one image through the engine per call.
type Recognizer struct {
	Engine Engine
	// TempDir holds the transient artifacts. Empty means os.TempDir().
	TempDir string
}

func New(engine Engine, tempDir string) *Recognizer {
	return &Recognizer{Engine: engine, TempDir: tempDir}
}

// Recognize returns the text in img. Any failure is an *EngineError, and the
// transient artifact is gone by the time Recognize returns or panics.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	if r.Engine == nil {
		return "", &EngineError{Op: "init", Err: errors.New("no engine configured")}
	}

	artifact, err := NewArtifact(r.TempDir, img)
	if err != nil {
		return "", &EngineError{Op: "encode", Err: err}
	}
	defer func() {
		if err := artifact.Release(); err != nil {
			log.Printf("OCR: failed to remove artifact %s: %v", artifact.Path, err)
		}
	}()

	start := time.Now()
	text, err := r.Engine.Text(ctx, artifact.Path)
	if err != nil {
		var ee *EngineError
		if errors.As(err, &ee) {
			return "", err
		}
		return "", &EngineError{Op: "process", Err: err}
	}
	log.Printf("OCR: engine returned %d chars in %v", len(text), time.Since(start))
	return text, nil
}
