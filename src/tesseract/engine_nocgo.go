//go:build !cgo

package tesseract

import (
	"context"
	"errors"

	"screen-ocr/src/ocr"
)

// Text implements ocr.Engine. Without cgo there is no native Tesseract to call.
func (e *Engine) Text(ctx context.Context, path string) (string, error) {
	return "", &ocr.EngineError{Op: "init", Err: errors.New("built without cgo, tesseract is unavailable")}
}
