//go:build cgo

package tesseract

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"screen-ocr/src/ocr"
)

// Text implements ocr.Engine.
func (e *Engine) Text(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := Probe(e.DataDir); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetTessdataPrefix(e.DataDir); err != nil {
		return "", &ocr.EngineError{Op: "init", Err: err}
	}
	if err := client.SetLanguage(Language); err != nil {
		return "", &ocr.EngineError{Op: "init", Err: err}
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", &ocr.EngineError{Op: "init", Err: err}
	}
	if err := client.SetImage(path); err != nil {
		return "", &ocr.EngineError{Op: "process", Err: err}
	}

	text, err := client.Text()
	if err != nil {
		op := "process"
		if strings.Contains(err.Error(), "initialize") {
			op = "init"
		}
		return "", &ocr.EngineError{Op: op, Err: err}
	}
	return strings.TrimSpace(text), nil
}
