//go:build !windows

package overlay

import (
	"context"

	"screen-ocr/src/screenshot"
)

type unsupportedSelector struct{}

// NewSelector returns a selector that always fails with ErrUnsupported.
func NewSelector(style Style) Selector { return unsupportedSelector{} }

func (unsupportedSelector) Select(ctx context.Context, snap *screenshot.Snapshot) (Result, error) {
	return Result{}, ErrUnsupported
}
