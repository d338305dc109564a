package ocr

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"

	"github.com/disintegration/imaging"
)

// Artifact is a PNG encoding of one cropped region on disk. It lives only as
// long as the engine call that needs it.
type Artifact struct {
	Path     string
	released bool
}

// NewArtifact encodes img as PNG into a fresh file under dir. On failure
// nothing is left behind.
func NewArtifact(dir string, img image.Image) (*Artifact, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	f, err := os.CreateTemp(dir, "screen-ocr-*.png")
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	a := &Artifact{Path: f.Name()}

	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		f.Close()
		a.Release()
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		a.Release()
		return nil, fmt.Errorf("close artifact: %w", err)
	}
	return a, nil
}

// Release removes the file. It is safe to call more than once.
func (a *Artifact) Release() error {
	if a == nil || a.released {
		return nil
	}
	a.released = true
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
