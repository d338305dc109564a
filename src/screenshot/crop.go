package screenshot

import (
	"errors"
	"image"
	"log"

	"github.com/disintegration/imaging"
)

var ErrEmptyRegion = errors.New("region is empty after clamping to snapshot bounds")

// Clamp intersects the region with bounds.
func (r Region) Clamp(bounds image.Rectangle) Region {
	c := r.Rect().Intersect(bounds)
	if c.Empty() {
		return Region{}
	}
	return Region{X: c.Min.X, Y: c.Min.Y, Width: c.Dx(), Height: c.Dy()}
}

// Extract returns a new image holding exactly the pixels of snap under r.
// Out-of-bounds regions are a caller bug; they are clamped and logged rather
// than read past the snapshot.
func Extract(snap *Snapshot, r Region) (*image.NRGBA, error) {
	if snap == nil || snap.Image == nil {
		return nil, errors.New("snapshot is nil")
	}
	clamped := r.Clamp(snap.Bounds())
	if clamped != r {
		log.Printf("screenshot: region %v clamped to %v (snapshot %dx%d)", r, clamped, snap.Width(), snap.Height())
	}
	if clamped.Empty() {
		return nil, ErrEmptyRegion
	}
	return imaging.Crop(snap.Image, clamped.Rect()), nil
}
