package screenshot

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log"
	"time"

	"github.com/kbinani/screenshot"
)

var ErrNoDisplay = errors.New("no active displays found")

// Region represents a normalized screen rectangle in overlay-local pixels.
// The overlay spans the whole primary display, so overlay-local equals
// snapshot-local.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Rect converts the region to an image rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether the region covers no pixels.
func (r Region) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

func (r Region) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Snapshot is an immutable copy of the primary display taken when a capture
// session is armed. Image is always rebased so that its bounds start at (0,0);
// Origin keeps the display-global position of that pixel.
type Snapshot struct {
	Image   *image.RGBA
	Origin  image.Point
	TakenAt time.Time
}

// NewSnapshot copies img into a fresh RGBA buffer anchored at (0,0).
func NewSnapshot(img image.Image, origin image.Point) *Snapshot {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return &Snapshot{Image: rgba, Origin: origin, TakenAt: time.Now()}
}

// Bounds returns the snapshot bounds, always anchored at (0,0).
func (s *Snapshot) Bounds() image.Rectangle { return s.Image.Bounds() }

// Width returns the snapshot width in pixels.
func (s *Snapshot) Width() int { return s.Image.Bounds().Dx() }

// Height returns the snapshot height in pixels.
func (s *Snapshot) Height() int { return s.Image.Bounds().Dy() }

// Capturer takes a snapshot of the primary display.
type Capturer interface {
	Capture() (*Snapshot, error)
}

// PrimaryCapturer captures the primary display with kbinani/screenshot.
type PrimaryCapturer struct{}

func (PrimaryCapturer) Capture() (*Snapshot, error) { return CapturePrimary() }

// GetDisplayBounds returns the bounds of the primary display. The primary
// display is the one whose bounds start at (0,0); display 0 is the fallback.
func GetDisplayBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, ErrNoDisplay
	}
	for i := 0; i < n; i++ {
		b := screenshot.GetDisplayBounds(i)
		if b.Min.X == 0 && b.Min.Y == 0 {
			return b, nil
		}
	}
	return screenshot.GetDisplayBounds(0), nil
}

// CapturePrimary captures the current pixels of the primary display.
func CapturePrimary() (*Snapshot, error) {
	bounds, err := GetDisplayBounds()
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture primary display: %w", err)
	}
	log.Printf("screenshot: captured primary display %dx%d at (%d,%d)", bounds.Dx(), bounds.Dy(), bounds.Min.X, bounds.Min.Y)
	if img.Bounds().Min == (image.Point{}) {
		return &Snapshot{Image: img, Origin: bounds.Min, TakenAt: time.Now()}, nil
	}
	return NewSnapshot(img, bounds.Min), nil
}
