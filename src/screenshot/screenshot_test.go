package screenshot

import (
	"image"
	"image/color"
	"os"
	"testing"
)

// patternSnapshot builds a snapshot whose pixel at (x,y) is R=x, G=y, B=0x7f.
func patternSnapshot(t *testing.T, w, h int) *Snapshot {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x7f, A: 0xff})
		}
	}
	return NewSnapshot(img, image.Point{})
}

func TestNewSnapshotRebasesToOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(-20, 5, 80, 45))
	src.SetRGBA(-20, 5, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	snap := NewSnapshot(src, image.Point{X: -20, Y: 5})

	if snap.Bounds() != image.Rect(0, 0, 100, 40) {
		t.Fatalf("expected bounds (0,0)-(100,40), got %v", snap.Bounds())
	}
	if got := snap.Image.RGBAAt(0, 0); got != (color.RGBA{R: 1, G: 2, B: 3, A: 255}) {
		t.Fatalf("expected top-left pixel to be copied, got %#v", got)
	}
	if snap.Origin != (image.Point{X: -20, Y: 5}) {
		t.Fatalf("expected origin to be kept, got %v", snap.Origin)
	}
}

func TestCapturePrimary(t *testing.T) {
	if os.Getenv("SCREEN_OCR_INTERACTIVE_TESTS") != "1" {
		t.Skip("set SCREEN_OCR_INTERACTIVE_TESTS=1 to capture the real display")
	}
	snap, err := CapturePrimary()
	if err != nil {
		t.Fatalf("CapturePrimary failed: %v", err)
	}
	if snap.Bounds().Min != (image.Point{}) {
		t.Fatalf("expected snapshot anchored at origin, got %v", snap.Bounds())
	}
	if snap.Width() == 0 || snap.Height() == 0 {
		t.Fatal("expected non-empty snapshot")
	}
}
