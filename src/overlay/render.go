package overlay

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"screen-ocr/src/screenshot"
	"screen-ocr/src/selection"
)

const HintText = "Drag to select, ESC to cancel"

// Style controls how the overlay frame is painted.
type Style struct {
	// Opacity is how strongly the frozen screen is dimmed, 0..1.
	Opacity      float64
	Outline      colorful.Color
	OutlineWidth int
	Label        colorful.Color
	Hint         string
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultStyle is a red outline with a yellow size label.
func DefaultStyle(opacity float64) Style {
	return Style{
		Opacity:      clampUnit(opacity),
		Outline:      mustHex("#FF0000"),
		OutlineWidth: 2,
		Label:        mustHex("#FFFF00"),
		Hint:         HintText,
	}
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func rgba(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// Dim returns the snapshot darkened by opacity. The overlay paints this
// instead of relying on window alpha, so what the user sees is the same frozen
// frame the region will be cut from.
func Dim(snap *screenshot.Snapshot, opacity float64) *image.RGBA {
	return adjust.Brightness(snap.Image, -clampUnit(opacity))
}

// RenderFrame paints one overlay frame into dst: the dimmed snapshot, the
// selected area at full brightness with its outline, the "W × H" label and
// the hint line.
func RenderFrame(dst, dimmed *image.RGBA, snap *screenshot.Snapshot, fb selection.Feedback, style Style) {
	copy(dst.Pix, dimmed.Pix)

	if fb.Visible {
		r := fb.Region.Rect().Intersect(dst.Bounds())
		if !r.Empty() {
			draw.Draw(dst, r, snap.Image, r.Min, draw.Src)
		}
		strokeRect(dst, fb.Region.Rect(), style.OutlineWidth, rgba(style.Outline))
		drawText(dst, fb.LabelAt, fb.Label, rgba(style.Label))
	}
	if style.Hint != "" {
		drawText(dst, image.Point{X: 16, Y: 16}, style.Hint, rgba(style.Label))
	}
}

// strokeRect draws a border of width w just inside r.
func strokeRect(dst *image.RGBA, r image.Rectangle, w int, c color.RGBA) {
	if w <= 0 || r.Empty() {
		return
	}
	src := image.NewUniform(c)
	w = min(w, (r.Dx()+1)/2, (r.Dy()+1)/2)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w),
		image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y),
		image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

// drawText draws s with its top-left corner at p.
func drawText(dst *image.RGBA, p image.Point, s string, c color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(p.X, p.Y+face.Ascent),
	}
	d.DrawString(s)
}
