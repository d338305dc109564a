package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"log"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const iconSize = 16

var (
	iconBlue  = color.RGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0xff}
	iconWhite = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// IconImage renders the indicator: a blue square with a white inset and a
// blue "A".
func IconImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(iconBlue), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(2, 2, iconSize-2, iconSize-2), image.NewUniform(iconWhite), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(iconBlue),
		Face: face,
		// center the 7px glyph; the 13px cell overhangs the inset by a pixel
		Dot: fixed.P((iconSize-face.Advance)/2, 2+face.Ascent),
	}
	d.DrawString("A")
	return img
}

// IconPNG encodes IconImage as PNG.
func IconPNG() []byte {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, IconImage(), imaging.PNG); err != nil {
		log.Printf("tray: failed to encode icon: %v", err)
		return nil
	}
	return buf.Bytes()
}

// wrapICO packs a single PNG image into an ICO container, which is what the
// Windows notification area expects.
func wrapICO(png []byte, size int) []byte {
	var buf bytes.Buffer
	dim := byte(size)
	if size >= 256 {
		dim = 0
	}
	// ICONDIR
	binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.Write([]byte{dim, dim, 0, 0})
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // planes
	binary.Write(&buf, binary.LittleEndian, uint16(32)) // bit count
	binary.Write(&buf, binary.LittleEndian, uint32(len(png)))
	binary.Write(&buf, binary.LittleEndian, uint32(6+16))
	buf.Write(png)
	return buf.Bytes()
}
