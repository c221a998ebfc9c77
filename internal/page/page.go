// Package page loads scanned sheets and measures how much ink they carry.
package page

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Grayscale converts any decoded image to 8-bit luminance with its origin at
// zero.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// Fill returns the fraction of pixels darker than blackLevel (0..1).
func Fill(img *image.Gray, blackLevel float64) float64 {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}

	var dark int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y) : img.PixOffset(b.Min.X, y)+b.Dx()]
		for _, v := range row {
			if float64(v)/255 < blackLevel {
				dark++
			}
		}
	}
	return float64(dark) / float64(total)
}

// HasContent reports whether the page carries more ink than a blank sheet.
func HasContent(img *image.Gray, blackLevel, pageEmpty float64) bool {
	return Fill(img, blackLevel) > pageEmpty
}

func Rotate180(img *image.Gray) *image.Gray {
	return Grayscale(imaging.Rotate180(img))
}

// NeedsRotation reports whether a barcode whose left edge sits at side
// (relative to page width) marks an upside-down sheet.
func NeedsRotation(side float64) bool {
	return side <= 0.5
}
