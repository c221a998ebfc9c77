// Package testsupport renders scanned-sheet fixtures for tests.
package testsupport

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
)

const (
	SheetWidth  = 800
	SheetHeight = 300

	moduleWidth   = 3
	barcodeHeight = 80
)

// BarcodeLeft and BarcodeRight are x offsets that place a symbol on either
// side of the vertical midline of a sheet.
const (
	BarcodeLeft  = 40
	BarcodeRight = 460
)

func BlankSheet() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, SheetWidth, SheetHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

// TextSheet is a page with a block of ink but no barcode.
func TextSheet() *image.Gray {
	img := BlankSheet()
	draw.Draw(img, image.Rect(100, 200, 400, 240), image.Black, image.Point{}, draw.Src)
	return img
}

// DrawBarcode stamps a Code 128 symbol with its top-left corner at (x, y).
func DrawBarcode(img *image.Gray, text string, x, y int) error {
	bc, err := code128.Encode(text)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", text, err)
	}
	scaled, err := barcode.Scale(bc, bc.Bounds().Dx()*moduleWidth, barcodeHeight)
	if err != nil {
		return fmt.Errorf("failed to scale %q: %w", text, err)
	}
	r := image.Rect(x, y, x+scaled.Bounds().Dx(), y+scaled.Bounds().Dy())
	draw.Draw(img, r, scaled, scaled.Bounds().Min, draw.Src)
	return nil
}

// BarcodeSheet is a page carrying one symbol at horizontal offset x.
func BarcodeSheet(text string, x int) (*image.Gray, error) {
	img := BlankSheet()
	if err := DrawBarcode(img, text, x, (SheetHeight-barcodeHeight)/2); err != nil {
		return nil, err
	}
	return img, nil
}

// TwoBarcodeSheet carries two symbols, one on each half.
func TwoBarcodeSheet(left, right string) (*image.Gray, error) {
	img := BlankSheet()
	if err := DrawBarcode(img, left, BarcodeLeft, 30); err != nil {
		return nil, err
	}
	if err := DrawBarcode(img, right, BarcodeRight, 190); err != nil {
		return nil, err
	}
	return img, nil
}

func Dot(img *image.Gray, x, y int) {
	img.SetGray(x, y, color.Gray{})
}

func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ReadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}
