// Package barcode finds Code 128 symbols on a scanned page.
package barcode

import (
	"image"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"

	"github.com/kpauljoseph/consentsort/pkg/logger"
	"github.com/kpauljoseph/consentsort/pkg/models"
)

// inkLevel is the gray value below which a pixel counts as part of a bar
// when measuring the vertical extent of a symbol.
const inkLevel = 128

type Extractor struct {
	maxHits int
	logger  *logger.Logger
}

// NewExtractor returns an extractor that stops looking once maxHits symbols
// are found. Anything above one hit is ambiguous to callers, so a small cap
// is enough.
func NewExtractor(maxHits int, log *logger.Logger) *Extractor {
	if maxHits < 2 {
		maxHits = 2
	}
	return &Extractor{maxHits: maxHits, logger: log}
}

// Extract decodes every Code 128 symbol in img, or in region if it is not
// empty. Hit rectangles are in img coordinates. A failed decode yields no
// hits.
func (e *Extractor) Extract(img *image.Gray, region image.Rectangle) []models.BarcodeHit {
	work := imaging.Clone(img)
	offset := img.Bounds().Min
	if !region.Empty() {
		region = region.Intersect(img.Bounds())
		if region.Empty() {
			return nil
		}
		work = imaging.Crop(img, region)
		offset = region.Min
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	reader := oned.NewCode128Reader()

	var hits []models.BarcodeHit
	for len(hits) < e.maxHits {
		bmp, err := gozxing.NewBinaryBitmapFromImage(work)
		if err != nil {
			e.logger.Debug("Barcode bitmap conversion failed: %v", err)
			break
		}
		res, err := reader.Decode(bmp, hints)
		if err != nil {
			break
		}

		rect := symbolBounds(work, res.GetResultPoints())
		if rect.Empty() {
			break
		}
		hits = append(hits, models.BarcodeHit{
			Text: res.GetText(),
			Rect: rect.Add(offset),
		})
		// Blank the symbol so the next pass can find another one.
		draw.Draw(work, rect, image.White, image.Point{}, draw.Src)
	}

	e.logger.Debug("Found %d barcode(s)", len(hits))
	return hits
}

// symbolBounds widens the scan line reported by the 1D reader into the full
// rectangle of bars above and below it.
func symbolBounds(img *image.NRGBA, points []gozxing.ResultPoint) image.Rectangle {
	if len(points) == 0 {
		return image.Rectangle{}
	}
	minX, maxX := math.Inf(1), math.Inf(-1)
	var sumY float64
	for _, p := range points {
		minX = math.Min(minX, p.GetX())
		maxX = math.Max(maxX, p.GetX())
		sumY += p.GetY()
	}

	b := img.Bounds()
	x0 := clamp(int(math.Floor(minX)), b.Min.X, b.Max.X-1)
	x1 := clamp(int(math.Ceil(maxX))+1, x0+1, b.Max.X)
	row := clamp(int(sumY/float64(len(points))), b.Min.Y, b.Max.Y-1)

	top := row
	for top > b.Min.Y && hasInk(img, x0, x1, top-1) {
		top--
	}
	bottom := row + 1
	for bottom < b.Max.Y && hasInk(img, x0, x1, bottom) {
		bottom++
	}

	// The reader reports the centres of the start and stop patterns; walk
	// outwards across their bars, tolerating narrow spaces, up to the quiet zone.
	gap := max(2, (x1-x0)/25)
	x0 = extend(img, x0, -1, b.Min.X, gap, top, bottom)
	x1 = extend(img, x1-1, 1, b.Max.X-1, gap, top, bottom) + 1
	return image.Rect(x0, top, x1, bottom)
}

func extend(img *image.NRGBA, x, step, limit, gap, top, bottom int) int {
	edge, white := x, 0
	for x != limit && white <= gap {
		x += step
		if columnHasInk(img, x, top, bottom) {
			edge, white = x, 0
		} else {
			white++
		}
	}
	return edge
}

func columnHasInk(img *image.NRGBA, x, y0, y1 int) bool {
	for y := y0; y < y1; y++ {
		if isInk(img, x, y) {
			return true
		}
	}
	return false
}

func hasInk(img *image.NRGBA, x0, x1, y int) bool {
	for x := x0; x < x1; x++ {
		if isInk(img, x, y) {
			return true
		}
	}
	return false
}

func isInk(img *image.NRGBA, x, y int) bool {
	c := img.NRGBAAt(x, y)
	lum := (299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B)) / 1000
	return lum < inkLevel
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
