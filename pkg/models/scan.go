package models

import (
	"image"
	"path/filepath"
)

// ScanFile is one scanned page image as found in the input listing.
type ScanFile struct {
	Path string
	Seq  int
}

func (f ScanFile) Name() string {
	return filepath.Base(f.Path)
}

func (f ScanFile) Parity() int {
	return f.Seq % 2
}

func (f ScanFile) IsOdd() bool {
	return f.Parity() == 1
}

// Doublet is the front and back of one physical sheet.
type Doublet struct {
	Odd  ScanFile
	Even ScanFile
}

type BarcodeHit struct {
	Text string
	Rect image.Rectangle
}

// Side is the left edge of the hit relative to the image width.
func (h BarcodeHit) Side(imageWidth int) float64 {
	if imageWidth <= 0 {
		return 0
	}
	return float64(h.Rect.Min.X) / float64(imageWidth)
}

type PageDecision struct {
	Source     string
	Accepted   bool
	Identifier string
	Rotated    bool
	Dest       string
	Reason     string
}

// Outcome is the composite result for one doublet.
type Outcome int

const (
	BothRejected Outcome = iota
	BothAccepted
	FirstAccepted
	SecondAccepted
)

func (o Outcome) String() string {
	switch o {
	case BothAccepted:
		return "both accepted"
	case FirstAccepted:
		return "page1 accepted, page2 rejected"
	case SecondAccepted:
		return "page1 rejected, page2 accepted"
	default:
		return "both rejected"
	}
}

// OutcomeOf folds the two per-page decisions, in page1/page2 order.
func OutcomeOf(first, second PageDecision) Outcome {
	switch {
	case first.Accepted && second.Accepted:
		return BothAccepted
	case first.Accepted:
		return FirstAccepted
	case second.Accepted:
		return SecondAccepted
	default:
		return BothRejected
	}
}

type OutputDirs struct {
	Root   string
	Done   string
	Failed string
}
