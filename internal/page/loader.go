package page

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/spakin/netpbm"
	_ "golang.org/x/image/webp"

	"github.com/kpauljoseph/consentsort/pkg/logger"
)

const loadAttempts = 2

type LoadError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("unreadable image %s after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Result is the outcome of loading one page. Callers must check OK before
// touching Image.
type Result struct {
	Path  string
	Image *image.Gray
	Err   error
}

func (r Result) OK() bool {
	return r.Err == nil && r.Image != nil
}

type Loader struct {
	retryDelay time.Duration
	logger     *logger.Logger
}

func NewLoader(retryDelay time.Duration, log *logger.Logger) *Loader {
	return &Loader{
		retryDelay: retryDelay,
		logger:     log,
	}
}

// Load decodes path as a grayscale page. A failed decode is retried once
// after the retry delay, since the scanner may still be writing the file.
func (l *Loader) Load(path string) Result {
	var lastErr error
	for attempt := 1; attempt <= loadAttempts; attempt++ {
		img, err := decode(path)
		if err == nil {
			return Result{Path: path, Image: Grayscale(img)}
		}
		lastErr = err
		if attempt < loadAttempts {
			l.logger.Debug("Loading %s failed, retrying in %s: %v", path, l.retryDelay, err)
			time.Sleep(l.retryDelay)
		}
	}

	l.logger.Warn("Image %s could not be loaded: %v", path, lastErr)
	return Result{
		Path: path,
		Err:  &LoadError{Path: path, Attempts: loadAttempts, Err: lastErr},
	}
}

func decode(path string) (image.Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return decodePDF(path)
	case ".pnm", ".pbm", ".pgm", ".ppm", ".pam":
		return decodeNetpbm(path)
	default:
		return imaging.Open(path)
	}
}

func decodeNetpbm(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := netpbm.Decode(f, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decode netpbm: %w", err)
	}
	return img, nil
}

// decodePDF renders a single-page scan. Multi-page documents are not sheets.
func decodePDF(path string) (image.Image, error) {
	dims, err := api.PageDimsFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF page dimensions: %w", err)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected a single-page scan, got %d pages", len(dims))
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("failed to render PDF page: %w", err)
	}
	return img, nil
}
