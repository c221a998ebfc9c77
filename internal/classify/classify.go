// Package classify decides where the two pages of a scanned sheet belong.
package classify

import (
	"errors"
	"fmt"
	"image"

	"github.com/kpauljoseph/consentsort/internal/barcode"
	"github.com/kpauljoseph/consentsort/internal/page"
	"github.com/kpauljoseph/consentsort/internal/router"
	"github.com/kpauljoseph/consentsort/pkg/logger"
	"github.com/kpauljoseph/consentsort/pkg/models"
	"github.com/kpauljoseph/consentsort/pkg/utils"
)

type Options struct {
	BlackLevel float64
	PageEmpty  float64
	// Debug writes a plaintext trace next to every routed page.
	Debug bool
	RunID string
}

type Classifier struct {
	loader    *page.Loader
	extractor *barcode.Extractor
	router    *router.Router
	opts      Options
	logger    *logger.Logger
}

// Result holds the decision for both pages in role order. Roles start as
// (odd, even) and are swapped when only the even page carries the barcode.
type Result struct {
	Doublet models.Doublet
	First   models.PageDecision
	Second  models.PageDecision
	Outcome models.Outcome
}

func New(loader *page.Loader, extractor *barcode.Extractor, r *router.Router, opts Options, log *logger.Logger) *Classifier {
	return &Classifier{
		loader:    loader,
		extractor: extractor,
		router:    r,
		opts:      opts,
		logger:    log,
	}
}

// sheetPage is one page of the sheet together with its running trace.
type sheetPage struct {
	file     string
	img      *image.Gray
	trace    []string
	decision models.PageDecision
}

func newSheetPage(role, file, other, runID string) *sheetPage {
	trace := []string{fmt.Sprintf("Log for %s %q (%s: %s)", role, file, otherRole(role), other)}
	if runID != "" {
		trace = append(trace, fmt.Sprintf("Run %s", runID))
	}
	return &sheetPage{
		file:     file,
		trace:    trace,
		decision: models.PageDecision{Source: file},
	}
}

func otherRole(role string) string {
	if role == "page1" {
		return "page2"
	}
	return "page1"
}

func (p *sheetPage) note(format string, args ...interface{}) {
	p.trace = append(p.trace, fmt.Sprintf(format, args...))
}

// Classify routes both files of d. Every file ends up either saved under an
// identifier folder or copied to the failed directory; the returned error
// only reports I/O failures while doing so.
func (c *Classifier) Classify(d models.Doublet) (Result, error) {
	p1 := newSheetPage("page1", d.Odd.Path, d.Even.Path, c.opts.RunID)
	p2 := newSheetPage("page2", d.Even.Path, d.Odd.Path, c.opts.RunID)

	r1 := c.loader.Load(p1.file)
	r2 := c.loader.Load(p2.file)

	var err error
	switch {
	case !r1.OK() || !r2.OK():
		for _, r := range []page.Result{r1, r2} {
			if !r.OK() {
				p1.note("Page %q is unreadable: %v", r.Path, r.Err)
				p2.note("Page %q is unreadable: %v", r.Path, r.Err)
			}
		}
		err = c.rejectBoth(p1, p2, "unreadable page")
	default:
		p1.img, p2.img = r1.Image, r2.Image
		if c.hasContent(p1) {
			p1, p2, err = c.classifyFront(p1, p2)
		} else {
			err = c.classifyBack(p1, p2)
		}
	}

	res := Result{
		Doublet: d,
		First:   p1.decision,
		Second:  p2.decision,
		Outcome: models.OutcomeOf(p1.decision, p2.decision),
	}
	c.logger.Info("Sheet %s + %s: %s", d.Odd.Name(), d.Even.Name(), res.Outcome)
	return res, err
}

// classifyFront handles a sheet whose first page has content. The barcode
// may be on either page; if page1 has none the roles are swapped once.
func (c *Classifier) classifyFront(p1, p2 *sheetPage) (*sheetPage, *sheetPage, error) {
	hits := c.extractor.Extract(p1.img, image.Rectangle{})
	if len(hits) == 0 {
		p1.note("No barcode on %q, trying %q", p1.file, p2.file)
		p2.note("No barcode on %q, trying %q", p1.file, p2.file)
		p1, p2 = p2, p1
		hits = c.extractor.Extract(p1.img, image.Rectangle{})
	}

	id, ok := c.identify(hits, p1, p2)
	if !ok {
		return p1, p2, c.rejectBoth(p1, p2, "no single usable barcode")
	}

	side := hits[0].Side(p1.img.Bounds().Dx())
	rotate := page.NeedsRotation(side)
	if rotate {
		p1.img = page.Rotate180(p1.img)
		p2.img = page.Rotate180(p2.img)
	}
	p1.note("Barcode %q at side %.3f, rotated: %t", id, side, rotate)
	p2.note("Barcode %q at side %.3f, rotated: %t", id, side, rotate)

	errs := []error{c.accept(p1, "page1", id, rotate)}
	if c.hasContent(p2) {
		errs = append(errs, c.accept(p2, "page2", id, rotate))
	} else {
		errs = append(errs, c.reject(p2, fmt.Sprintf("Page2 %q was detected as empty", p2.file)))
	}
	return p1, p2, errors.Join(errs...)
}

// classifyBack handles a sheet whose first page is blank. Only the second
// page is searched; there is no role swap here.
func (c *Classifier) classifyBack(p1, p2 *sheetPage) error {
	hits := c.extractor.Extract(p2.img, image.Rectangle{})
	id, ok := c.identify(hits, p2, p1)
	if !ok {
		return c.rejectBoth(p1, p2, "no single usable barcode")
	}

	side := hits[0].Side(p2.img.Bounds().Dx())
	rotate := page.NeedsRotation(side)
	if rotate {
		p2.img = page.Rotate180(p2.img)
	}
	p2.note("Barcode %q at side %.3f, rotated: %t", id, side, rotate)

	return errors.Join(
		c.reject(p1, fmt.Sprintf("Page1 %q was detected as empty", p1.file)),
		c.accept(p2, "page2", id, rotate),
	)
}

// identify accepts exactly one hit whose payload can name a folder.
func (c *Classifier) identify(hits []models.BarcodeHit, carrier, other *sheetPage) (string, bool) {
	switch {
	case len(hits) == 0:
		carrier.note("No barcode found on %q", carrier.file)
	case len(hits) > 1:
		carrier.note("%d barcodes found on %q", len(hits), carrier.file)
	default:
		id := hits[0].Text
		if router.ValidIdentifier(id) {
			return id, true
		}
		carrier.note("Barcode %q on %q is not a usable folder name", id, carrier.file)
	}
	other.note("Companion page %q yielded no single usable barcode", carrier.file)
	return "", false
}

func (c *Classifier) hasContent(p *sheetPage) bool {
	fill := page.Fill(p.img, c.opts.BlackLevel)
	empty := fill <= c.opts.PageEmpty
	p.note("Fill ratio of %q is %.4f (empty: %t)", p.file, fill, empty)
	return !empty
}

func (c *Classifier) accept(p *sheetPage, role, id string, rotated bool) error {
	dest, err := c.router.Save(p.img, id)
	if err != nil {
		c.logger.Warn("Saving %s under %s failed, routing it to failed instead: %v", p.file, id, err)
		p.note("Saving %s %q under %q failed: %v", role, p.file, id, err)
		return errors.Join(err, c.reject(p, "Save failed"))
	}

	p.decision = models.PageDecision{
		Source:     p.file,
		Accepted:   true,
		Identifier: id,
		Rotated:    rotated,
		Dest:       dest,
	}
	p.note("Save %s %q as %q ...", role, p.file, dest)
	c.writeTrace(dest, p)
	return nil
}

func (c *Classifier) reject(p *sheetPage, reason string) error {
	dest, err := c.router.CopyVerbatim(p.file)
	p.decision = models.PageDecision{Source: p.file, Reason: reason}
	if err != nil {
		c.logger.Warn("Copying %s to failed: %v", p.file, err)
		return err
	}
	p.decision.Dest = dest
	p.note("%s and therefore copied to %q ...", reason, c.router.Dirs().Failed)
	c.writeTrace(dest, p)
	return nil
}

func (c *Classifier) rejectBoth(p1, p2 *sheetPage, reason string) error {
	return errors.Join(c.reject(p1, reason), c.reject(p2, reason))
}

func (c *Classifier) writeTrace(artifact string, p *sheetPage) {
	if !c.opts.Debug {
		return
	}
	if sum, err := utils.FileHash(p.file); err == nil {
		p.note("Source sha256 %s", sum)
	}
	if err := c.router.WriteTrace(artifact, p.trace); err != nil {
		c.logger.Warn("%v", err)
	}
}
