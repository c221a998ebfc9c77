// Package sorter runs one pass over a scan directory: it pairs the scans,
// classifies every sheet on a worker pool and routes what cannot be paired.
package sorter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/kpauljoseph/consentsort/internal/barcode"
	"github.com/kpauljoseph/consentsort/internal/classify"
	"github.com/kpauljoseph/consentsort/internal/config"
	"github.com/kpauljoseph/consentsort/internal/page"
	"github.com/kpauljoseph/consentsort/internal/pairing"
	"github.com/kpauljoseph/consentsort/internal/router"
	"github.com/kpauljoseph/consentsort/pkg/logger"
	"github.com/kpauljoseph/consentsort/pkg/models"
)

// Observer receives progress events. All calls come from the goroutine that
// called Run.
type Observer interface {
	OnStart(doublets, singlets int)
	OnSheetDone(res classify.Result, dur time.Duration)
	OnFinish(report *Report)
}

type Options struct {
	Config   *config.Config
	Debug    bool
	Observer Observer
}

type Sorter struct {
	cfg      *config.Config
	debug    bool
	observer Observer
	logger   *logger.Logger
}

func New(opts Options, log *logger.Logger) *Sorter {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	return &Sorter{
		cfg:      cfg,
		debug:    opts.Debug,
		observer: opts.Observer,
		logger:   log,
	}
}

type sheetResult struct {
	res classify.Result
	err error
	dur time.Duration
}

// Run sorts every scan in inDir into outDir. It refuses to start when outDir
// exists and is not empty, or when another run holds it. Once started, the
// run always completes; routing failures are collected in the report.
func (s *Sorter) Run(ctx context.Context, inDir, outDir string) (*Report, error) {
	outDir = filepath.Clean(outDir)
	if err := os.MkdirAll(filepath.Dir(outDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent of output directory: %w", err)
	}

	lock := flock.New(outDir + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock output directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, outDir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("Failed to release lock %s: %v", lock.Path(), err)
		}
		os.Remove(lock.Path())
	}()

	// List before touching the output so a bad input directory writes nothing.
	paths, err := ListScans(inDir, s.cfg.Extension)
	if err != nil {
		return nil, err
	}

	dirs, err := PrepareOutput(outDir, s.cfg)
	if err != nil {
		return nil, err
	}

	report := newReport(uuid.NewString(), inDir, outDir)
	report.Files = len(paths)
	s.logger.Info("Found %d %s-files in %s", len(paths), s.cfg.Extension, inDir)

	files, unnumbered := pairing.Index(paths)
	for _, p := range unnumbered {
		s.logger.Warn("No sequence number in %s, routing it to %s", filepath.Base(p), dirs.Failed)
	}
	pairing.SortDescending(files)
	pairs := pairing.Pair(files)

	singlets := make([]string, 0, len(pairs.Singlets)+len(unnumbered))
	for _, f := range pairs.Singlets {
		singlets = append(singlets, f.Path)
	}
	singlets = append(singlets, unnumbered...)

	report.Doublets = len(pairs.Doublets)
	report.Singlets = len(singlets)
	s.logger.Info("Detected %d double and %d single pages", report.Doublets, report.Singlets)
	if s.observer != nil {
		s.observer.OnStart(report.Doublets, report.Singlets)
	}

	rt := router.New(dirs, s.logger)
	classifier := classify.New(
		page.NewLoader(s.cfg.LoadRetryDelay, s.logger),
		barcode.NewExtractor(s.cfg.MaxBarcodes, s.logger),
		rt,
		classify.Options{
			BlackLevel: s.cfg.BlackLevel,
			PageEmpty:  s.cfg.PageEmpty,
			Debug:      s.debug,
			RunID:      report.RunID,
		},
		s.logger,
	)

	for r := range s.classifyAll(ctx, classifier, pairs.Doublets) {
		report.Outcomes[r.res.Outcome]++
		report.addDecision(r.res.First)
		report.addDecision(r.res.Second)
		if r.err != nil {
			report.addError(fmt.Errorf("sheet %s + %s: %w", r.res.Doublet.Odd.Name(), r.res.Doublet.Even.Name(), r.err))
		}
		if s.observer != nil {
			s.observer.OnSheetDone(r.res, r.dur)
		}
	}

	for _, p := range singlets {
		if err := s.routeSinglet(rt, p); err != nil {
			report.addError(err)
			continue
		}
		report.PagesRejected++
	}

	report.EndTime = time.Now()
	if s.observer != nil {
		s.observer.OnFinish(report)
	}
	return report, nil
}

// classifyAll fans doublets out to the configured number of workers. The
// returned channel is closed once every dispatched doublet has a result.
// Cancelling ctx stops dispatch; sheets already taken are finished.
func (s *Sorter) classifyAll(ctx context.Context, classifier *classify.Classifier, doublets []models.Doublet) <-chan sheetResult {
	workers := s.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan models.Doublet)
	results := make(chan sheetResult, len(doublets))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range jobs {
				started := time.Now()
				res, err := classifier.Classify(d)
				results <- sheetResult{res: res, err: err, dur: time.Since(started)}
			}
		}()
	}

	go func() {
		defer func() {
			close(jobs)
			wg.Wait()
			close(results)
		}()
		for _, d := range doublets {
			select {
			case <-ctx.Done():
				s.logger.Warn("Run cancelled, %s + %s and later sheets were not processed", d.Odd.Name(), d.Even.Name())
				return
			case jobs <- d:
			}
		}
	}()

	return results
}

func (s *Sorter) routeSinglet(rt *router.Router, path string) error {
	dest, err := rt.CopyVerbatim(path)
	if err != nil {
		return fmt.Errorf("single page %s: %w", filepath.Base(path), err)
	}
	s.logger.Debug("Copied single page %s to %s", path, dest)

	if s.debug {
		trace := []string{
			fmt.Sprintf("Log for single page %q", path),
			fmt.Sprintf("Copied file %q to %q ...", path, rt.Dirs().Failed),
		}
		if err := rt.WriteTrace(dest, trace); err != nil {
			s.logger.Warn("%v", err)
		}
	}
	return nil
}
