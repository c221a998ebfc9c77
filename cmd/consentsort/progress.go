package main

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/kpauljoseph/consentsort/internal/classify"
	"github.com/kpauljoseph/consentsort/internal/sorter"
)

// progressObserver draws one bar tick per finished sheet.
type progressObserver struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newProgressObserver(w io.Writer) *progressObserver {
	return &progressObserver{w: w}
}

func (p *progressObserver) OnStart(doublets, singlets int) {
	p.bar = progressbar.NewOptions(doublets,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("sorting sheets"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *progressObserver) OnSheetDone(classify.Result, time.Duration) {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *progressObserver) OnFinish(*sorter.Report) {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
