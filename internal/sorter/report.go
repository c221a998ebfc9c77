package sorter

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/kpauljoseph/consentsort/pkg/logger"
	"github.com/kpauljoseph/consentsort/pkg/models"
)

type Report struct {
	RunID     string
	InDir     string
	OutDir    string
	StartTime time.Time
	EndTime   time.Time

	Files    int
	Doublets int
	Singlets int

	Outcomes      map[models.Outcome]int
	PagesAccepted int
	PagesRejected int
	Identifiers   map[string]int

	// Errors are I/O failures hit while routing; classification misses are
	// outcomes, not errors.
	Errors []string
}

func newReport(runID, inDir, outDir string) *Report {
	return &Report{
		RunID:       runID,
		InDir:       inDir,
		OutDir:      outDir,
		StartTime:   time.Now(),
		Outcomes:    make(map[models.Outcome]int),
		Identifiers: make(map[string]int),
	}
}

func (r *Report) addDecision(d models.PageDecision) {
	if d.Accepted {
		r.PagesAccepted++
		r.Identifiers[d.Identifier]++
		return
	}
	r.PagesRejected++
}

func (r *Report) addError(err error) {
	r.Errors = append(r.Errors, err.Error())
}

func (r *Report) Render() string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Run " + r.RunID)
	tw.AppendHeader(table.Row{"Metric", "Value"})

	rows := []table.Row{
		{"Input files", r.Files},
		{"Double pages", r.Doublets},
		{"Single pages", r.Singlets},
	}
	for _, o := range []models.Outcome{models.BothAccepted, models.FirstAccepted, models.SecondAccepted, models.BothRejected} {
		rows = append(rows, table.Row{"Sheets: " + o.String(), r.Outcomes[o]})
	}
	rows = append(rows,
		table.Row{"Pages filed", r.PagesAccepted},
		table.Row{"Pages for review", r.PagesRejected},
		table.Row{"Identifiers", len(r.Identifiers)},
		table.Row{"Errors", len(r.Errors)},
		table.Row{"Duration", r.EndTime.Sub(r.StartTime).Round(time.Millisecond)},
	)
	tw.AppendRows(rows)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	return tw.Render()
}

func (r *Report) Print(log *logger.Logger) {
	log.Info("Processing complete:\n%s", r.Render())
	for _, e := range r.Errors {
		log.Warn("%s", e)
	}
	if len(r.Errors) > 0 {
		log.Warn("%d file(s) could not be routed, see messages above", len(r.Errors))
	}
}
