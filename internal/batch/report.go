package batch

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"devicelink/internal/resolution"
	"devicelink/internal/tabular"
)

// Report holds the ordered results of one run.
type Report struct {
	RunID    string
	Results  []Result
	Started  time.Time
	Finished time.Time
}

func newReport(runID string, rows int) *Report {
	return &Report{
		RunID:   runID,
		Results: make([]Result, rows),
		Started: time.Now(),
	}
}

func (r *Report) finish() {
	r.Finished = time.Now()
}

func (r *Report) Elapsed() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Table renders the results in ResultHeader order.
func (r *Report) Table() *tabular.Table {
	t := tabular.NewTable(ResultHeader...)
	for _, res := range r.Results {
		t.Append(res.Values()...)
	}
	return t
}

// Counts tallies rows per MDALL State value.
func (r *Report) Counts() map[string]int {
	counts := make(map[string]int)
	for _, res := range r.Results {
		counts[res.Outcome.State()]++
	}
	return counts
}

func (r *Report) Found() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome.Kind == resolution.KindFound {
			n++
		}
	}
	return n
}

// summaryOrder lists every MDALL State value in display order.
var summaryOrder = []string{
	resolution.LabelActiveFormatted,
	resolution.LabelActiveRaw,
	resolution.LabelArchivedFormatted,
	resolution.LabelArchivedRaw,
	resolution.StateNotFound,
	resolution.StateError,
}

// WriteSummary prints rows per MDALL State as a table.
func (r *Report) WriteSummary(w io.Writer) {
	counts := r.Counts()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"MDALL State", "Rows"})
	for _, state := range summaryOrder {
		t.AppendRow(table.Row{state, counts[state]})
	}
	t.AppendFooter(table.Row{"Total", len(r.Results)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}
