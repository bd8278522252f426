// Package report persists a run's results and prints its summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"holdingscope/pkg/model"
)

const fileLayout = "20060102_150405"

// Writer saves reports as JSON files in Dir.
type Writer struct {
	Dir string
	Now func() time.Time
}

// NewWriter returns a writer for dir using the wall clock.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Now: time.Now}
}

// Write stores r as analysis_report_<timestamp>.json and returns the path.
func (w *Writer) Write(r *model.Report) (string, error) {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	if w.Dir != "" {
		if err := os.MkdirAll(w.Dir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}

	path := filepath.Join(w.Dir, fmt.Sprintf("analysis_report_%s.json", now().Format(fileLayout)))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// PrintSummary writes a table of the analyzed symbols.
func PrintSummary(w io.Writer, r *model.Report) error {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "ANALYSIS SUMMARY")
	fmt.Fprintln(w, line)

	if len(r.Results) == 0 {
		fmt.Fprintln(w, "No symbols were analyzed.")
		return nil
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Symbol", "Position", "Trend", "Current Price", "Chart Screenshot"}),
	)
	for _, res := range r.Results {
		trend, price := "N/A", "N/A"
		if res.Analysis != nil {
			if res.Analysis.Trend != "" {
				trend = string(res.Analysis.Trend)
			}
			price = res.Analysis.CurrentPrice.Or("N/A")
		}
		screenshot := res.Screenshot
		if screenshot == "" {
			screenshot = "N/A"
		}
		if err := table.Append([]string{
			res.Symbol,
			fmt.Sprintf("%s units @ %s", res.Position.Quantity, res.Position.CurrentPrice),
			trend,
			price,
			screenshot,
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Analyzed %d symbol(s)\n", r.TotalSymbolsAnalyzed)
	return nil
}
