package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"holdingscope/pkg/model"
)

func sampleReport() *model.Report {
	up := model.NewChartAnalysis()
	up.CurrentPrice = model.Found("3,450.00")
	up.Trend = model.TrendUp

	missing := model.NewChartAnalysis()
	missing.CurrentPrice = model.Missing("no such element")

	ts := time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)
	return model.NewReport("run-1", ts, []model.AnalysisResult{
		{
			Symbol:     "TCS",
			Position:   model.Position{Symbol: "TCS", Quantity: "10", CurrentPrice: "3,450.00", PnL: "+1,200.00"},
			Analysis:   up,
			Screenshot: "chart_TCS_20260302_101500.png",
			Timestamp:  ts,
		},
		{
			Symbol:    "INFY",
			Position:  model.Position{Symbol: "INFY", Quantity: "25", CurrentPrice: "1,480.50", PnL: "-310.00"},
			Analysis:  missing,
			Timestamp: ts,
		},
	})
}

func TestWriter_Write(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{Dir: dir, Now: func() time.Time {
		return time.Date(2026, 3, 2, 10, 20, 30, 0, time.Local)
	}}

	path, err := w.Write(sampleReport())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if want := filepath.Join(dir, "analysis_report_20260302_102030.json"); path != want {
		t.Errorf("Expected %s, got %s", want, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n  \"run_id\": \"run-1\"") {
		t.Errorf("Expected two-space indented JSON, got %s", data)
	}

	var decoded struct {
		Total   int `json:"total_symbols_analyzed"`
		Results []struct {
			Analysis struct {
				CurrentPrice *string `json:"current_price"`
			} `json:"analysis"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if decoded.Total != 2 || len(decoded.Results) != 2 {
		t.Errorf("Expected 2 results, got %d/%d", decoded.Total, len(decoded.Results))
	}
	if decoded.Results[1].Analysis.CurrentPrice != nil {
		t.Error("Expected null current price for INFY")
	}
}

func TestWriter_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	w := NewWriter(filepath.Join(file, "reports"))
	if _, err := w.Write(sampleReport()); err == nil {
		t.Error("Expected error writing under a file")
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintSummary(&buf, sampleReport()); err != nil {
		t.Fatalf("PrintSummary: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"ANALYSIS SUMMARY", "TCS", "10 units @ 3,450.00", "UPTREND", "chart_TCS_20260302_101500.png", "N/A"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in summary:\n%s", want, out)
		}
	}
}

func TestPrintSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintSummary(&buf, model.NewReport("run-2", time.Now(), nil)); err != nil {
		t.Fatalf("PrintSummary: %v", err)
	}
	if !strings.Contains(buf.String(), "No symbols were analyzed") {
		t.Errorf("Unexpected summary: %s", buf.String())
	}
}
