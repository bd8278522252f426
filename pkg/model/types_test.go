package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestChartAnalysisJSON_AbsentFieldsAreNull(t *testing.T) {
	a := NewChartAnalysis()
	a.PriceChange = Found("+12.50")

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(data)

	for _, want := range []string{
		`"current_price":null`,
		`"price_change":"+12.50"`,
		`"trend":null`,
		`"resistance_levels":[]`,
		`"support_levels":[]`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %s in %s", want, got)
		}
	}
	if strings.Contains(got, "unavailable") {
		t.Errorf("empty unavailable map should be omitted: %s", got)
	}
}

func TestField_Or(t *testing.T) {
	if got := Missing("not found").Or("N/A"); got != "N/A" {
		t.Errorf("expected fallback, got %q", got)
	}
	if got := Found("").Or("N/A"); got != "" {
		t.Errorf("present empty text should not fall back, got %q", got)
	}
	if got := Missing("not found").Reason(); got != "not found" {
		t.Errorf("expected reason to be kept, got %q", got)
	}
	if got := Found("1").Reason(); got != "" {
		t.Errorf("present field should have no reason, got %q", got)
	}
}

func TestNewReport_CountMatchesResults(t *testing.T) {
	results := []AnalysisResult{{Symbol: "TCS"}, {Symbol: "INFY"}}
	r := NewReport("run-1", time.Now(), results)
	if r.TotalSymbolsAnalyzed != len(r.Results) {
		t.Errorf("expected %d, got %d", len(r.Results), r.TotalSymbolsAnalyzed)
	}

	empty := NewReport("run-2", time.Now(), nil)
	data, err := json.Marshal(empty)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"results":[]`) {
		t.Errorf("expected empty results array, got %s", data)
	}
}
