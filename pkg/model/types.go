package model

import (
	"encoding/json"
	"time"
)

// Position is one row of the holdings table. Values are the portal's display text.
type Position struct {
	Symbol       string `json:"symbol"`
	Quantity     string `json:"quantity"`
	CurrentPrice string `json:"current_price"`
	PnL          string `json:"pnl"`
}

// Field is a scraped display value that may be absent.
// The zero value is absent with no reason.
type Field struct {
	value  string
	reason string
	ok     bool
}

// Found returns a present field.
func Found(value string) Field {
	return Field{value: value, ok: true}
}

// Missing returns an absent field with the reason it could not be read.
func Missing(reason string) Field {
	return Field{reason: reason}
}

// Value returns the scraped text and whether it was present.
func (f Field) Value() (string, bool) {
	return f.value, f.ok
}

// Present reports whether the field was scraped.
func (f Field) Present() bool { return f.ok }

// Reason is empty for present fields.
func (f Field) Reason() string { return f.reason }

// Or returns the value, or fallback when absent.
func (f Field) Or(fallback string) string {
	if f.ok {
		return f.value
	}
	return fallback
}

func (f Field) MarshalJSON() ([]byte, error) {
	if !f.ok {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

func (f *Field) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Field{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = Found(s)
	return nil
}

// Trend is derived from the CSS class of the chart's candle element.
type Trend string

const (
	TrendUp      Trend = "UPTREND"
	TrendDown    Trend = "DOWNTREND"
	TrendNeutral Trend = "NEUTRAL"
)

// MarshalJSON encodes the unset trend as null.
func (t Trend) MarshalJSON() ([]byte, error) {
	if t == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

func (t *Trend) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = Trend(s)
	return nil
}

// ChartAnalysis holds the fields read from a symbol's chart view.
type ChartAnalysis struct {
	CurrentPrice       Field    `json:"current_price"`
	PriceChange        Field    `json:"price_change"`
	PriceChangePercent Field    `json:"price_change_percent"`
	High               Field    `json:"high"`
	Low                Field    `json:"low"`
	Open               Field    `json:"open"`
	Close              Field    `json:"close"`
	Volume             Field    `json:"volume"`
	Trend              Trend    `json:"trend"`
	ResistanceLevels   []string `json:"resistance_levels"`
	SupportLevels      []string `json:"support_levels"`

	// Unavailable maps a field's JSON name to the reason it is null.
	Unavailable map[string]string `json:"unavailable,omitempty"`
}

// NewChartAnalysis returns an analysis with every field absent and empty level lists.
func NewChartAnalysis() *ChartAnalysis {
	return &ChartAnalysis{
		ResistanceLevels: []string{},
		SupportLevels:    []string{},
	}
}

// AnalysisResult is the outcome for one symbol that completed without error.
type AnalysisResult struct {
	Symbol     string         `json:"symbol"`
	Position   Position       `json:"position"`
	Analysis   *ChartAnalysis `json:"analysis"`
	Screenshot string         `json:"screenshot"`
	Timestamp  time.Time      `json:"timestamp"`
}

// SessionInfo is what could be read from the portal's session token.
type SessionInfo struct {
	Subject   string     `json:"subject,omitempty"`
	Issuer    string     `json:"issuer,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Report is the JSON document written at the end of a run.
type Report struct {
	RunID                string           `json:"run_id"`
	Timestamp            time.Time        `json:"timestamp"`
	TotalSymbolsAnalyzed int              `json:"total_symbols_analyzed"`
	Results              []AnalysisResult `json:"results"`
	Session              *SessionInfo     `json:"session,omitempty"`
}

// NewReport builds a report over results, keeping the count in step with them.
func NewReport(runID string, ts time.Time, results []AnalysisResult) *Report {
	if results == nil {
		results = []AnalysisResult{}
	}
	return &Report{
		RunID:                runID,
		Timestamp:            ts,
		TotalSymbolsAnalyzed: len(results),
		Results:              results,
	}
}
