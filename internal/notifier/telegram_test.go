package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"holdingscope/pkg/model"
)

func TestSend(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("123:abc", "42", srv.URL)
	if err := n.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotPath != "/bot123:abc/sendMessage" {
		t.Errorf("Unexpected path %s", gotPath)
	}
	if gotBody["chat_id"] != "42" || gotBody["text"] != "hello" || gotBody["parse_mode"] != "HTML" {
		t.Errorf("Unexpected body %v", gotBody)
	}
}

func TestSend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("123:abc", "42", srv.URL)
	err := n.Send(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("Expected API error, got %v", err)
	}
}

func TestFormatReport(t *testing.T) {
	a := model.NewChartAnalysis()
	a.Trend = model.TrendDown
	r := model.NewReport("run-1", time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC), []model.AnalysisResult{{
		Symbol:   "M&M",
		Position: model.Position{Quantity: "3", CurrentPrice: "2,900.00"},
		Analysis: a,
	}})

	msg := FormatReport(r)
	for _, want := range []string{"Symbols analyzed: 1", "<b>M&amp;M</b>: 3 units @ 2,900.00", "Trend: DOWNTREND | Price: N/A"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected %q in:\n%s", want, msg)
		}
	}
}
