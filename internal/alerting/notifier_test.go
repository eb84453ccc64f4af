package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ad-anomaly-alerts/internal/rootcause"
	"ad-anomaly-alerts/internal/rules"
)

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("path should contain sendMessage, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testNotification()); err != nil {
		t.Fatalf("Notify should succeed: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("unexpected chat_id: %#v", received)
	}
	if !strings.Contains(received["text"], "Daily budget runs out") {
		t.Fatalf("text should include the top hypothesis: %q", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testNotification()); err == nil {
		t.Fatal("ok=false should fail")
	}
}

func TestTelegramNotifierHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testNotification()); err == nil {
		t.Fatal("HTTP 429 should fail")
	}
}

func TestRenderMessage(t *testing.T) {
	msg := RenderMessage(testNotification())
	for _, want := range []string{
		"[WARNING] Losing impressions to budget",
		"Client: client-9",
		"As of: 2026-06-01",
		"search_lost_is_budget: 18.00 (expected 10.00)",
		"Lead quality: Good Leads (CPA $70.00)",
		"  1. Increase the daily budget",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func testNotification() Notification {
	expected := 10.0
	return Notification{
		RunID:    "run-1",
		ClientID: "client-9",
		AsOf:     time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
		Alert: rules.Alert{
			ID:             rules.IDLostISBudget,
			Category:       rules.IDLostISBudget,
			Severity:       rules.SeverityWarning,
			Title:          "Losing impressions to budget",
			Metric:         "search_lost_is_budget",
			CurrentValue:   18,
			ExpectedValue:  &expected,
			Recommendation: "Raise the budget.",
		},
		Analysis: rootcause.NewEngine().Analyze(rootcause.CategoryLostISBudget, 10, 700),
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
