package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ad-anomaly-alerts/internal/rootcause"
	"ad-anomaly-alerts/internal/rules"
)

// Notification carries one fired alert and its diagnosis.
type Notification struct {
	RunID    string
	ClientID string
	AsOf     time.Time
	Alert    rules.Alert
	Analysis rootcause.Analysis
	Channels []string
}

// Notifier delivers notifications to an external channel.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier posts messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered alert.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    RenderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().
		Str("client_id", note.ClientID).
		Str("alert_id", note.Alert.ID).
		Str("severity", string(note.Alert.Severity)).
		Msg("alert sent (telegram)")
	return nil
}

// RenderMessage formats a notification as plain text.
func RenderMessage(note Notification) string {
	a := note.Alert
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[%s] %s\n", strings.ToUpper(string(a.Severity)), a.Title))
	builder.WriteString(fmt.Sprintf("Client: %s\n", note.ClientID))
	if !note.AsOf.IsZero() {
		builder.WriteString(fmt.Sprintf("As of: %s\n", note.AsOf.UTC().Format(time.DateOnly)))
	}
	builder.WriteString(fmt.Sprintf("%s: %.2f", a.Metric, a.CurrentValue))
	if a.ExpectedValue != nil {
		builder.WriteString(fmt.Sprintf(" (expected %.2f)", *a.ExpectedValue))
	}
	if a.ChangePercent != nil {
		builder.WriteString(fmt.Sprintf(" %+.1f%%", *a.ChangePercent))
	}
	builder.WriteString("\n")

	lq := note.Analysis.LeadQualityScore
	builder.WriteString(fmt.Sprintf("Lead quality: %s (CPA $%.2f)\n", lq.Label, lq.CPA))

	rec := note.Analysis.RecommendedAction
	if rec.Hypothesis != "" {
		builder.WriteString(fmt.Sprintf("Likely cause: %s\n", rec.Hypothesis))
	}
	for _, step := range rec.ActionSteps {
		builder.WriteString(fmt.Sprintf("  %d. %s [%s, ~%dm]\n", step.Step, step.Action, step.Priority, step.EstimatedMinutes))
	}
	builder.WriteString(a.Recommendation)
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
