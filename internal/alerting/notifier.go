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
	"github.com/shopspring/decimal"
)

// Summary carries the headline numbers of one completed study run.
type Summary struct {
	Study        string
	GeneratedAt  time.Time
	Observations int
	MeanBps      decimal.Decimal
	LatestBps    decimal.Decimal
	LatestWeek   time.Time
	BestModel    string
	BestR2       float64
}

// Notifier delivers run summaries.
type Notifier interface {
	Notify(ctx context.Context, summary Summary) error
}

// TelegramNotifier pushes run summaries through the Telegram Bot API.
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
		logger:   logger.With().Str("component", "summary_telegram").Logger(),
	}
}

// Notify calls the sendMessage API with a rendered summary.
func (n *TelegramNotifier) Notify(ctx context.Context, summary Summary) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(summary),
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
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Str("study", summary.Study).
		Time("latest_week", summary.LatestWeek).
		Msg("summary delivered (Telegram)")
	return nil
}

func renderMessage(summary Summary) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[ratespread] %s\n", summary.Study))
	builder.WriteString(fmt.Sprintf("Generated: %s UTC\n", summary.GeneratedAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Observations: %d\n", summary.Observations))
	builder.WriteString(fmt.Sprintf("Mean spread: %s bps\n", summary.MeanBps.StringFixed(1)))
	builder.WriteString(fmt.Sprintf("Latest: %s bps (week of %s)\n",
		summary.LatestBps.StringFixed(1), summary.LatestWeek.Format(time.DateOnly)))
	if summary.BestModel != "" {
		builder.WriteString(fmt.Sprintf("Best fit: %s (R²=%.4f)\n", summary.BestModel, summary.BestR2))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
