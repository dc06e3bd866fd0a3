package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const deliveryTimeout = 10 * time.Second

// payloadBuilder renders an alert as the JSON body one webhook type expects.
type payloadBuilder func(a *Alert) any

var payloads = map[string]payloadBuilder{
	"slack": slackPayload,
	"teams": teamsPayload,
	"http":  httpPayload,
}

// deliver posts a to every configured webhook. Failures are only logged.
func (e *Engine) deliver(a *Alert) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}
		build, ok := payloads[wh.Type]
		if !ok {
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		err := e.post(ctx, url, build(a))
		cancel()

		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type, "rule", a.RuleName, "session", a.SessionID, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered", "type", wh.Type, "rule", a.RuleName, "state", a.State)
	}
}

func slackPayload(a *Alert) any {
	header := fmt.Sprintf("%s %s %s", severityLabel(a.Severity), stateLabel(a.State), a.RuleName)
	return map[string]any{
		"text": header + ": " + a.Message,
		"blocks": []any{
			map[string]any{
				"type": "section",
				"text": map[string]string{"type": "mrkdwn", "text": "*" + header + "*\n" + a.Message},
			},
			map[string]any{
				"type": "context",
				"elements": []map[string]string{
					{"type": "mrkdwn", "text": "session `" + a.SessionID + "`"},
					{"type": "mrkdwn", "text": "value " + formatValue(a.Value)},
				},
			},
		},
	}
}

func teamsPayload(a *Alert) any {
	return map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity),
		"summary":    a.RuleName,
		"title":      fmt.Sprintf("FIT alert: %s", a.RuleName),
		"sections": []any{
			map[string]any{
				"text": a.Message,
				"facts": []map[string]string{
					{"name": "Session", "value": a.SessionID},
					{"name": "State", "value": a.State},
					{"name": "Severity", "value": a.Severity},
					{"name": "Value", "value": formatValue(a.Value)},
				},
			},
		},
	}
}

func httpPayload(a *Alert) any {
	return map[string]any{"service": "fitpoint", "alert": a}
}

func (e *Engine) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "D7263D"
	case "warning":
		return "F4A259"
	default:
		return "3E92CC"
	}
}

func stateLabel(s string) string {
	if s == StateResolved {
		return "resolved"
	}
	return "firing"
}
