package worker

// alert_worker.go
// Processes low stock jobs from QueueAlerts and emails the configured
// recipient. Sends go through the circuit breaker so a dead SMTP server is
// not hammered; each job gets MaxAlertAttempts tries with exponential backoff.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockpos/internal/infra"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

const MaxAlertAttempts = 3

// AlertSender delivers one plain text alert. infra.Mailer implements it.
type AlertSender interface {
	SendAlert(to, subject, body string) error
}

type AlertWorker struct {
	sender         AlertSender
	cb             *infra.CircuitBreaker
	to             string
	initialBackoff time.Duration
}

func NewAlertWorker(sender AlertSender, cb *infra.CircuitBreaker, to string) *AlertWorker {
	return &AlertWorker{sender: sender, cb: cb, to: to, initialBackoff: 500 * time.Millisecond}
}

// Process decodes a LowStockPayload and sends one email listing every item.
func (w *AlertWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload LowStockPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("alert_worker: invalid payload: %w", err)
	}
	if len(payload.Items) == 0 {
		return nil
	}
	if w.to == "" {
		log.Warn().Int("items", len(payload.Items)).Msg("alert_worker: ALERT_EMAIL_TO not set, skipping")
		return nil
	}

	subject, body := FormatLowStockAlert(payload)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.initialBackoff
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := w.cb.Execute(func() error { return w.sender.SendAlert(w.to, subject, body) })
		if errors.Is(err, infra.ErrCircuitOpen) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(MaxAlertAttempts))
	if err != nil {
		return fmt.Errorf("alert_worker: send low stock alert: %w", err)
	}

	log.Info().Str("to", w.to).Int("items", len(payload.Items)).Str("source", payload.Source).
		Msg("alert_worker: low stock alert sent")
	return nil
}

// FormatLowStockAlert renders the email subject and body for a payload.
func FormatLowStockAlert(p LowStockPayload) (string, string) {
	subject := fmt.Sprintf("Low stock: %d product(s) below %d units", len(p.Items), p.Threshold)
	if len(p.Items) == 1 {
		subject = fmt.Sprintf("Low stock: %s (%d left)", p.Items[0].ProductName, p.Items[0].Quantity)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "The following products are below the low stock threshold of %d units:\n\n", p.Threshold)
	for _, it := range p.Items {
		fmt.Fprintf(&sb, "  #%d  %s: %d left\n", it.ProductID, it.ProductName, it.Quantity)
	}
	return subject, sb.String()
}
