package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"revenda-crm/internal/config"
	"revenda-crm/internal/metrics"
)

// RenewalEvent is the outbound webhook payload. Field names are part of the
// wire contract consumers already depend on.
type RenewalEvent struct {
	ClientID        int64   `json:"client_id"`
	UserID          int64   `json:"user_id"`
	PlanID          int64   `json:"plan_id"`
	CloudNationID   string  `json:"cloudnation_id,omitempty"`
	SigmaCustomerID string  `json:"sigma_customer_id,omitempty"`
	IsSigmaPlan     bool    `json:"is_sigma_plan"`
	IsLive21Plan    bool    `json:"is_live21_plan"`
	DueDate         string  `json:"due_date"`
	PaymentID       int64   `json:"payment_id"`
	Amount          float64 `json:"amount"`
	Timestamp       int64   `json:"timestamp"`
}

// Notifier POSTs renewal outcomes to a configured URL. Delivery is advisory:
// non-2xx responses and network failures are logged and swallowed, never
// propagated as a billing error.
type Notifier struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewNotifier(cfg config.WebhookConfig, logger *slog.Logger) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Notifier{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// NotifyRenewal delivers the event. No-op when no URL is configured.
func (n *Notifier) NotifyRenewal(ctx context.Context, event RenewalEvent) {
	if n.url == "" {
		return
	}

	deliveryID := uuid.New().String()

	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("Failed to marshal webhook payload",
			"delivery_id", deliveryID,
			"error", err)
		metrics.WebhookDeliveriesTotal.WithLabelValues("error").Inc()
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		n.logger.Error("Failed to build webhook request",
			"delivery_id", deliveryID,
			"error", err)
		metrics.WebhookDeliveriesTotal.WithLabelValues("error").Inc()
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", deliveryID)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Warn("Webhook delivery failed",
			"delivery_id", deliveryID,
			"client_id", event.ClientID,
			"error", err)
		metrics.WebhookDeliveriesTotal.WithLabelValues("error").Inc()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Warn("Webhook consumer rejected delivery",
			"delivery_id", deliveryID,
			"client_id", event.ClientID,
			"status", resp.StatusCode)
		metrics.WebhookDeliveriesTotal.WithLabelValues("rejected").Inc()
		return
	}

	n.logger.Debug("Webhook delivered",
		"delivery_id", deliveryID,
		"client_id", event.ClientID)
	metrics.WebhookDeliveriesTotal.WithLabelValues("delivered").Inc()
}
