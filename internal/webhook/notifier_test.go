package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"revenda-crm/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyRenewalDeliversPayload(t *testing.T) {
	var received RenewalEvent
	var deliveryID string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deliveryID = r.Header.Get("X-Delivery-Id")
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(config.WebhookConfig{URL: srv.URL, Timeout: 5 * time.Second}, testLogger())

	n.NotifyRenewal(context.Background(), RenewalEvent{
		ClientID:        42,
		UserID:          1,
		PlanID:          7,
		SigmaCustomerID: "ext-9",
		IsSigmaPlan:     true,
		DueDate:         "2026-09-28",
		PaymentID:       1001,
		Amount:          29.90,
		Timestamp:       1790553600,
	})

	if received.ClientID != 42 {
		t.Errorf("client_id = %d, want 42", received.ClientID)
	}
	if !received.IsSigmaPlan {
		t.Error("is_sigma_plan not set")
	}
	if received.SigmaCustomerID != "ext-9" {
		t.Errorf("sigma_customer_id = %q, want ext-9", received.SigmaCustomerID)
	}
	if deliveryID == "" {
		t.Error("missing X-Delivery-Id header")
	}
}

func TestNotifyRenewalSwallowsConsumerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewNotifier(config.WebhookConfig{URL: srv.URL, Timeout: time.Second}, testLogger())

	// Must not panic or propagate anything.
	n.NotifyRenewal(context.Background(), RenewalEvent{ClientID: 1})
}

func TestNotifyRenewalNoopWithoutURL(t *testing.T) {
	n := NewNotifier(config.WebhookConfig{}, testLogger())
	n.NotifyRenewal(context.Background(), RenewalEvent{ClientID: 1})
}
