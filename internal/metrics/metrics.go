package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RenewalsTotal counts renewal dispatch outcomes per panel.
	RenewalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revenda_renewals_total",
		Help: "Renewal dispatch outcomes by panel and outcome",
	}, []string{"panel", "outcome"})

	// CaptchaPollsTotal counts polls against the challenge solving service.
	CaptchaPollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "revenda_captcha_polls_total",
		Help: "Polls issued to the challenge solving service",
	})

	// CaptchaSolvesTotal counts solve attempts by result (solved, timeout, error).
	CaptchaSolvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revenda_captcha_solves_total",
		Help: "Challenge solve attempts by result",
	}, []string{"result"})

	// WebhookDeliveriesTotal counts outbound webhook deliveries by result.
	WebhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revenda_webhook_deliveries_total",
		Help: "Outbound webhook deliveries by result",
	}, []string{"result"})

	// ReconciliationItemsTotal counts reconciliation item outcomes.
	ReconciliationItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revenda_reconciliation_items_total",
		Help: "Package reconciliation item outcomes",
	}, []string{"panel", "outcome"})
)
