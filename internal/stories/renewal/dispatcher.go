package renewal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"revenda-crm/internal/metrics"
	"revenda-crm/internal/panels"
	"revenda-crm/internal/stories/clients"
	"revenda-crm/internal/stories/credentials"
	"revenda-crm/internal/stories/plans"
	"revenda-crm/internal/webhook"
)

var dispatchDuration, _ = otel.Meter("revenda-crm/renewal").Float64Histogram(
	"renewal_dispatch_duration_seconds",
	metric.WithDescription("Wall time of one renewal dispatch"))

// Dispatcher drives one panel renewal per call:
//
//	ValidatingConfig -> Authenticating -> Renewing -> {Completed | Skipped | Failed}
//
// Every failure is returned as a typed Result, never as an error: by the
// time Dispatch runs, the billing collaborator has already committed the
// local renewal, so a panel failure is advisory. The dispatcher never
// retries; re-dispatching is the caller's call.
type Dispatcher struct {
	adapters AdapterFactory
	creds    CredentialSource
	clients  ClientStamper
	notifier ResultNotifier
	alerter  Alerter
	logger   *slog.Logger
}

func NewDispatcher(
	adapters AdapterFactory,
	creds CredentialSource,
	clientStamper ClientStamper,
	notifier ResultNotifier,
	alerter Alerter,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		adapters: adapters,
		creds:    creds,
		clients:  clientStamper,
		notifier: notifier,
		alerter:  alerter,
		logger:   logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, client *clients.Client, plan *plans.Plan, payment PaymentContext) Result {
	started := time.Now()
	result := d.dispatch(ctx, client, plan, payment)
	dispatchDuration.Record(ctx, time.Since(started).Seconds())

	panel := ""
	if plan.Integration != nil {
		panel = string(plan.Integration.Panel())
	}
	metrics.RenewalsTotal.WithLabelValues(panel, string(result.Outcome)).Inc()

	switch result.Outcome {
	case OutcomeFailed:
		d.logger.Error("Panel renewal failed",
			"client_id", client.ID,
			"plan_id", plan.ID,
			"panel", panel,
			"reason", result.Reason)
		if d.alerter != nil {
			d.alerter.Alert(fmt.Sprintf(
				"Renovação falhou: cliente #%d (%s), plano #%d, painel %s, motivo %s",
				client.ID, client.Name, plan.ID, panel, result.Reason))
		}
	case OutcomeSkipped:
		d.logger.Info("Panel renewal skipped",
			"client_id", client.ID,
			"plan_id", plan.ID,
			"reason", result.Reason)
	default:
		d.logger.Info("Panel renewal succeeded",
			"client_id", client.ID,
			"plan_id", plan.ID,
			"panel", panel,
			"new_expiry", result.Receipt.NewExpiry)
	}

	return result
}

func (d *Dispatcher) dispatch(ctx context.Context, client *clients.Client, plan *plans.Plan, payment PaymentContext) Result {
	// ValidatingConfig
	kind := plan.Integration
	switch kind.(type) {
	case nil, plans.Ambiguous:
		// Two or more legacy flags set: bad data from plan creation,
		// needs attention, not silence.
		return failed(ReasonAmbiguousPlanType)
	case plans.None:
		return skipped(ReasonNoIntegration)
	}

	if err := kind.Validate(); err != nil {
		return skipped(Reason(fmt.Sprintf("%s_incomplete", kind.Panel())))
	}
	if client.ExternalCustomerID == "" {
		return skipped(ReasonNotLinked)
	}

	domain := plans.Domain(kind)
	creds, err := d.creds.Get(ctx, client.UserID, kind.Panel(), domain)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return skipped(ReasonNoCredentials)
		}
		return failed(ReasonCredentialsError)
	}

	spec := panels.AdapterSpec{
		Panel:       kind.Panel(),
		Domain:      domain,
		Credentials: *creds,
	}
	if koffice, ok := kind.(plans.Koffice); ok {
		spec.ResellerID = koffice.ResellerID
	}

	adapter, err := d.adapters.Adapter(spec)
	if err != nil {
		return failed(ReasonConfigInvalid)
	}

	// Authenticating. The session lives and dies inside this call.
	session, err := adapter.Authenticate(ctx)
	if err != nil {
		var authErr *panels.AuthError
		if errors.As(err, &authErr) {
			return failed(Reason(authErr.Reason))
		}
		return failed(Reason(panels.AuthNetwork))
	}

	// Renewing
	receipt, err := adapter.RenewSubscription(ctx, session, client.ExternalCustomerID, plan.DurationMonths)
	if err != nil {
		var renewErr *panels.RenewalError
		if errors.As(err, &renewErr) {
			return failed(Reason(renewErr.Reason))
		}
		return failed(Reason(panels.RenewalNetwork))
	}

	// The panel has confirmed; a local stamping failure must not turn the
	// outcome into a panel failure.
	if _, err := d.clients.StampRenewal(ctx, client.ID, receipt.NewExpiry, receipt.Message); err != nil {
		d.logger.Error("Failed to stamp renewal on client record",
			"client_id", client.ID,
			"error", err)
	}

	if d.notifier != nil {
		d.notifier.NotifyRenewal(ctx, buildEvent(client, plan, kind, receipt, payment))
	}

	return succeeded(receipt)
}

func buildEvent(client *clients.Client, plan *plans.Plan, kind plans.IntegrationKind, receipt *panels.Receipt, payment PaymentContext) webhook.RenewalEvent {
	event := webhook.RenewalEvent{
		ClientID:  client.ID,
		UserID:    client.UserID,
		PlanID:    plan.ID,
		DueDate:   receipt.NewExpiry.Format("2006-01-02"),
		PaymentID: payment.PaymentID,
		Amount:    payment.Amount,
		Timestamp: time.Now().Unix(),
	}

	switch kind.(type) {
	case plans.Sigma:
		event.IsSigmaPlan = true
		event.SigmaCustomerID = client.ExternalCustomerID
	case plans.Live21:
		event.IsLive21Plan = true
		event.CloudNationID = client.ExternalCustomerID
	}

	return event
}
