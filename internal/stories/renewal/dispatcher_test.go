package renewal

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-faster/errors"

	"revenda-crm/internal/panels"
	"revenda-crm/internal/stories/clients"
	"revenda-crm/internal/stories/credentials"
	"revenda-crm/internal/stories/plans"
	"revenda-crm/internal/webhook"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type adapterStub struct {
	panel      panels.Panel
	session    *panels.Session
	authErr    error
	receipt    *panels.Receipt
	renewErr   error
	authCalls  int
	renewCalls int
}

func (a *adapterStub) Panel() panels.Panel { return a.panel }

func (a *adapterStub) Authenticate(_ context.Context) (*panels.Session, error) {
	a.authCalls++
	if a.authErr != nil {
		return nil, a.authErr
	}
	return a.session, nil
}

func (a *adapterStub) RenewSubscription(_ context.Context, _ *panels.Session, _ string, _ int) (*panels.Receipt, error) {
	a.renewCalls++
	if a.renewErr != nil {
		return nil, a.renewErr
	}
	return a.receipt, nil
}

func (a *adapterStub) ListPackages(_ context.Context, _ *panels.Session) ([]panels.Package, error) {
	return nil, nil
}

type factoryStub struct {
	adapter *adapterStub
	err     error
	calls   int
	spec    panels.AdapterSpec
}

func (f *factoryStub) Adapter(spec panels.AdapterSpec) (panels.Adapter, error) {
	f.calls++
	f.spec = spec
	if f.err != nil {
		return nil, f.err
	}
	return f.adapter, nil
}

type credsStub struct {
	creds *panels.Credentials
	err   error
	calls int
}

func (c *credsStub) Get(_ context.Context, _ int64, _ panels.Panel, _ string) (*panels.Credentials, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.creds, nil
}

type stamperStub struct {
	err    error
	calls  int
	newDue time.Time
	note   string
}

func (s *stamperStub) StampRenewal(_ context.Context, _ int64, newDue time.Time, note string) (*clients.Client, error) {
	s.calls++
	s.newDue = newDue
	s.note = note
	if s.err != nil {
		return nil, s.err
	}
	return &clients.Client{}, nil
}

type notifierStub struct {
	events []webhook.RenewalEvent
}

func (n *notifierStub) NotifyRenewal(_ context.Context, event webhook.RenewalEvent) {
	n.events = append(n.events, event)
}

type alerterStub struct {
	messages []string
}

func (a *alerterStub) Alert(text string) {
	a.messages = append(a.messages, text)
}

type dispatcherFixture struct {
	factory  *factoryStub
	creds    *credsStub
	stamper  *stamperStub
	notifier *notifierStub
	alerter  *alerterStub
	d        *Dispatcher
}

func newFixture(adapter *adapterStub) *dispatcherFixture {
	f := &dispatcherFixture{
		factory:  &factoryStub{adapter: adapter},
		creds:    &credsStub{creds: &panels.Credentials{Username: "reseller", Password: "secret"}},
		stamper:  &stamperStub{},
		notifier: &notifierStub{},
		alerter:  &alerterStub{},
	}
	f.d = NewDispatcher(f.factory, f.creds, f.stamper, f.notifier, f.alerter, testLogger())
	return f
}

func linkedClient() *clients.Client {
	return &clients.Client{ID: 42, UserID: 1, Name: "Maria", PlanID: 7, ExternalCustomerID: "ext-9"}
}

func sigmaPlan() *plans.Plan {
	return &plans.Plan{
		ID:             7,
		DurationMonths: 1,
		Integration:    plans.Sigma{Domain: "painel.example.com", PackageCode: "P1"},
	}
}

func TestDispatchSkipsBeforeTouchingAnyPanel(t *testing.T) {
	tests := []struct {
		name        string
		client      *clients.Client
		integration plans.IntegrationKind
		credsErr    error
		wantOutcome Outcome
		wantReason  Reason
	}{
		{
			name:        "local-only plan is skipped",
			client:      linkedClient(),
			integration: plans.None{},
			wantOutcome: OutcomeSkipped,
			wantReason:  ReasonNoIntegration,
		},
		{
			name:        "nil integration fails as ambiguous",
			client:      linkedClient(),
			integration: nil,
			wantOutcome: OutcomeFailed,
			wantReason:  ReasonAmbiguousPlanType,
		},
		{
			name:        "legacy multi-flag row fails as ambiguous",
			client:      linkedClient(),
			integration: plans.Ambiguous{},
			wantOutcome: OutcomeFailed,
			wantReason:  ReasonAmbiguousPlanType,
		},
		{
			name:        "incomplete sigma config skips with panel-qualified reason",
			client:      linkedClient(),
			integration: plans.Sigma{Domain: "painel.example.com"},
			wantOutcome: OutcomeSkipped,
			wantReason:  "sigma_incomplete",
		},
		{
			name:        "unlinked client is skipped",
			client:      &clients.Client{ID: 42, UserID: 1},
			integration: plans.Sigma{Domain: "painel.example.com", PackageCode: "P1"},
			wantOutcome: OutcomeSkipped,
			wantReason:  ReasonNotLinked,
		},
		{
			name:        "missing credentials skip the dispatch",
			client:      linkedClient(),
			integration: plans.Sigma{Domain: "painel.example.com", PackageCode: "P1"},
			credsErr:    credentials.ErrNotFound,
			wantOutcome: OutcomeSkipped,
			wantReason:  ReasonNoCredentials,
		},
		{
			name:        "credential store failure is a failure, not a skip",
			client:      linkedClient(),
			integration: plans.Sigma{Domain: "painel.example.com", PackageCode: "P1"},
			credsErr:    errors.New("db locked"),
			wantOutcome: OutcomeFailed,
			wantReason:  ReasonCredentialsError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := &adapterStub{panel: panels.PanelSigma}
			f := newFixture(adapter)
			f.creds.err = tt.credsErr

			plan := &plans.Plan{ID: 7, DurationMonths: 1, Integration: tt.integration}
			result := f.d.Dispatch(context.Background(), tt.client, plan, PaymentContext{})

			if result.Outcome != tt.wantOutcome {
				t.Fatalf("outcome = %s, want %s", result.Outcome, tt.wantOutcome)
			}
			if result.Reason != tt.wantReason {
				t.Errorf("reason = %s, want %s", result.Reason, tt.wantReason)
			}
			if adapter.authCalls != 0 || adapter.renewCalls != 0 {
				t.Errorf("adapter touched: auth=%d renew=%d, want 0/0", adapter.authCalls, adapter.renewCalls)
			}
			if len(f.notifier.events) != 0 {
				t.Errorf("webhook delivered on non-success: %d events", len(f.notifier.events))
			}
		})
	}
}

func TestDispatchFactoryFailure(t *testing.T) {
	f := newFixture(&adapterStub{panel: panels.PanelSigma})
	f.factory.err = errors.New("domain is required")

	result := f.d.Dispatch(context.Background(), linkedClient(), sigmaPlan(), PaymentContext{})

	if result.Outcome != OutcomeFailed || result.Reason != ReasonConfigInvalid {
		t.Fatalf("got %s/%s, want failed/config_invalid", result.Outcome, result.Reason)
	}
	if len(f.alerter.messages) != 1 {
		t.Errorf("alerts = %d, want 1", len(f.alerter.messages))
	}
}

func TestDispatchAuthAndRenewFailures(t *testing.T) {
	tests := []struct {
		name       string
		authErr    error
		renewErr   error
		wantReason Reason
	}{
		{
			name:       "rejected login",
			authErr:    &panels.AuthError{Panel: panels.PanelSigma, Reason: panels.AuthInvalidCredentials},
			wantReason: "invalid_credentials",
		},
		{
			name:       "unsolved challenge",
			authErr:    &panels.AuthError{Panel: panels.PanelClub, Reason: panels.AuthChallengeFailed},
			wantReason: "challenge_failed",
		},
		{
			name:       "untyped auth error maps to network",
			authErr:    errors.New("connection reset"),
			wantReason: "network",
		},
		{
			name:       "customer missing on panel",
			renewErr:   &panels.RenewalError{Panel: panels.PanelSigma, Reason: panels.RenewalCustomerNotFound},
			wantReason: "customer_not_found",
		},
		{
			name:       "panel rejected the renewal",
			renewErr:   &panels.RenewalError{Panel: panels.PanelSigma, Reason: panels.RenewalPanelRejected},
			wantReason: "panel_rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := &adapterStub{
				panel:    panels.PanelSigma,
				session:  &panels.Session{Panel: panels.PanelSigma, Token: "t"},
				authErr:  tt.authErr,
				renewErr: tt.renewErr,
			}
			f := newFixture(adapter)

			result := f.d.Dispatch(context.Background(), linkedClient(), sigmaPlan(), PaymentContext{})

			if result.Outcome != OutcomeFailed {
				t.Fatalf("outcome = %s, want failed", result.Outcome)
			}
			if result.Reason != tt.wantReason {
				t.Errorf("reason = %s, want %s", result.Reason, tt.wantReason)
			}
			if f.stamper.calls != 0 {
				t.Errorf("renewal stamped on failure")
			}
			if len(f.notifier.events) != 0 {
				t.Errorf("webhook delivered on failure")
			}
		})
	}
}

func TestDispatchSuccessStampsAndNotifies(t *testing.T) {
	expiry := time.Date(2026, 9, 28, 0, 0, 0, 0, time.UTC)
	adapter := &adapterStub{
		panel:   panels.PanelSigma,
		session: &panels.Session{Panel: panels.PanelSigma, Token: "t"},
		receipt: &panels.Receipt{NewExpiry: expiry, Message: "Renovado com sucesso"},
	}
	f := newFixture(adapter)

	result := f.d.Dispatch(context.Background(), linkedClient(), sigmaPlan(), PaymentContext{PaymentID: 1001, Amount: 29.90})

	if result.Outcome != OutcomeSucceeded {
		t.Fatalf("outcome = %s, want succeeded", result.Outcome)
	}
	if f.stamper.calls != 1 {
		t.Fatalf("stamp calls = %d, want 1", f.stamper.calls)
	}
	if !f.stamper.newDue.Equal(expiry) {
		t.Errorf("stamped due = %s, want %s", f.stamper.newDue, expiry)
	}
	if f.stamper.note != "Renovado com sucesso" {
		t.Errorf("stamped note = %q", f.stamper.note)
	}

	if len(f.notifier.events) != 1 {
		t.Fatalf("events = %d, want 1", len(f.notifier.events))
	}
	event := f.notifier.events[0]
	if !event.IsSigmaPlan || event.SigmaCustomerID != "ext-9" {
		t.Errorf("sigma identity not carried: %+v", event)
	}
	if event.IsLive21Plan || event.CloudNationID != "" {
		t.Errorf("live21 fields set on sigma plan: %+v", event)
	}
	if event.DueDate != "2026-09-28" {
		t.Errorf("due_date = %q, want 2026-09-28", event.DueDate)
	}
	if event.PaymentID != 1001 {
		t.Errorf("payment_id = %d, want 1001", event.PaymentID)
	}
	if len(f.alerter.messages) != 0 {
		t.Errorf("unexpected alert on success")
	}
}

func TestDispatchLive21CarriesCloudNationIdentity(t *testing.T) {
	adapter := &adapterStub{
		panel:   panels.PanelCloudNation,
		session: &panels.Session{Panel: panels.PanelCloudNation, Token: "cn"},
		receipt: &panels.Receipt{NewExpiry: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
	}
	f := newFixture(adapter)

	plan := &plans.Plan{ID: 7, DurationMonths: 3, Integration: plans.Live21{Domain: "cn.example.com"}}
	result := f.d.Dispatch(context.Background(), linkedClient(), plan, PaymentContext{})

	if result.Outcome != OutcomeSucceeded {
		t.Fatalf("outcome = %s, want succeeded", result.Outcome)
	}
	if f.factory.spec.Panel != panels.PanelLive21 {
		t.Errorf("factory spec panel = %s, want live21", f.factory.spec.Panel)
	}

	event := f.notifier.events[0]
	if !event.IsLive21Plan || event.CloudNationID != "ext-9" {
		t.Errorf("cloudnation identity not carried: %+v", event)
	}
	if event.IsSigmaPlan {
		t.Errorf("sigma flag set on live21 plan")
	}
}

func TestDispatchKofficeThreadsResellerID(t *testing.T) {
	adapter := &adapterStub{
		panel:   panels.PanelKoffice,
		session: &panels.Session{Panel: panels.PanelKoffice, Token: "k"},
		receipt: &panels.Receipt{NewExpiry: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
	}
	f := newFixture(adapter)

	plan := &plans.Plan{
		ID:             7,
		DurationMonths: 1,
		Integration:    plans.Koffice{Domain: "ko.example.com", PackageCode: "K1", ResellerID: "r-55"},
	}
	result := f.d.Dispatch(context.Background(), linkedClient(), plan, PaymentContext{})

	if result.Outcome != OutcomeSucceeded {
		t.Fatalf("outcome = %s, want succeeded", result.Outcome)
	}
	if f.factory.spec.ResellerID != "r-55" {
		t.Errorf("reseller id = %q, want r-55", f.factory.spec.ResellerID)
	}
}

func TestDispatchStampFailureDoesNotVoidRenewal(t *testing.T) {
	adapter := &adapterStub{
		panel:   panels.PanelSigma,
		session: &panels.Session{Panel: panels.PanelSigma, Token: "t"},
		receipt: &panels.Receipt{NewExpiry: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
	}
	f := newFixture(adapter)
	f.stamper.err = errors.New("db locked")

	result := f.d.Dispatch(context.Background(), linkedClient(), sigmaPlan(), PaymentContext{})

	if result.Outcome != OutcomeSucceeded {
		t.Fatalf("outcome = %s, want succeeded despite stamp failure", result.Outcome)
	}
	if len(f.notifier.events) != 1 {
		t.Errorf("webhook should still deliver, events = %d", len(f.notifier.events))
	}
}
