package panels

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// sigmaAdapter speaks the Sigma panel's bearer-token REST API. Sigma has no
// package catalog endpoint; the catalog is derived from the customer list.
type sigmaAdapter struct {
	rest   *rest
	eps    endpointSet
	creds  Credentials
	logger *slog.Logger
}

func newSigma(r *rest, eps endpointSet, creds Credentials, logger *slog.Logger) *sigmaAdapter {
	return &sigmaAdapter{rest: r, eps: eps, creds: creds, logger: logger}
}

func (a *sigmaAdapter) Panel() Panel { return PanelSigma }

type sigmaLoginResponse struct {
	Token string `json:"token"`
}

func (a *sigmaAdapter) Authenticate(ctx context.Context) (*Session, error) {
	body := map[string]string{
		"username": a.creds.Username,
		"password": a.creds.Password,
	}

	var res sigmaLoginResponse
	status, err := a.rest.postJSON(ctx, a.eps.Login, "", body, &res)
	if err != nil {
		return nil, &AuthError{Panel: PanelSigma, Reason: AuthNetwork, Err: err}
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden || res.Token == "" {
		return nil, &AuthError{Panel: PanelSigma, Reason: AuthInvalidCredentials}
	}

	return &Session{Panel: PanelSigma, Token: res.Token}, nil
}

type sigmaRenewResponse struct {
	ExpiresAt string `json:"expires_at"`
	Message   string `json:"message"`
}

func (a *sigmaAdapter) RenewSubscription(ctx context.Context, session *Session, externalCustomerID string, months int) (*Receipt, error) {
	body := map[string]interface{}{
		"customer_id": externalCustomerID,
		"months":      months,
	}

	var res sigmaRenewResponse
	status, err := a.rest.postJSON(ctx, a.eps.Renew, session.Token, body, &res)
	if err != nil {
		return nil, &RenewalError{Panel: PanelSigma, Reason: RenewalNetwork, Err: err}
	}

	switch {
	case status == http.StatusUnauthorized:
		return nil, &RenewalError{Panel: PanelSigma, Reason: RenewalInvalidSession}
	case status == http.StatusNotFound:
		return nil, &RenewalError{Panel: PanelSigma, Reason: RenewalCustomerNotFound}
	case status < 200 || status >= 300:
		return nil, &RenewalError{Panel: PanelSigma, Reason: RenewalPanelRejected,
			Err: errors.Errorf("status %d: %s", status, res.Message)}
	}

	expiry, err := time.Parse(time.RFC3339, res.ExpiresAt)
	if err != nil {
		return nil, &RenewalError{Panel: PanelSigma, Reason: RenewalPanelRejected,
			Err: errors.Wrapf(err, "unparseable expiry %q", res.ExpiresAt)}
	}

	return &Receipt{NewExpiry: expiry, Message: res.Message}, nil
}

type sigmaCustomer struct {
	ID      string `json:"id"`
	Package struct {
		Code    string `json:"code"`
		Name    string `json:"name"`
		Months  int    `json:"months"`
		Screens int    `json:"screens"`
	} `json:"package"`
}

// ListPackages lists customers and dedups the distinct packages observed
// across them.
func (a *sigmaAdapter) ListPackages(ctx context.Context, session *Session) ([]Package, error) {
	var customers []sigmaCustomer
	status, err := a.rest.getJSON(ctx, a.eps.Customers, session.Token, nil, &customers)
	if err != nil {
		return nil, &FetchError{Panel: PanelSigma, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &FetchError{Panel: PanelSigma, Err: errors.Errorf("status %d", status)}
	}

	seen := make(map[string]bool, len(customers))
	var packages []Package
	for _, c := range customers {
		if c.Package.Code == "" || seen[c.Package.Code] {
			continue
		}
		seen[c.Package.Code] = true
		packages = append(packages, Package{
			Panel:          PanelSigma,
			Domain:         a.rest.baseURL,
			Code:           c.Package.Code,
			Name:           c.Package.Name,
			DurationMonths: c.Package.Months,
			Screens:        c.Package.Screens,
		})
	}

	a.logger.Debug("Derived sigma packages from customer list",
		"customers", len(customers),
		"packages", len(packages))

	return packages, nil
}
