package panels

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// kofficeAdapter speaks the Koffice panel API. Login is form-encoded and
// returns a bearer token; renewals are issued on behalf of a reseller
// account, so the reseller id rides along on every renew call. The package
// catalog is derived from the customer list.
type kofficeAdapter struct {
	rest       *rest
	eps        endpointSet
	creds      Credentials
	resellerID string
	logger     *slog.Logger
}

func newKoffice(r *rest, eps endpointSet, creds Credentials, resellerID string, logger *slog.Logger) *kofficeAdapter {
	return &kofficeAdapter{rest: r, eps: eps, creds: creds, resellerID: resellerID, logger: logger}
}

func (a *kofficeAdapter) Panel() Panel { return PanelKoffice }

type kofficeLoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"access_token"`
}

func (a *kofficeAdapter) Authenticate(ctx context.Context) (*Session, error) {
	body := map[string]string{
		"user": a.creds.Username,
		"pass": a.creds.Password,
	}

	var res kofficeLoginResponse
	status, err := a.rest.postJSON(ctx, a.eps.Login, "", body, &res)
	if err != nil {
		return nil, &AuthError{Panel: PanelKoffice, Reason: AuthNetwork, Err: err}
	}
	if status == http.StatusUnauthorized || !res.Success || res.Token == "" {
		return nil, &AuthError{Panel: PanelKoffice, Reason: AuthInvalidCredentials}
	}

	return &Session{Panel: PanelKoffice, Token: res.Token}, nil
}

type kofficeRenewResponse struct {
	Success    bool   `json:"success"`
	NewDueDate string `json:"new_due_date"`
	Error      string `json:"error"`
}

func (a *kofficeAdapter) RenewSubscription(ctx context.Context, session *Session, externalCustomerID string, months int) (*Receipt, error) {
	body := map[string]interface{}{
		"client_id":   externalCustomerID,
		"months":      months,
		"reseller_id": a.resellerID,
	}

	var res kofficeRenewResponse
	status, err := a.rest.postJSON(ctx, a.eps.Renew, session.Token, body, &res)
	if err != nil {
		return nil, &RenewalError{Panel: PanelKoffice, Reason: RenewalNetwork, Err: err}
	}

	switch {
	case status == http.StatusUnauthorized:
		return nil, &RenewalError{Panel: PanelKoffice, Reason: RenewalInvalidSession}
	case status == http.StatusNotFound:
		return nil, &RenewalError{Panel: PanelKoffice, Reason: RenewalCustomerNotFound}
	case !res.Success:
		return nil, &RenewalError{Panel: PanelKoffice, Reason: RenewalPanelRejected,
			Err: errors.Errorf("status %d: %s", status, res.Error)}
	}

	expiry, err := time.Parse("2006-01-02", res.NewDueDate)
	if err != nil {
		return nil, &RenewalError{Panel: PanelKoffice, Reason: RenewalPanelRejected,
			Err: errors.Wrapf(err, "unparseable due date %q", res.NewDueDate)}
	}

	return &Receipt{NewExpiry: expiry}, nil
}

type kofficeClient struct {
	ID          string `json:"id"`
	PackageID   string `json:"package_id"`
	PackageName string `json:"package_name"`
	Months      int    `json:"months"`
	Connections int    `json:"connections"`
}

func (a *kofficeAdapter) ListPackages(ctx context.Context, session *Session) ([]Package, error) {
	var clients []kofficeClient
	status, err := a.rest.getJSON(ctx, a.eps.Customers, session.Token, nil, &clients)
	if err != nil {
		return nil, &FetchError{Panel: PanelKoffice, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &FetchError{Panel: PanelKoffice, Err: errors.Errorf("status %d", status)}
	}

	seen := make(map[string]bool, len(clients))
	var packages []Package
	for _, c := range clients {
		if c.PackageID == "" || seen[c.PackageID] {
			continue
		}
		seen[c.PackageID] = true
		packages = append(packages, Package{
			Panel:          PanelKoffice,
			Domain:         a.rest.baseURL,
			Code:           c.PackageID,
			Name:           c.PackageName,
			DurationMonths: c.Months,
			Screens:        c.Connections,
		})
	}

	return packages, nil
}
