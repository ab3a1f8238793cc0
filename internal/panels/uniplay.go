package panels

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// uniplayAdapter speaks the Uniplay panel API: JSON login for a bearer
// token and a real package catalog endpoint.
type uniplayAdapter struct {
	rest   *rest
	eps    endpointSet
	creds  Credentials
	logger *slog.Logger
}

func newUniplay(r *rest, eps endpointSet, creds Credentials, logger *slog.Logger) *uniplayAdapter {
	return &uniplayAdapter{rest: r, eps: eps, creds: creds, logger: logger}
}

func (a *uniplayAdapter) Panel() Panel { return PanelUniplay }

func (a *uniplayAdapter) Authenticate(ctx context.Context) (*Session, error) {
	body := map[string]string{
		"email":    a.creds.Username,
		"password": a.creds.Password,
	}

	var res struct {
		Token string `json:"token"`
	}
	status, err := a.rest.postJSON(ctx, a.eps.Login, "", body, &res)
	if err != nil {
		return nil, &AuthError{Panel: PanelUniplay, Reason: AuthNetwork, Err: err}
	}
	if status == http.StatusUnauthorized || res.Token == "" {
		return nil, &AuthError{Panel: PanelUniplay, Reason: AuthInvalidCredentials}
	}

	return &Session{Panel: PanelUniplay, Token: res.Token}, nil
}

func (a *uniplayAdapter) RenewSubscription(ctx context.Context, session *Session, externalCustomerID string, months int) (*Receipt, error) {
	body := map[string]interface{}{
		"code":   externalCustomerID,
		"months": months,
	}

	var res struct {
		Expiry  int64  `json:"expiry"`
		Message string `json:"message"`
	}
	status, err := a.rest.postJSON(ctx, a.eps.Renew, session.Token, body, &res)
	if err != nil {
		return nil, &RenewalError{Panel: PanelUniplay, Reason: RenewalNetwork, Err: err}
	}

	switch {
	case status == http.StatusUnauthorized:
		return nil, &RenewalError{Panel: PanelUniplay, Reason: RenewalInvalidSession}
	case status == http.StatusNotFound:
		return nil, &RenewalError{Panel: PanelUniplay, Reason: RenewalCustomerNotFound}
	case status < 200 || status >= 300:
		return nil, &RenewalError{Panel: PanelUniplay, Reason: RenewalPanelRejected,
			Err: errors.Errorf("status %d: %s", status, res.Message)}
	}

	return &Receipt{NewExpiry: time.Unix(res.Expiry, 0).UTC(), Message: res.Message}, nil
}

func (a *uniplayAdapter) ListPackages(ctx context.Context, session *Session) ([]Package, error) {
	var res []struct {
		Code    string `json:"code"`
		Name    string `json:"name"`
		Months  int    `json:"months"`
		Screens int    `json:"screens"`
	}
	status, err := a.rest.getJSON(ctx, a.eps.Packages, session.Token, nil, &res)
	if err != nil {
		return nil, &FetchError{Panel: PanelUniplay, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &FetchError{Panel: PanelUniplay, Err: errors.Errorf("status %d", status)}
	}

	packages := make([]Package, 0, len(res))
	for _, p := range res {
		packages = append(packages, Package{
			Panel:          PanelUniplay,
			Domain:         a.rest.baseURL,
			Code:           p.Code,
			Name:           p.Name,
			DurationMonths: p.Months,
			Screens:        p.Screens,
		})
	}

	return packages, nil
}
