package panels

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// rushAdapter speaks the Rush panel API (bearer token, catalog endpoint).
type rushAdapter struct {
	rest   *rest
	eps    endpointSet
	creds  Credentials
	logger *slog.Logger
}

func newRush(r *rest, eps endpointSet, creds Credentials, logger *slog.Logger) *rushAdapter {
	return &rushAdapter{rest: r, eps: eps, creds: creds, logger: logger}
}

func (a *rushAdapter) Panel() Panel { return PanelRush }

func (a *rushAdapter) Authenticate(ctx context.Context) (*Session, error) {
	body := map[string]string{
		"username": a.creds.Username,
		"password": a.creds.Password,
	}

	var res struct {
		AccessToken string `json:"access_token"`
	}
	status, err := a.rest.postJSON(ctx, a.eps.Login, "", body, &res)
	if err != nil {
		return nil, &AuthError{Panel: PanelRush, Reason: AuthNetwork, Err: err}
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden || res.AccessToken == "" {
		return nil, &AuthError{Panel: PanelRush, Reason: AuthInvalidCredentials}
	}

	return &Session{Panel: PanelRush, Token: res.AccessToken}, nil
}

func (a *rushAdapter) RenewSubscription(ctx context.Context, session *Session, externalCustomerID string, months int) (*Receipt, error) {
	body := map[string]interface{}{
		"client":   externalCustomerID,
		"quantity": months,
	}

	var res struct {
		Due   int64  `json:"due"`
		Error string `json:"error"`
	}
	status, err := a.rest.postJSON(ctx, a.eps.Renew, session.Token, body, &res)
	if err != nil {
		return nil, &RenewalError{Panel: PanelRush, Reason: RenewalNetwork, Err: err}
	}

	switch {
	case status == http.StatusUnauthorized:
		return nil, &RenewalError{Panel: PanelRush, Reason: RenewalInvalidSession}
	case status == http.StatusNotFound:
		return nil, &RenewalError{Panel: PanelRush, Reason: RenewalCustomerNotFound}
	case status < 200 || status >= 300:
		return nil, &RenewalError{Panel: PanelRush, Reason: RenewalPanelRejected,
			Err: errors.Errorf("status %d: %s", status, res.Error)}
	}

	return &Receipt{NewExpiry: time.Unix(res.Due, 0).UTC()}, nil
}

func (a *rushAdapter) ListPackages(ctx context.Context, session *Session) ([]Package, error) {
	var res struct {
		Plans []struct {
			ID      string `json:"id"`
			Title   string `json:"title"`
			Months  int    `json:"months"`
			Screens int    `json:"screens"`
		} `json:"plans"`
	}
	status, err := a.rest.getJSON(ctx, a.eps.Packages, session.Token, nil, &res)
	if err != nil {
		return nil, &FetchError{Panel: PanelRush, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &FetchError{Panel: PanelRush, Err: errors.Errorf("status %d", status)}
	}

	packages := make([]Package, 0, len(res.Plans))
	for _, p := range res.Plans {
		packages = append(packages, Package{
			Panel:          PanelRush,
			Domain:         a.rest.baseURL,
			Code:           p.ID,
			Name:           p.Title,
			DurationMonths: p.Months,
			Screens:        p.Screens,
		})
	}

	return packages, nil
}
