package panels

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// uniTVAdapter speaks the UniTV panel API. Like sigma, UniTV exposes no
// package catalog endpoint; the catalog is derived from the user list.
type uniTVAdapter struct {
	rest   *rest
	eps    endpointSet
	creds  Credentials
	logger *slog.Logger
}

func newUniTV(r *rest, eps endpointSet, creds Credentials, logger *slog.Logger) *uniTVAdapter {
	return &uniTVAdapter{rest: r, eps: eps, creds: creds, logger: logger}
}

func (a *uniTVAdapter) Panel() Panel { return PanelUniTV }

func (a *uniTVAdapter) Authenticate(ctx context.Context) (*Session, error) {
	body := map[string]string{
		"login":    a.creds.Username,
		"password": a.creds.Password,
	}

	var res struct {
		SessionToken string `json:"session_token"`
	}
	status, err := a.rest.postJSON(ctx, a.eps.Login, "", body, &res)
	if err != nil {
		return nil, &AuthError{Panel: PanelUniTV, Reason: AuthNetwork, Err: err}
	}
	if status == http.StatusUnauthorized || res.SessionToken == "" {
		return nil, &AuthError{Panel: PanelUniTV, Reason: AuthInvalidCredentials}
	}

	return &Session{Panel: PanelUniTV, Token: res.SessionToken}, nil
}

func (a *uniTVAdapter) RenewSubscription(ctx context.Context, session *Session, externalCustomerID string, months int) (*Receipt, error) {
	body := map[string]interface{}{
		"user_id": externalCustomerID,
		"months":  months,
	}

	var res struct {
		ExpireAt int64  `json:"expire_at"`
		Message  string `json:"message"`
	}
	status, err := a.rest.postJSON(ctx, a.eps.Renew, session.Token, body, &res)
	if err != nil {
		return nil, &RenewalError{Panel: PanelUniTV, Reason: RenewalNetwork, Err: err}
	}

	switch {
	case status == http.StatusUnauthorized:
		return nil, &RenewalError{Panel: PanelUniTV, Reason: RenewalInvalidSession}
	case status == http.StatusNotFound:
		return nil, &RenewalError{Panel: PanelUniTV, Reason: RenewalCustomerNotFound}
	case status < 200 || status >= 300:
		return nil, &RenewalError{Panel: PanelUniTV, Reason: RenewalPanelRejected,
			Err: errors.Errorf("status %d: %s", status, res.Message)}
	}

	return &Receipt{NewExpiry: time.Unix(res.ExpireAt, 0).UTC(), Message: res.Message}, nil
}

func (a *uniTVAdapter) ListPackages(ctx context.Context, session *Session) ([]Package, error) {
	var res struct {
		Users []struct {
			ID   string `json:"id"`
			Plan struct {
				Code    string `json:"code"`
				Name    string `json:"name"`
				Months  int    `json:"months"`
				Screens int    `json:"screens"`
			} `json:"plan"`
		} `json:"users"`
	}
	status, err := a.rest.getJSON(ctx, a.eps.Customers, session.Token, nil, &res)
	if err != nil {
		return nil, &FetchError{Panel: PanelUniTV, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &FetchError{Panel: PanelUniTV, Err: errors.Errorf("status %d", status)}
	}

	seen := make(map[string]bool, len(res.Users))
	var packages []Package
	for _, u := range res.Users {
		if u.Plan.Code == "" || seen[u.Plan.Code] {
			continue
		}
		seen[u.Plan.Code] = true
		packages = append(packages, Package{
			Panel:          PanelUniTV,
			Domain:         a.rest.baseURL,
			Code:           u.Plan.Code,
			Name:           u.Plan.Name,
			DurationMonths: u.Plan.Months,
			Screens:        u.Plan.Screens,
		})
	}

	return packages, nil
}
