package panels

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"revenda-crm/internal/infra/anticaptcha"
)

// cloudNationAdapter speaks the CloudNation panel, which both gates login
// behind a visual challenge and blocks traffic by source IP, so every
// request leaves through the rotating proxy pool (wired into the rest
// client by the factory). Live21-flagged plans renew here.
type cloudNationAdapter struct {
	rest   *rest
	eps    endpointSet
	creds  Credentials
	solver Solver
	domain string
	logger *slog.Logger
}

func newCloudNation(r *rest, eps endpointSet, creds Credentials, solver Solver, domain string, logger *slog.Logger) *cloudNationAdapter {
	return &cloudNationAdapter{rest: r, eps: eps, creds: creds, solver: solver, domain: domain, logger: logger}
}

func (a *cloudNationAdapter) Panel() Panel { return PanelCloudNation }

func (a *cloudNationAdapter) Authenticate(ctx context.Context) (*Session, error) {
	token, err := a.solver.Solve(ctx, anticaptcha.Challenge{
		PageURL: strings.TrimSuffix(a.domain, "/") + a.eps.Login,
		SiteKey: a.eps.SiteKey,
	})
	if err != nil {
		return nil, &AuthError{Panel: PanelCloudNation, Reason: AuthChallengeFailed, Err: err}
	}

	form := url.Values{
		"email":              {a.creds.Username},
		"password":           {a.creds.Password},
		"h-captcha-response": {token},
	}

	resp, err := a.rest.postForm(ctx, a.eps.Login, form, nil)
	if err != nil {
		return nil, &AuthError{Panel: PanelCloudNation, Reason: AuthNetwork, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// Success redirects into the member area carrying session cookies;
	// failure redirects back to /login.
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if strings.Contains(resp.Header.Get("Location"), a.eps.Login) {
			return nil, &AuthError{Panel: PanelCloudNation, Reason: AuthInvalidCredentials}
		}
		session := &Session{Panel: PanelCloudNation, Cookies: resp.Cookies()}
		for _, c := range resp.Cookies() {
			if c.Name == "cn_session" {
				session.Token = c.Value
			}
		}
		return session, nil
	}

	return nil, &AuthError{Panel: PanelCloudNation, Reason: AuthInvalidCredentials,
		Err: errors.Errorf("unexpected login status %d", resp.StatusCode)}
}

func (a *cloudNationAdapter) RenewSubscription(ctx context.Context, session *Session, externalCustomerID string, months int) (*Receipt, error) {
	body := map[string]interface{}{
		"customer_id": externalCustomerID,
		"months":      months,
	}

	var res struct {
		Expires int64  `json:"expires"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	status, err := a.postJSONWithCookies(ctx, a.eps.Renew, session, body, &res)
	if err != nil {
		return nil, &RenewalError{Panel: PanelCloudNation, Reason: RenewalNetwork, Err: err}
	}

	switch {
	case status == http.StatusUnauthorized, status >= 300 && status < 400:
		return nil, &RenewalError{Panel: PanelCloudNation, Reason: RenewalInvalidSession}
	case status == http.StatusNotFound:
		return nil, &RenewalError{Panel: PanelCloudNation, Reason: RenewalCustomerNotFound}
	case status < 200 || status >= 300 || res.Error != "":
		return nil, &RenewalError{Panel: PanelCloudNation, Reason: RenewalPanelRejected,
			Err: errors.Errorf("status %d: %s", status, res.Error)}
	}

	return &Receipt{
		NewExpiry: time.Unix(res.Expires, 0).UTC(),
		Message:   stripHTML(res.Message),
	}, nil
}

func (a *cloudNationAdapter) ListPackages(ctx context.Context, session *Session) ([]Package, error) {
	var res []struct {
		Code    string `json:"code"`
		Name    string `json:"name"`
		Months  int    `json:"months"`
		Screens int    `json:"screens"`
	}
	status, err := a.rest.getJSON(ctx, a.eps.Packages, "", session.Cookies, &res)
	if err != nil {
		return nil, &FetchError{Panel: PanelCloudNation, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &FetchError{Panel: PanelCloudNation, Err: errors.Errorf("status %d", status)}
	}

	packages := make([]Package, 0, len(res))
	for _, p := range res {
		packages = append(packages, Package{
			Panel:          PanelCloudNation,
			Domain:         a.rest.baseURL,
			Code:           p.Code,
			Name:           p.Name,
			DurationMonths: p.Months,
			Screens:        p.Screens,
		})
	}

	return packages, nil
}

// postJSONWithCookies is postJSON plus the cookie jar the login redirect
// handed back.
func (a *cloudNationAdapter) postJSONWithCookies(ctx context.Context, path string, session *Session, body, out interface{}) (int, error) {
	req, err := newJSONRequest(ctx, a.rest.url(path), body)
	if err != nil {
		return 0, err
	}
	for _, c := range session.Cookies {
		req.AddCookie(c)
	}

	resp, err := a.rest.do(ctx, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return decodeJSONBody(resp, out)
}
