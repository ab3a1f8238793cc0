package panels

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"revenda-crm/internal/infra/anticaptcha"
)

// clubAdapter speaks the Club panel, which gates its form login behind an
// hCaptcha-style challenge and keeps session state in cookies. The login
// endpoint answers with a redirect either way: the target tells success
// from failure, so redirects are inspected rather than followed.
type clubAdapter struct {
	rest   *rest
	eps    endpointSet
	creds  Credentials
	solver Solver
	domain string
	logger *slog.Logger
}

func newClub(r *rest, eps endpointSet, creds Credentials, solver Solver, domain string, logger *slog.Logger) *clubAdapter {
	return &clubAdapter{rest: r, eps: eps, creds: creds, solver: solver, domain: domain, logger: logger}
}

func (a *clubAdapter) Panel() Panel { return PanelClub }

func (a *clubAdapter) Authenticate(ctx context.Context) (*Session, error) {
	token, err := a.solver.Solve(ctx, anticaptcha.Challenge{
		PageURL: strings.TrimSuffix(a.domain, "/") + a.eps.Login,
		SiteKey: a.eps.SiteKey,
	})
	if err != nil {
		return nil, &AuthError{Panel: PanelClub, Reason: AuthChallengeFailed, Err: err}
	}

	form := url.Values{
		"username":           {a.creds.Username},
		"password":           {a.creds.Password},
		"h-captcha-response": {token},
	}

	resp, err := a.rest.postForm(ctx, a.eps.Login, form, nil)
	if err != nil {
		return nil, &AuthError{Panel: PanelClub, Reason: AuthNetwork, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		location := resp.Header.Get("Location")
		if strings.Contains(location, "login") {
			return nil, &AuthError{Panel: PanelClub, Reason: AuthInvalidCredentials}
		}
		// Redirect away from the login page means the form was accepted.
		return &Session{Panel: PanelClub, Cookies: resp.Cookies()}, nil
	}

	if resp.StatusCode == http.StatusOK && len(resp.Cookies()) > 0 {
		return &Session{Panel: PanelClub, Cookies: resp.Cookies()}, nil
	}

	return nil, &AuthError{Panel: PanelClub, Reason: AuthInvalidCredentials,
		Err: errors.Errorf("unexpected login status %d", resp.StatusCode)}
}

type clubRenewResponse struct {
	Vencimento int64  `json:"vencimento"`
	Mensagem   string `json:"mensagem"`
	Erro       string `json:"erro"`
}

func (a *clubAdapter) RenewSubscription(ctx context.Context, session *Session, externalCustomerID string, months int) (*Receipt, error) {
	form := url.Values{
		"cliente_id": {externalCustomerID},
		"meses":      {strconv.Itoa(months)},
	}

	resp, err := a.rest.postForm(ctx, a.eps.Renew, form, session.Cookies)
	if err != nil {
		return nil, &RenewalError{Panel: PanelClub, Reason: RenewalNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RenewalError{Panel: PanelClub, Reason: RenewalNetwork, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode >= 300 && resp.StatusCode < 400:
		// Expired cookies bounce back to the login page.
		return nil, &RenewalError{Panel: PanelClub, Reason: RenewalInvalidSession}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &RenewalError{Panel: PanelClub, Reason: RenewalCustomerNotFound}
	}

	var res clubRenewResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, &RenewalError{Panel: PanelClub, Reason: RenewalPanelRejected,
			Err: errors.Wrapf(err, "decode renew response (status %d)", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || res.Erro != "" {
		return nil, &RenewalError{Panel: PanelClub, Reason: RenewalPanelRejected,
			Err: errors.Errorf("status %d: %s", resp.StatusCode, res.Erro)}
	}

	// Panel reports the new expiry as epoch seconds and wraps its receipt
	// text in HTML.
	return &Receipt{
		NewExpiry: time.Unix(res.Vencimento, 0).UTC(),
		Message:   stripHTML(res.Mensagem),
	}, nil
}

func (a *clubAdapter) ListPackages(ctx context.Context, session *Session) ([]Package, error) {
	var res []struct {
		Codigo string `json:"codigo"`
		Nome   string `json:"nome"`
		Meses  int    `json:"meses"`
		Telas  int    `json:"telas"`
	}
	status, err := a.rest.getJSON(ctx, a.eps.Packages, "", session.Cookies, &res)
	if err != nil {
		return nil, &FetchError{Panel: PanelClub, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &FetchError{Panel: PanelClub, Err: errors.Errorf("status %d", status)}
	}

	packages := make([]Package, 0, len(res))
	for _, p := range res {
		packages = append(packages, Package{
			Panel:          PanelClub,
			Domain:         a.rest.baseURL,
			Code:           p.Codigo,
			Name:           p.Nome,
			DurationMonths: p.Meses,
			Screens:        p.Telas,
		})
	}

	return packages, nil
}
