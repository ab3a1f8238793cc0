package panels

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// painelFodaAdapter speaks the PainelFoda API. Dates come back in the
// Brazilian dd/mm/yyyy form.
type painelFodaAdapter struct {
	rest   *rest
	eps    endpointSet
	creds  Credentials
	logger *slog.Logger
}

func newPainelFoda(r *rest, eps endpointSet, creds Credentials, logger *slog.Logger) *painelFodaAdapter {
	return &painelFodaAdapter{rest: r, eps: eps, creds: creds, logger: logger}
}

func (a *painelFodaAdapter) Panel() Panel { return PanelPainelFoda }

func (a *painelFodaAdapter) Authenticate(ctx context.Context) (*Session, error) {
	body := map[string]string{
		"usuario": a.creds.Username,
		"senha":   a.creds.Password,
	}

	var res struct {
		Token string `json:"token"`
	}
	status, err := a.rest.postJSON(ctx, a.eps.Login, "", body, &res)
	if err != nil {
		return nil, &AuthError{Panel: PanelPainelFoda, Reason: AuthNetwork, Err: err}
	}
	if status == http.StatusUnauthorized || res.Token == "" {
		return nil, &AuthError{Panel: PanelPainelFoda, Reason: AuthInvalidCredentials}
	}

	return &Session{Panel: PanelPainelFoda, Token: res.Token}, nil
}

func (a *painelFodaAdapter) RenewSubscription(ctx context.Context, session *Session, externalCustomerID string, months int) (*Receipt, error) {
	body := map[string]interface{}{
		"cliente": externalCustomerID,
		"meses":   months,
	}

	var res struct {
		Vencimento string `json:"vencimento"`
		Mensagem   string `json:"mensagem"`
	}
	status, err := a.rest.postJSON(ctx, a.eps.Renew, session.Token, body, &res)
	if err != nil {
		return nil, &RenewalError{Panel: PanelPainelFoda, Reason: RenewalNetwork, Err: err}
	}

	switch {
	case status == http.StatusUnauthorized:
		return nil, &RenewalError{Panel: PanelPainelFoda, Reason: RenewalInvalidSession}
	case status == http.StatusNotFound:
		return nil, &RenewalError{Panel: PanelPainelFoda, Reason: RenewalCustomerNotFound}
	case status < 200 || status >= 300:
		return nil, &RenewalError{Panel: PanelPainelFoda, Reason: RenewalPanelRejected,
			Err: errors.Errorf("status %d: %s", status, res.Mensagem)}
	}

	expiry, err := time.Parse("02/01/2006", res.Vencimento)
	if err != nil {
		return nil, &RenewalError{Panel: PanelPainelFoda, Reason: RenewalPanelRejected,
			Err: errors.Wrapf(err, "unparseable vencimento %q", res.Vencimento)}
	}

	return &Receipt{NewExpiry: expiry, Message: stripHTML(res.Mensagem)}, nil
}

func (a *painelFodaAdapter) ListPackages(ctx context.Context, session *Session) ([]Package, error) {
	var res []struct {
		Codigo string `json:"codigo"`
		Nome   string `json:"nome"`
		Meses  int    `json:"meses"`
		Telas  int    `json:"telas"`
	}
	status, err := a.rest.getJSON(ctx, a.eps.Packages, session.Token, nil, &res)
	if err != nil {
		return nil, &FetchError{Panel: PanelPainelFoda, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &FetchError{Panel: PanelPainelFoda, Err: errors.Errorf("status %d", status)}
	}

	packages := make([]Package, 0, len(res))
	for _, p := range res {
		packages = append(packages, Package{
			Panel:          PanelPainelFoda,
			Domain:         a.rest.baseURL,
			Code:           p.Codigo,
			Name:           p.Nome,
			DurationMonths: p.Meses,
			Screens:        p.Telas,
		})
	}

	return packages, nil
}
