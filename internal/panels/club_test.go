package panels

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"revenda-crm/internal/infra/anticaptcha"
)

type fakeSolver struct {
	token string
	err   error
	calls int
}

func (f *fakeSolver) Solve(ctx context.Context, ch anticaptcha.Challenge) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func clubTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostFormValue("h-captcha-response") != "solved-token" {
			// Challenge rejected: bounce back to the login page.
			http.Redirect(w, r, "/login?error=captcha", http.StatusFound)
			return
		}
		if r.PostFormValue("username") != "reseller" || r.PostFormValue("password") != "secret" {
			http.Redirect(w, r, "/login?error=credentials", http.StatusFound)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "club_session", Value: "cookie-1"})
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	mux.HandleFunc("/clientes/renovar", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("club_session"); err != nil || c.Value != "cookie-1" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		r.ParseForm()
		if r.PostFormValue("cliente_id") == "ghost" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"vencimento": int64(1790553600), // 2026-09-28T00:00:00Z
			"mensagem":   "<b>Renovado</b> com sucesso<br>ate 28/09/2026",
		})
	})

	return httptest.NewServer(mux)
}

func TestClubAuthenticateSolvesChallengeThenSubmitsForm(t *testing.T) {
	srv := clubTestServer(t)
	defer srv.Close()

	eps, _ := endpointsFor(PanelClub)
	solver := &fakeSolver{token: "solved-token"}
	a := newClub(testRest(srv.URL), eps, Credentials{Username: "reseller", Password: "secret"}, solver, srv.URL, testLogger())

	session, err := a.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if solver.calls != 1 {
		t.Errorf("solver calls = %d, want 1", solver.calls)
	}
	if len(session.Cookies) == 0 {
		t.Fatal("session has no cookies")
	}
	if session.Cookies[0].Name != "club_session" {
		t.Errorf("cookie name = %q, want club_session", session.Cookies[0].Name)
	}
}

func TestClubAuthenticateFailures(t *testing.T) {
	srv := clubTestServer(t)
	defer srv.Close()

	eps, _ := endpointsFor(PanelClub)

	t.Run("solver timeout maps to challenge_failed", func(t *testing.T) {
		solver := &fakeSolver{err: anticaptcha.ErrTimeout}
		a := newClub(testRest(srv.URL), eps, Credentials{Username: "reseller", Password: "secret"}, solver, srv.URL, testLogger())

		_, err := a.Authenticate(context.Background())
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("Authenticate error = %v, want *AuthError", err)
		}
		if authErr.Reason != AuthChallengeFailed {
			t.Errorf("reason = %q, want %q", authErr.Reason, AuthChallengeFailed)
		}
	})

	t.Run("redirect back to login maps to invalid_credentials", func(t *testing.T) {
		solver := &fakeSolver{token: "solved-token"}
		a := newClub(testRest(srv.URL), eps, Credentials{Username: "reseller", Password: "wrong"}, solver, srv.URL, testLogger())

		_, err := a.Authenticate(context.Background())
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("Authenticate error = %v, want *AuthError", err)
		}
		if authErr.Reason != AuthInvalidCredentials {
			t.Errorf("reason = %q, want %q", authErr.Reason, AuthInvalidCredentials)
		}
	})
}

func TestClubRenewConvertsEpochAndStripsHTML(t *testing.T) {
	srv := clubTestServer(t)
	defer srv.Close()

	eps, _ := endpointsFor(PanelClub)
	a := newClub(testRest(srv.URL), eps, Credentials{}, &fakeSolver{token: "solved-token"}, srv.URL, testLogger())

	session := &Session{Panel: PanelClub, Cookies: []*http.Cookie{{Name: "club_session", Value: "cookie-1"}}}

	receipt, err := a.RenewSubscription(context.Background(), session, "42", 3)
	if err != nil {
		t.Fatalf("RenewSubscription: %v", err)
	}

	want := time.Unix(1790553600, 0).UTC()
	if !receipt.NewExpiry.Equal(want) {
		t.Errorf("NewExpiry = %v, want %v", receipt.NewExpiry, want)
	}
	if receipt.Message != "Renovado com sucesso ate 28/09/2026" {
		t.Errorf("Message = %q, want stripped text", receipt.Message)
	}
}

func TestClubRenewExpiredCookiesMapToInvalidSession(t *testing.T) {
	srv := clubTestServer(t)
	defer srv.Close()

	eps, _ := endpointsFor(PanelClub)
	a := newClub(testRest(srv.URL), eps, Credentials{}, &fakeSolver{token: "solved-token"}, srv.URL, testLogger())

	session := &Session{Panel: PanelClub, Cookies: []*http.Cookie{{Name: "club_session", Value: "stale"}}}

	_, err := a.RenewSubscription(context.Background(), session, "42", 1)
	var renewErr *RenewalError
	if !errors.As(err, &renewErr) {
		t.Fatalf("RenewSubscription error = %v, want *RenewalError", err)
	}
	if renewErr.Reason != RenewalInvalidSession {
		t.Errorf("reason = %q, want %q", renewErr.Reason, RenewalInvalidSession)
	}
}
