package panels

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRest(baseURL string) *rest {
	return &rest{
		baseURL:    baseURL,
		httpClient: newHTTPClient(5*time.Second, nil),
	}
}

func sigmaTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "reseller" || body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "sigma-token"})
	})

	mux.HandleFunc("/api/customers/renew", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sigma-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["customer_id"] == "ghost" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"expires_at": "2026-09-28T00:00:00Z",
			"message":    "renewed",
		})
	})

	mux.HandleFunc("/api/customers", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sigma-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": "c1", "package": map[string]interface{}{"code": "P1", "name": "Mensal", "months": 1, "screens": 2}},
			{"id": "c2", "package": map[string]interface{}{"code": "P1", "name": "Mensal", "months": 1, "screens": 2}},
			{"id": "c3", "package": map[string]interface{}{"code": "P3", "name": "Trimestral", "months": 3, "screens": 1}},
			{"id": "c4", "package": map[string]interface{}{"code": "", "name": "sem pacote"}},
		})
	})

	return httptest.NewServer(mux)
}

func TestSigmaAuthenticate(t *testing.T) {
	srv := sigmaTestServer(t)
	defer srv.Close()

	eps, _ := endpointsFor(PanelSigma)

	t.Run("valid credentials yield bearer session", func(t *testing.T) {
		a := newSigma(testRest(srv.URL), eps, Credentials{Username: "reseller", Password: "secret"}, testLogger())
		session, err := a.Authenticate(context.Background())
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if session.Token != "sigma-token" {
			t.Errorf("session token = %q, want %q", session.Token, "sigma-token")
		}
	})

	t.Run("bad credentials map to invalid_credentials", func(t *testing.T) {
		a := newSigma(testRest(srv.URL), eps, Credentials{Username: "reseller", Password: "wrong"}, testLogger())
		_, err := a.Authenticate(context.Background())

		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("Authenticate error = %v, want *AuthError", err)
		}
		if authErr.Reason != AuthInvalidCredentials {
			t.Errorf("reason = %q, want %q", authErr.Reason, AuthInvalidCredentials)
		}
	})

	t.Run("unreachable panel maps to network", func(t *testing.T) {
		a := newSigma(testRest("http://127.0.0.1:1"), eps, Credentials{Username: "reseller", Password: "secret"}, testLogger())
		_, err := a.Authenticate(context.Background())

		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("Authenticate error = %v, want *AuthError", err)
		}
		if authErr.Reason != AuthNetwork {
			t.Errorf("reason = %q, want %q", authErr.Reason, AuthNetwork)
		}
	})
}

func TestSigmaRenewSubscription(t *testing.T) {
	srv := sigmaTestServer(t)
	defer srv.Close()

	eps, _ := endpointsFor(PanelSigma)
	a := newSigma(testRest(srv.URL), eps, Credentials{Username: "reseller", Password: "secret"}, testLogger())

	session := &Session{Panel: PanelSigma, Token: "sigma-token"}

	t.Run("success returns parsed expiry", func(t *testing.T) {
		receipt, err := a.RenewSubscription(context.Background(), session, "c1", 3)
		if err != nil {
			t.Fatalf("RenewSubscription: %v", err)
		}
		want := time.Date(2026, 9, 28, 0, 0, 0, 0, time.UTC)
		if !receipt.NewExpiry.Equal(want) {
			t.Errorf("NewExpiry = %v, want %v", receipt.NewExpiry, want)
		}
	})

	t.Run("unknown customer maps to customer_not_found", func(t *testing.T) {
		_, err := a.RenewSubscription(context.Background(), session, "ghost", 1)

		var renewErr *RenewalError
		if !errors.As(err, &renewErr) {
			t.Fatalf("RenewSubscription error = %v, want *RenewalError", err)
		}
		if renewErr.Reason != RenewalCustomerNotFound {
			t.Errorf("reason = %q, want %q", renewErr.Reason, RenewalCustomerNotFound)
		}
	})

	t.Run("stale token maps to invalid_session", func(t *testing.T) {
		_, err := a.RenewSubscription(context.Background(), &Session{Panel: PanelSigma, Token: "stale"}, "c1", 1)

		var renewErr *RenewalError
		if !errors.As(err, &renewErr) {
			t.Fatalf("RenewSubscription error = %v, want *RenewalError", err)
		}
		if renewErr.Reason != RenewalInvalidSession {
			t.Errorf("reason = %q, want %q", renewErr.Reason, RenewalInvalidSession)
		}
	})
}

func TestSigmaListPackagesDedupsCustomerPackages(t *testing.T) {
	srv := sigmaTestServer(t)
	defer srv.Close()

	eps, _ := endpointsFor(PanelSigma)
	a := newSigma(testRest(srv.URL), eps, Credentials{Username: "reseller", Password: "secret"}, testLogger())

	packages, err := a.ListPackages(context.Background(), &Session{Panel: PanelSigma, Token: "sigma-token"})
	if err != nil {
		t.Fatalf("ListPackages: %v", err)
	}

	if len(packages) != 2 {
		t.Fatalf("ListPackages returned %d packages, want 2 (deduped)", len(packages))
	}
	if packages[0].Code != "P1" || packages[1].Code != "P3" {
		t.Errorf("package codes = %q, %q; want P1, P3", packages[0].Code, packages[1].Code)
	}
	if packages[1].DurationMonths != 3 {
		t.Errorf("P3 duration = %d months, want 3", packages[1].DurationMonths)
	}
}
