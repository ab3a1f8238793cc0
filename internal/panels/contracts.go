package panels

import (
	"context"

	"revenda-crm/internal/infra/anticaptcha"
)

type (
	// Adapter unifies the wildly different protocols the panels expose.
	// Variants differ mainly in how Authenticate works: plain token
	// exchange, challenge-gated form login, or proxy-routed login.
	Adapter interface {
		Panel() Panel

		// Authenticate logs in and returns a single-use session.
		// Fails with *AuthError.
		Authenticate(ctx context.Context) (*Session, error)

		// RenewSubscription extends the customer identified by the
		// panel-side id by the given number of months. Fails with
		// *RenewalError.
		RenewSubscription(ctx context.Context, session *Session, externalCustomerID string, months int) (*Receipt, error)

		// ListPackages fetches the panel's package catalog. Panels
		// without a catalog endpoint derive it from the customer list.
		// Fails with *FetchError.
		ListPackages(ctx context.Context, session *Session) ([]Package, error)
	}

	// Solver solves interactive visual challenges for challenge-gated
	// panel logins.
	Solver interface {
		Solve(ctx context.Context, ch anticaptcha.Challenge) (string, error)
	}
)
