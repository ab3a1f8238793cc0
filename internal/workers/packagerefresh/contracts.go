package packagerefresh

import (
	"context"

	"revenda-crm/internal/panels"
	"revenda-crm/internal/stories/credentials"
)

type (
	// CredentialStore enumerates stored panel logins and resolves them to
	// usable credentials.
	CredentialStore interface {
		ListCredentials(ctx context.Context) ([]*credentials.StoredCredentials, error)
	}

	CredentialSource interface {
		Get(ctx context.Context, userID int64, panel panels.Panel, domain string) (*panels.Credentials, error)
	}

	AdapterFactory interface {
		Adapter(spec panels.AdapterSpec) (panels.Adapter, error)
	}

	// Importer persists a fetched catalog into the package cache.
	Importer interface {
		ImportPackages(ctx context.Context, pkgs []panels.Package) error
	}
)
