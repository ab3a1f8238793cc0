package credentials

import "context"

type (
	Storage interface {
		// GetCredentials returns the stored row with the password still
		// base64-encoded, nil when no row matches.
		GetCredentials(ctx context.Context, criteria GetCriteria) (*StoredCredentials, error)
		UpsertCredentials(ctx context.Context, creds StoredCredentials) (*StoredCredentials, error)
		ListCredentials(ctx context.Context) ([]*StoredCredentials, error)
	}
)
