package clients

import "context"

type (
	Storage interface {
		GetClient(ctx context.Context, criteria GetCriteria) (*Client, error)
		ListClients(ctx context.Context, criteria ListCriteria) ([]*Client, error)
		UpdateClient(ctx context.Context, criteria GetCriteria, params UpdateParams) (*Client, error)
	}
)
