package renewalqueue

import (
	"context"

	"revenda-crm/internal/stories/clients"
	"revenda-crm/internal/stories/plans"
	"revenda-crm/internal/stories/renewal"
)

type (
	// Queue drains and finalizes pending renewal jobs.
	Queue interface {
		Pending(ctx context.Context, limit int) ([]*renewal.Job, error)
		Claim(ctx context.Context, jobID int64) (bool, error)
		Finish(ctx context.Context, jobID int64, result renewal.Result) (*renewal.Job, error)
	}

	// Dispatcher runs one panel renewal end to end.
	Dispatcher interface {
		Dispatch(ctx context.Context, client *clients.Client, plan *plans.Plan, payment renewal.PaymentContext) renewal.Result
	}

	// Storage provides the record lookups a job needs before dispatch.
	Storage interface {
		GetClient(ctx context.Context, criteria clients.GetCriteria) (*clients.Client, error)
		GetPlan(ctx context.Context, criteria plans.GetCriteria) (*plans.Plan, error)
	}
)
