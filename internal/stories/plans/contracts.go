package plans

import (
	"context"

	"revenda-crm/internal/panels"
)

type (
	Storage interface {
		CreatePlan(ctx context.Context, plan Plan) (*Plan, error)
		GetPlan(ctx context.Context, criteria GetCriteria) (*Plan, error)
		UpdatePlan(ctx context.Context, criteria GetCriteria, params UpdateParams) (*Plan, error)
		ListPlans(ctx context.Context, criteria ListCriteria) ([]*Plan, error)
		DeletePlan(ctx context.Context, criteria DeleteCriteria) error

		// FindPlanByPanelCode looks up the plan stamped with the given
		// (panel, domain, package code) tuple, nil when none exists.
		FindPlanByPanelCode(ctx context.Context, panel panels.Panel, domain, code string) (*Plan, error)
	}
)
