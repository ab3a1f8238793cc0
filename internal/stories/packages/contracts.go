package packages

import (
	"context"

	"revenda-crm/internal/panels"
	"revenda-crm/internal/stories/plans"
)

type (
	// PlanCatalog is the slice of plan storage the reconciliation engine
	// touches. It writes through storage directly: an imported Koffice plan
	// legitimately lacks a reseller id until the operator supplies one, so
	// the plans service's full-variant validation does not apply here.
	PlanCatalog interface {
		CreatePlan(ctx context.Context, plan plans.Plan) (*plans.Plan, error)
		UpdatePlan(ctx context.Context, criteria plans.GetCriteria, params plans.UpdateParams) (*plans.Plan, error)
		FindPlanByPanelCode(ctx context.Context, panel panels.Panel, domain, code string) (*plans.Plan, error)
	}

	// Cache persists fetched panel packages between the check and apply
	// phases of a reconciliation.
	Cache interface {
		UpsertPanelPackages(ctx context.Context, pkgs []panels.Package) error
		GetPanelPackage(ctx context.Context, panel panels.Panel, domain, code string) (*panels.Package, error)
		ListPanelPackages(ctx context.Context, panel panels.Panel, domain string) ([]panels.Package, error)
	}
)
