package packages

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-faster/errors"
	"github.com/samber/lo"

	"revenda-crm/internal/metrics"
	"revenda-crm/internal/panels"
	"revenda-crm/internal/stories/plans"
)

// Service reconciles panel package catalogs against the local plan table.
// The protocol has two phases: CheckConflicts classifies a fetched batch,
// the operator picks a Resolution per conflict, Apply executes the batch
// best-effort with per-item isolation.
type Service struct {
	catalog PlanCatalog
	cache   Cache
	logger  *slog.Logger
}

func NewService(catalog PlanCatalog, cache Cache, logger *slog.Logger) *Service {
	return &Service{
		catalog: catalog,
		cache:   cache,
		logger:  logger,
	}
}

// ImportPackages stores a freshly fetched catalog so codes stay resolvable
// between the check and apply phases.
func (s *Service) ImportPackages(ctx context.Context, pkgs []panels.Package) error {
	if len(pkgs) == 0 {
		return nil
	}
	if err := s.cache.UpsertPanelPackages(ctx, pkgs); err != nil {
		return errors.Wrap(err, "upsert panel packages")
	}

	s.logger.Info("Imported panel packages",
		"panel", pkgs[0].Panel,
		"domain", pkgs[0].Domain,
		"count", len(pkgs))

	return nil
}

// CheckConflicts splits the requested codes into packages that collide with
// an existing plan and packages new to the catalog. Unknown codes fail the
// whole check: they mean the operator is working off a stale fetch.
func (s *Service) CheckConflicts(ctx context.Context, panel panels.Panel, domain string, codes []string) (*Report, error) {
	report := &Report{}

	for _, code := range codes {
		pkg, err := s.cache.GetPanelPackage(ctx, panel, domain, code)
		if err != nil {
			return nil, errors.Wrap(err, "get panel package")
		}
		if pkg == nil {
			return nil, errors.Errorf("package %q not found for %s/%s; re-run the fetch", code, panel, domain)
		}

		plan, err := s.catalog.FindPlanByPanelCode(ctx, panel, domain, code)
		if err != nil {
			return nil, errors.Wrap(err, "find plan by panel code")
		}

		if plan != nil {
			report.Conflicts = append(report.Conflicts, ConflictRecord{Package: *pkg, Plan: plan})
		} else {
			report.New = append(report.New, *pkg)
		}
	}

	return report, nil
}

// Apply executes the batch. Each package is applied independently; one
// item's failure lands in Summary.Errors and never aborts the rest. A
// missing resolution defaults to create, which duplicates the catalog entry
// when the code already maps to a plan; re-run CheckConflicts to catch that
// before applying.
func (s *Service) Apply(ctx context.Context, panel panels.Panel, domain string, codes []string, resolutions map[string]Resolution) (*Summary, error) {
	summary := &Summary{}

	for _, code := range codes {
		outcome := s.applyOne(ctx, panel, domain, code, resolutions[code], summary)
		metrics.ReconciliationItemsTotal.WithLabelValues(string(panel), outcome).Inc()
	}

	if len(summary.Errors) > 0 {
		s.logger.Warn("Reconciliation finished with item failures",
			"panel", panel,
			"domain", domain,
			"created", summary.Created,
			"updated", summary.Updated,
			"errors", len(summary.Errors))
	}

	return summary, nil
}

func (s *Service) applyOne(ctx context.Context, panel panels.Panel, domain, code string, resolution Resolution, summary *Summary) string {
	fail := func(errCode, message string) string {
		summary.Errors = append(summary.Errors, ItemError{PackageCode: code, Code: errCode, Message: message})
		return "error"
	}

	pkg, err := s.cache.GetPanelPackage(ctx, panel, domain, code)
	if err != nil {
		return fail(ErrStorageFailure, err.Error())
	}
	if pkg == nil {
		return fail(ErrUnknownPackage, "not present in the fetched catalog")
	}

	if resolution.Action == "" {
		resolution.Action = ActionCreate
	}

	switch resolution.Action {
	case ActionCreate:
		integration, err := plans.IntegrationFor(panel, domain, code)
		if err != nil {
			return fail(ErrStorageFailure, err.Error())
		}

		_, err = s.catalog.CreatePlan(ctx, plans.Plan{
			Name:           pkg.Name,
			DurationMonths: pkg.DurationMonths,
			Screens:        pkg.Screens,
			Integration:    integration,
		})
		if err != nil {
			return fail(ErrStorageFailure, err.Error())
		}

		summary.Created++
		return "created"

	case ActionReplace:
		if resolution.TargetPlanID == 0 {
			return fail(ErrInvalidResolution, "replace requires a target plan")
		}

		integration, err := plans.IntegrationFor(panel, domain, code)
		if err != nil {
			return fail(ErrStorageFailure, err.Error())
		}

		_, err = s.catalog.UpdatePlan(ctx,
			plans.GetCriteria{ID: &resolution.TargetPlanID},
			plans.UpdateParams{
				Name:           lo.ToPtr(pkg.Name),
				DurationMonths: lo.ToPtr(pkg.DurationMonths),
				Screens:        lo.ToPtr(pkg.Screens),
				Integration:    integration,
			})
		if err != nil {
			return fail(ErrStorageFailure, err.Error())
		}

		summary.Updated++
		return "updated"

	default:
		return fail(ErrInvalidResolution, fmt.Sprintf("unknown action %q", resolution.Action))
	}
}
