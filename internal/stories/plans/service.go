package plans

import (
	"context"

	"github.com/go-faster/errors"

	"revenda-crm/internal/panels"
)

// Service provides business logic for plan operations
type Service struct {
	storage Storage
}

// NewService creates a new plan service
func NewService(storage Storage) *Service {
	return &Service{
		storage: storage,
	}
}

// Create persists a plan after validating its integration variant. A plan
// with a panel variant missing required configuration never reaches the
// database; the "at most one integration" invariant holds by construction
// of IntegrationKind.
func (s *Service) Create(ctx context.Context, plan Plan) (*Plan, error) {
	if err := validateIntegration(plan.Integration); err != nil {
		return nil, err
	}
	if plan.DurationMonths <= 0 {
		return nil, errors.New("duration must be at least one month")
	}

	return s.storage.CreatePlan(ctx, plan)
}

func (s *Service) Update(ctx context.Context, planID int64, params UpdateParams) (*Plan, error) {
	if params.Integration != nil {
		if err := validateIntegration(params.Integration); err != nil {
			return nil, err
		}
	}

	return s.storage.UpdatePlan(ctx, GetCriteria{ID: &planID}, params)
}

func (s *Service) Get(ctx context.Context, planID int64) (*Plan, error) {
	return s.storage.GetPlan(ctx, GetCriteria{ID: &planID})
}

func (s *Service) List(ctx context.Context, criteria ListCriteria) ([]*Plan, error) {
	return s.storage.ListPlans(ctx, criteria)
}

func (s *Service) Delete(ctx context.Context, planID int64) error {
	return s.storage.DeletePlan(ctx, DeleteCriteria{ID: &planID})
}

// FindByPanelCode resolves the local plan a panel package maps onto.
func (s *Service) FindByPanelCode(ctx context.Context, panel panels.Panel, domain, code string) (*Plan, error) {
	return s.storage.FindPlanByPanelCode(ctx, panel, domain, code)
}

func validateIntegration(kind IntegrationKind) error {
	if kind == nil {
		return errors.New("integration must be set; use None for local-only plans")
	}
	if err := kind.Validate(); err != nil {
		return errors.Wrap(err, "invalid integration config")
	}
	return nil
}
