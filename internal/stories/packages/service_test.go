package packages

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-faster/errors"

	"revenda-crm/internal/panels"
	"revenda-crm/internal/stories/plans"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type catalogStub struct {
	existing  map[string]*plans.Plan // keyed by code
	created   []plans.Plan
	updated   map[int64]plans.UpdateParams
	createErr map[string]error // keyed by package name
}

func (c *catalogStub) CreatePlan(_ context.Context, plan plans.Plan) (*plans.Plan, error) {
	if err := c.createErr[plan.Name]; err != nil {
		return nil, err
	}
	plan.ID = int64(len(c.created) + 100)
	c.created = append(c.created, plan)
	return &plan, nil
}

func (c *catalogStub) UpdatePlan(_ context.Context, criteria plans.GetCriteria, params plans.UpdateParams) (*plans.Plan, error) {
	if c.updated == nil {
		c.updated = make(map[int64]plans.UpdateParams)
	}
	c.updated[*criteria.ID] = params
	return &plans.Plan{ID: *criteria.ID}, nil
}

func (c *catalogStub) FindPlanByPanelCode(_ context.Context, _ panels.Panel, _, code string) (*plans.Plan, error) {
	return c.existing[code], nil
}

type cacheStub struct {
	pkgs     map[string]panels.Package // keyed by code
	upserted [][]panels.Package
}

func (c *cacheStub) UpsertPanelPackages(_ context.Context, pkgs []panels.Package) error {
	c.upserted = append(c.upserted, pkgs)
	return nil
}

func (c *cacheStub) GetPanelPackage(_ context.Context, _ panels.Panel, _, code string) (*panels.Package, error) {
	pkg, ok := c.pkgs[code]
	if !ok {
		return nil, nil
	}
	return &pkg, nil
}

func (c *cacheStub) ListPanelPackages(_ context.Context, _ panels.Panel, _ string) ([]panels.Package, error) {
	var out []panels.Package
	for _, pkg := range c.pkgs {
		out = append(out, pkg)
	}
	return out, nil
}

func sigmaPackage(code, name string, months int) panels.Package {
	return panels.Package{
		Panel:          panels.PanelSigma,
		Domain:         "painel.example.com",
		Code:           code,
		Name:           name,
		DurationMonths: months,
		Screens:        2,
	}
}

func newService(catalog *catalogStub, cache *cacheStub) *Service {
	return NewService(catalog, cache, testLogger())
}

func TestCheckConflictsClassifiesBatch(t *testing.T) {
	catalog := &catalogStub{
		existing: map[string]*plans.Plan{
			"A": {ID: 7, Name: "Mensal"},
		},
	}
	cache := &cacheStub{pkgs: map[string]panels.Package{
		"A": sigmaPackage("A", "Mensal Premium", 1),
		"B": sigmaPackage("B", "Trimestral", 3),
	}}
	svc := newService(catalog, cache)

	report, err := svc.CheckConflicts(context.Background(), panels.PanelSigma, "painel.example.com", []string{"A", "B"})
	if err != nil {
		t.Fatalf("CheckConflicts() error = %v", err)
	}

	if len(report.Conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1", len(report.Conflicts))
	}
	if report.Conflicts[0].Package.Code != "A" || report.Conflicts[0].Plan.ID != 7 {
		t.Errorf("conflict = %s -> plan %d, want A -> 7", report.Conflicts[0].Package.Code, report.Conflicts[0].Plan.ID)
	}
	if len(report.New) != 1 || report.New[0].Code != "B" {
		t.Errorf("new = %+v, want [B]", report.New)
	}
}

func TestCheckConflictsRejectsStaleCode(t *testing.T) {
	svc := newService(&catalogStub{}, &cacheStub{pkgs: map[string]panels.Package{}})

	_, err := svc.CheckConflicts(context.Background(), panels.PanelSigma, "painel.example.com", []string{"gone"})
	if err == nil {
		t.Fatal("expected error for code missing from the cache")
	}
	if !strings.Contains(err.Error(), "gone") {
		t.Errorf("error should name the code: %v", err)
	}
}

func TestApplyCreateAndReplace(t *testing.T) {
	catalog := &catalogStub{}
	cache := &cacheStub{pkgs: map[string]panels.Package{
		"A": sigmaPackage("A", "Mensal Premium", 1),
		"B": sigmaPackage("B", "Trimestral", 3),
	}}
	svc := newService(catalog, cache)

	summary, err := svc.Apply(context.Background(), panels.PanelSigma, "painel.example.com",
		[]string{"A", "B"},
		map[string]Resolution{
			"A": {Action: ActionReplace, TargetPlanID: 7},
			"B": {Action: ActionCreate},
		})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if summary.Created != 1 || summary.Updated != 1 || len(summary.Errors) != 0 {
		t.Fatalf("summary = %+v, want created=1 updated=1 no errors", summary)
	}

	params := catalog.updated[7]
	if params.Name == nil || *params.Name != "Mensal Premium" {
		t.Errorf("plan 7 name = %v, want Mensal Premium", params.Name)
	}
	if params.DurationMonths == nil || *params.DurationMonths != 1 {
		t.Errorf("plan 7 duration = %v, want 1", params.DurationMonths)
	}
	if _, ok := params.Integration.(plans.Sigma); !ok {
		t.Errorf("plan 7 integration = %T, want plans.Sigma", params.Integration)
	}

	if len(catalog.created) != 1 {
		t.Fatalf("created plans = %d, want 1", len(catalog.created))
	}
	created := catalog.created[0]
	if created.Name != "Trimestral" || created.DurationMonths != 3 {
		t.Errorf("created plan = %+v", created)
	}
	sigma, ok := created.Integration.(plans.Sigma)
	if !ok || sigma.PackageCode != "B" {
		t.Errorf("created integration = %+v, want sigma code B", created.Integration)
	}
}

func TestApplyDefaultsMissingResolutionToCreate(t *testing.T) {
	catalog := &catalogStub{}
	cache := &cacheStub{pkgs: map[string]panels.Package{
		"A": sigmaPackage("A", "Mensal", 1),
	}}
	svc := newService(catalog, cache)

	summary, err := svc.Apply(context.Background(), panels.PanelSigma, "painel.example.com", []string{"A"}, nil)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if summary.Created != 1 {
		t.Errorf("created = %d, want 1 via default action", summary.Created)
	}
}

func TestApplyReplaceWithoutTargetFailsItemOnly(t *testing.T) {
	catalog := &catalogStub{}
	cache := &cacheStub{pkgs: map[string]panels.Package{
		"A": sigmaPackage("A", "Mensal", 1),
		"B": sigmaPackage("B", "Trimestral", 3),
	}}
	svc := newService(catalog, cache)

	summary, err := svc.Apply(context.Background(), panels.PanelSigma, "painel.example.com",
		[]string{"A", "B"},
		map[string]Resolution{
			"A": {Action: ActionReplace},
			"B": {Action: ActionCreate},
		})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if len(summary.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(summary.Errors))
	}
	if summary.Errors[0].Code != ErrInvalidResolution {
		t.Errorf("error code = %s, want %s", summary.Errors[0].Code, ErrInvalidResolution)
	}
	if summary.Errors[0].PackageCode != "A" {
		t.Errorf("error package code = %q, want A", summary.Errors[0].PackageCode)
	}
	if len(catalog.updated) != 0 {
		t.Errorf("no plan row may be touched for the failed item")
	}
	if summary.Created != 1 {
		t.Errorf("created = %d, want 1; B must still apply", summary.Created)
	}
}

func TestApplyItemFailureDoesNotAbortBatch(t *testing.T) {
	catalog := &catalogStub{
		createErr: map[string]error{"Mensal": errors.New("plan deleted concurrently")},
	}
	cache := &cacheStub{pkgs: map[string]panels.Package{
		"A": sigmaPackage("A", "Mensal", 1),
		"B": sigmaPackage("B", "Trimestral", 3),
	}}
	svc := newService(catalog, cache)

	summary, err := svc.Apply(context.Background(), panels.PanelSigma, "painel.example.com",
		[]string{"A", "B"}, nil)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if summary.Created != 1 || len(summary.Errors) != 1 {
		t.Fatalf("summary = %+v, want created=1 errors=1", summary)
	}
}

func TestApplyCreateIsNotIdempotent(t *testing.T) {
	catalog := &catalogStub{}
	cache := &cacheStub{pkgs: map[string]panels.Package{
		"A": sigmaPackage("A", "Mensal", 1),
	}}
	svc := newService(catalog, cache)

	for i := 0; i < 2; i++ {
		if _, err := svc.Apply(context.Background(), panels.PanelSigma, "painel.example.com",
			[]string{"A"}, map[string]Resolution{"A": {Action: ActionCreate}}); err != nil {
			t.Fatalf("Apply() #%d error = %v", i+1, err)
		}
	}

	// Two distinct rows for the same code. Deliberate: dedup belongs to the
	// check phase, not the apply phase.
	if len(catalog.created) != 2 {
		t.Errorf("created rows = %d, want 2", len(catalog.created))
	}
}
