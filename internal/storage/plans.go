package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"revenda-crm/internal/panels"
	"revenda-crm/internal/stories/plans"
)

const plansTable = "plans"

var planRowFields = fields(planRow{})

// planRow carries the production schema's mutually exclusive boolean
// integration flags. The flags exist only at this boundary; everywhere
// above, a plan holds a single IntegrationKind.
type planRow struct {
	ID                int64     `db:"id"`
	Name              string    `db:"name"`
	DurationMonths    int       `db:"duration_months"`
	Screens           int       `db:"screens"`
	Price             float64   `db:"price"`
	IsSigma           bool      `db:"is_sigma"`
	IsLive21          bool      `db:"is_live21"`
	IsKoffice         bool      `db:"is_koffice"`
	IsUniplay         bool      `db:"is_uniplay"`
	IsUniTV           bool      `db:"is_unitv"`
	IsRush            bool      `db:"is_rush"`
	IsClub            bool      `db:"is_club"`
	IsPainelFoda      bool      `db:"is_painelfoda"`
	PanelDomain       string    `db:"panel_domain"`
	PanelPackageCode  string    `db:"panel_package_code"`
	KofficeResellerID string    `db:"koffice_reseller_id"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (r planRow) ToModel() *plans.Plan {
	return &plans.Plan{
		ID:             r.ID,
		Name:           r.Name,
		DurationMonths: r.DurationMonths,
		Screens:        r.Screens,
		Price:          r.Price,
		Integration:    r.decodeIntegration(),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// decodeIntegration maps the legacy flag columns onto the variant type.
// Rows written before validation existed can carry two or more flags; those
// decode to Ambiguous so the dispatcher surfaces them instead of guessing.
func (r planRow) decodeIntegration() plans.IntegrationKind {
	set := 0
	for _, flag := range []bool{
		r.IsSigma, r.IsLive21, r.IsKoffice, r.IsUniplay,
		r.IsUniTV, r.IsRush, r.IsClub, r.IsPainelFoda,
	} {
		if flag {
			set++
		}
	}

	switch {
	case set == 0:
		return plans.None{}
	case set > 1:
		return plans.Ambiguous{}
	}

	switch {
	case r.IsSigma:
		return plans.Sigma{Domain: r.PanelDomain, PackageCode: r.PanelPackageCode}
	case r.IsLive21:
		return plans.Live21{Domain: r.PanelDomain}
	case r.IsKoffice:
		return plans.Koffice{Domain: r.PanelDomain, PackageCode: r.PanelPackageCode, ResellerID: r.KofficeResellerID}
	case r.IsUniplay:
		return plans.Uniplay{Domain: r.PanelDomain, PackageCode: r.PanelPackageCode}
	case r.IsUniTV:
		return plans.UniTV{Domain: r.PanelDomain, PackageCode: r.PanelPackageCode}
	case r.IsRush:
		return plans.Rush{Domain: r.PanelDomain, PackageCode: r.PanelPackageCode}
	case r.IsClub:
		return plans.Club{Domain: r.PanelDomain, PackageCode: r.PanelPackageCode}
	default:
		return plans.PainelFoda{Domain: r.PanelDomain, PackageCode: r.PanelPackageCode}
	}
}

// integrationColumns encodes a variant back into the flag columns. Exactly
// one flag comes out true for panel variants, all false for None; Ambiguous
// is decoder-only and never reaches a write.
func integrationColumns(kind plans.IntegrationKind) map[string]interface{} {
	cols := map[string]interface{}{
		"is_sigma":            false,
		"is_live21":           false,
		"is_koffice":          false,
		"is_uniplay":          false,
		"is_unitv":            false,
		"is_rush":             false,
		"is_club":             false,
		"is_painelfoda":       false,
		"panel_domain":        plans.Domain(kind),
		"panel_package_code":  plans.PackageCode(kind),
		"koffice_reseller_id": "",
	}

	switch k := kind.(type) {
	case plans.Sigma:
		cols["is_sigma"] = true
	case plans.Live21:
		cols["is_live21"] = true
	case plans.Koffice:
		cols["is_koffice"] = true
		cols["koffice_reseller_id"] = k.ResellerID
	case plans.Uniplay:
		cols["is_uniplay"] = true
	case plans.UniTV:
		cols["is_unitv"] = true
	case plans.Rush:
		cols["is_rush"] = true
	case plans.Club:
		cols["is_club"] = true
	case plans.PainelFoda:
		cols["is_painelfoda"] = true
	}

	return cols
}

func panelFlagColumn(panel panels.Panel) string {
	switch panel {
	case panels.PanelSigma:
		return "is_sigma"
	case panels.PanelLive21:
		return "is_live21"
	case panels.PanelKoffice:
		return "is_koffice"
	case panels.PanelUniplay:
		return "is_uniplay"
	case panels.PanelUniTV:
		return "is_unitv"
	case panels.PanelRush:
		return "is_rush"
	case panels.PanelClub:
		return "is_club"
	case panels.PanelPainelFoda:
		return "is_painelfoda"
	default:
		return ""
	}
}

func (s *storageImpl) CreatePlan(ctx context.Context, plan plans.Plan) (*plans.Plan, error) {
	params := map[string]interface{}{
		"name":            plan.Name,
		"duration_months": plan.DurationMonths,
		"screens":         plan.Screens,
		"price":           plan.Price,
		"created_at":      s.now(),
		"updated_at":      s.now(),
	}
	kind := plan.Integration
	if kind == nil {
		kind = plans.None{}
	}
	for col, val := range integrationColumns(kind) {
		params[col] = val
	}

	q, args, err := s.stmpBuilder().
		Insert(plansTable).
		SetMap(params).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("result.LastInsertId: %w", err)
	}

	return s.GetPlan(ctx, plans.GetCriteria{ID: &id})
}

func (s *storageImpl) GetPlan(ctx context.Context, criteria plans.GetCriteria) (*plans.Plan, error) {
	query := s.stmpBuilder().
		Select(planRowFields).
		From(plansTable).
		Limit(1)

	if criteria.ID != nil {
		query = query.Where(sq.Eq{"id": *criteria.ID})
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, q, args...)

	var r planRow
	err = row.Scan(
		&r.ID, &r.Name, &r.DurationMonths, &r.Screens, &r.Price,
		&r.IsSigma, &r.IsLive21, &r.IsKoffice, &r.IsUniplay, &r.IsUniTV,
		&r.IsRush, &r.IsClub, &r.IsPainelFoda,
		&r.PanelDomain, &r.PanelPackageCode, &r.KofficeResellerID,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	return r.ToModel(), nil
}

func (s *storageImpl) UpdatePlan(ctx context.Context, criteria plans.GetCriteria, params plans.UpdateParams) (*plans.Plan, error) {
	query := s.stmpBuilder().
		Update(plansTable).
		Set("updated_at", s.now())

	if criteria.ID != nil {
		query = query.Where(sq.Eq{"id": *criteria.ID})
	}

	if params.Name != nil {
		query = query.Set("name", *params.Name)
	}
	if params.DurationMonths != nil {
		query = query.Set("duration_months", *params.DurationMonths)
	}
	if params.Screens != nil {
		query = query.Set("screens", *params.Screens)
	}
	if params.Price != nil {
		query = query.Set("price", *params.Price)
	}
	if params.Integration != nil {
		for col, val := range integrationColumns(params.Integration) {
			query = query.Set(col, val)
		}
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	return s.GetPlan(ctx, criteria)
}

func (s *storageImpl) ListPlans(ctx context.Context, criteria plans.ListCriteria) ([]*plans.Plan, error) {
	query := s.stmpBuilder().
		Select(planRowFields).
		From(plansTable)

	if criteria.Panel != nil {
		if col := panelFlagColumn(*criteria.Panel); col != "" {
			query = query.Where(sq.Eq{col: true})
		}
	}

	if criteria.Limit > 0 {
		query = query.Limit(uint64(criteria.Limit))
	}
	if criteria.Offset > 0 {
		query = query.Offset(uint64(criteria.Offset))
	}

	query = query.OrderBy("created_at DESC")

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	var result []*plans.Plan
	for rows.Next() {
		var r planRow
		err = rows.Scan(
			&r.ID, &r.Name, &r.DurationMonths, &r.Screens, &r.Price,
			&r.IsSigma, &r.IsLive21, &r.IsKoffice, &r.IsUniplay, &r.IsUniTV,
			&r.IsRush, &r.IsClub, &r.IsPainelFoda,
			&r.PanelDomain, &r.PanelPackageCode, &r.KofficeResellerID,
			&r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		result = append(result, r.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return result, nil
}

func (s *storageImpl) DeletePlan(ctx context.Context, criteria plans.DeleteCriteria) error {
	query := s.stmpBuilder().Delete(plansTable)

	if criteria.ID != nil {
		query = query.Where(sq.Eq{"id": *criteria.ID})
	}

	q, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build sql query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}

	return nil
}

func (s *storageImpl) FindPlanByPanelCode(ctx context.Context, panel panels.Panel, domain, code string) (*plans.Plan, error) {
	col := panelFlagColumn(panel)
	if col == "" {
		return nil, fmt.Errorf("unknown panel %q", panel)
	}

	query := s.stmpBuilder().
		Select(planRowFields).
		From(plansTable).
		Where(sq.Eq{col: true}).
		Where(sq.Eq{"panel_domain": domain}).
		Limit(1)

	// Live21 plans carry no package code; domain alone identifies them.
	if panel != panels.PanelLive21 {
		query = query.Where(sq.Eq{"panel_package_code": code})
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, q, args...)

	var r planRow
	err = row.Scan(
		&r.ID, &r.Name, &r.DurationMonths, &r.Screens, &r.Price,
		&r.IsSigma, &r.IsLive21, &r.IsKoffice, &r.IsUniplay, &r.IsUniTV,
		&r.IsRush, &r.IsClub, &r.IsPainelFoda,
		&r.PanelDomain, &r.PanelPackageCode, &r.KofficeResellerID,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	return r.ToModel(), nil
}
