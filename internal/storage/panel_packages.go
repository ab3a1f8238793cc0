package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"revenda-crm/internal/panels"
)

const panelPackagesTable = "panel_packages"

var panelPackageRowFields = fields(panelPackageRow{})

type panelPackageRow struct {
	Panel          string    `db:"panel"`
	Domain         string    `db:"domain"`
	Code           string    `db:"code"`
	Name           string    `db:"name"`
	DurationMonths int       `db:"duration_months"`
	Screens        int       `db:"screens"`
	FetchedAt      time.Time `db:"fetched_at"`
}

func (r panelPackageRow) ToModel() panels.Package {
	return panels.Package{
		Panel:          panels.Panel(r.Panel),
		Domain:         r.Domain,
		Code:           r.Code,
		Name:           r.Name,
		DurationMonths: r.DurationMonths,
		Screens:        r.Screens,
	}
}

// UpsertPanelPackages refreshes the cached catalog. Keyed on
// (panel, domain, code); re-fetching the same code overwrites in place.
func (s *storageImpl) UpsertPanelPackages(ctx context.Context, pkgs []panels.Package) error {
	for _, pkg := range pkgs {
		q, args, err := s.stmpBuilder().
			Insert(panelPackagesTable).
			SetMap(map[string]interface{}{
				"panel":           string(pkg.Panel),
				"domain":          pkg.Domain,
				"code":            pkg.Code,
				"name":            pkg.Name,
				"duration_months": pkg.DurationMonths,
				"screens":         pkg.Screens,
				"fetched_at":      s.now(),
			}).
			Suffix("ON CONFLICT(panel, domain, code) DO UPDATE SET name = excluded.name, duration_months = excluded.duration_months, screens = excluded.screens, fetched_at = excluded.fetched_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build sql query: %w", err)
		}

		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}
	}

	return nil
}

func (s *storageImpl) GetPanelPackage(ctx context.Context, panel panels.Panel, domain, code string) (*panels.Package, error) {
	q, args, err := s.stmpBuilder().
		Select(panelPackageRowFields).
		From(panelPackagesTable).
		Where(sq.Eq{"panel": string(panel)}).
		Where(sq.Eq{"domain": domain}).
		Where(sq.Eq{"code": code}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, q, args...)

	var r panelPackageRow
	err = row.Scan(&r.Panel, &r.Domain, &r.Code, &r.Name, &r.DurationMonths, &r.Screens, &r.FetchedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	pkg := r.ToModel()
	return &pkg, nil
}

func (s *storageImpl) ListPanelPackages(ctx context.Context, panel panels.Panel, domain string) ([]panels.Package, error) {
	q, args, err := s.stmpBuilder().
		Select(panelPackageRowFields).
		From(panelPackagesTable).
		Where(sq.Eq{"panel": string(panel)}).
		Where(sq.Eq{"domain": domain}).
		OrderBy("code ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	var result []panels.Package
	for rows.Next() {
		var r panelPackageRow
		err = rows.Scan(&r.Panel, &r.Domain, &r.Code, &r.Name, &r.DurationMonths, &r.Screens, &r.FetchedAt)
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
