package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"revenda-crm/internal/stories/clients"
)

const clientsTable = "clients"

var clientRowFields = fields(clientRow{})

type clientRow struct {
	ID                 int64      `db:"id"`
	UserID             int64      `db:"user_id"`
	Name               string     `db:"name"`
	WhatsApp           string     `db:"whatsapp"`
	PlanID             int64      `db:"plan_id"`
	ExternalCustomerID string     `db:"external_customer_id"`
	DueDate            time.Time  `db:"due_date"`
	LastRenewedAt      *time.Time `db:"last_renewed_at"`
	LastRenewalNote    string     `db:"last_renewal_note"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

func (r clientRow) ToModel() *clients.Client {
	return &clients.Client{
		ID:                 r.ID,
		UserID:             r.UserID,
		Name:               r.Name,
		WhatsApp:           r.WhatsApp,
		PlanID:             r.PlanID,
		ExternalCustomerID: r.ExternalCustomerID,
		DueDate:            r.DueDate,
		LastRenewedAt:      r.LastRenewedAt,
		LastRenewalNote:    r.LastRenewalNote,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func (s *storageImpl) GetClient(ctx context.Context, criteria clients.GetCriteria) (*clients.Client, error) {
	query := s.stmpBuilder().
		Select(clientRowFields).
		From(clientsTable).
		Limit(1)

	if criteria.ID != nil {
		query = query.Where(sq.Eq{"id": *criteria.ID})
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, q, args...)

	var r clientRow
	err = row.Scan(
		&r.ID, &r.UserID, &r.Name, &r.WhatsApp, &r.PlanID,
		&r.ExternalCustomerID, &r.DueDate, &r.LastRenewedAt, &r.LastRenewalNote,
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

func (s *storageImpl) ListClients(ctx context.Context, criteria clients.ListCriteria) ([]*clients.Client, error) {
	query := s.stmpBuilder().
		Select(clientRowFields).
		From(clientsTable)

	if criteria.UserID != nil {
		query = query.Where(sq.Eq{"user_id": *criteria.UserID})
	}
	if criteria.PlanID != nil {
		query = query.Where(sq.Eq{"plan_id": *criteria.PlanID})
	}

	if criteria.Limit > 0 {
		query = query.Limit(uint64(criteria.Limit))
	}
	if criteria.Offset > 0 {
		query = query.Offset(uint64(criteria.Offset))
	}

	query = query.OrderBy("due_date ASC")

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	var result []*clients.Client
	for rows.Next() {
		var r clientRow
		err = rows.Scan(
			&r.ID, &r.UserID, &r.Name, &r.WhatsApp, &r.PlanID,
			&r.ExternalCustomerID, &r.DueDate, &r.LastRenewedAt, &r.LastRenewalNote,
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

func (s *storageImpl) UpdateClient(ctx context.Context, criteria clients.GetCriteria, params clients.UpdateParams) (*clients.Client, error) {
	query := s.stmpBuilder().
		Update(clientsTable).
		Set("updated_at", s.now())

	if criteria.ID != nil {
		query = query.Where(sq.Eq{"id": *criteria.ID})
	}

	if params.ExternalCustomerID != nil {
		query = query.Set("external_customer_id", *params.ExternalCustomerID)
	}
	if params.DueDate != nil {
		query = query.Set("due_date", *params.DueDate)
	}
	if params.LastRenewedAt != nil {
		query = query.Set("last_renewed_at", *params.LastRenewedAt)
	}
	if params.LastRenewalNote != nil {
		query = query.Set("last_renewal_note", *params.LastRenewalNote)
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	return s.GetClient(ctx, criteria)
}
