package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"revenda-crm/internal/stories/renewal"
)

const renewalJobsTable = "renewal_jobs"

var renewalJobRowFields = fields(renewalJobRow{})

type renewalJobRow struct {
	ID        int64     `db:"id"`
	JobKey    string    `db:"job_key"`
	ClientID  int64     `db:"client_id"`
	PlanID    int64     `db:"plan_id"`
	PaymentID int64     `db:"payment_id"`
	Amount    float64   `db:"amount"`
	Status    string    `db:"status"`
	Outcome   string    `db:"outcome"`
	LastError string    `db:"last_error"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r renewalJobRow) ToModel() *renewal.Job {
	return &renewal.Job{
		ID:        r.ID,
		Key:       r.JobKey,
		ClientID:  r.ClientID,
		PlanID:    r.PlanID,
		PaymentID: r.PaymentID,
		Amount:    r.Amount,
		Status:    renewal.JobStatus(r.Status),
		Outcome:   r.Outcome,
		LastError: r.LastError,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (s *storageImpl) CreateRenewalJob(ctx context.Context, job renewal.Job) (*renewal.Job, error) {
	q, args, err := s.stmpBuilder().
		Insert(renewalJobsTable).
		SetMap(map[string]interface{}{
			"job_key":    job.Key,
			"client_id":  job.ClientID,
			"plan_id":    job.PlanID,
			"payment_id": job.PaymentID,
			"amount":     job.Amount,
			"status":     string(job.Status),
			"outcome":    "",
			"last_error": "",
			"created_at": s.now(),
			"updated_at": s.now(),
		}).
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

	return s.getRenewalJob(ctx, id)
}

func (s *storageImpl) getRenewalJob(ctx context.Context, id int64) (*renewal.Job, error) {
	q, args, err := s.stmpBuilder().
		Select(renewalJobRowFields).
		From(renewalJobsTable).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, q, args...)

	var r renewalJobRow
	err = row.Scan(
		&r.ID, &r.JobKey, &r.ClientID, &r.PlanID, &r.PaymentID,
		&r.Amount, &r.Status, &r.Outcome, &r.LastError,
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

// ListPendingRenewalJobs returns jobs in enqueue order so a backlog drains
// oldest first.
func (s *storageImpl) ListPendingRenewalJobs(ctx context.Context, limit int) ([]*renewal.Job, error) {
	query := s.stmpBuilder().
		Select(renewalJobRowFields).
		From(renewalJobsTable).
		Where(sq.Eq{"status": string(renewal.JobStatusPending)}).
		OrderBy("created_at ASC")

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	var result []*renewal.Job
	for rows.Next() {
		var r renewalJobRow
		err = rows.Scan(
			&r.ID, &r.JobKey, &r.ClientID, &r.PlanID, &r.PaymentID,
			&r.Amount, &r.Status, &r.Outcome, &r.LastError,
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

// ClaimRenewalJob is the conditional update the drain worker uses to take
// ownership of a job. Only one pass can win: the status guard makes the
// flip atomic, so overlapping passes never dispatch the same job twice.
func (s *storageImpl) ClaimRenewalJob(ctx context.Context, jobID int64) (bool, error) {
	q, args, err := s.stmpBuilder().
		Update(renewalJobsTable).
		Set("status", string(renewal.JobStatusRunning)).
		Set("updated_at", s.now()).
		Where(sq.Eq{
			"id":     jobID,
			"status": string(renewal.JobStatusPending),
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build sql query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("db.ExecContext: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("result.RowsAffected: %w", err)
	}

	return affected == 1, nil
}

func (s *storageImpl) UpdateRenewalJob(ctx context.Context, jobID int64, params renewal.JobUpdateParams) (*renewal.Job, error) {
	query := s.stmpBuilder().
		Update(renewalJobsTable).
		Set("updated_at", s.now()).
		Where(sq.Eq{"id": jobID})

	if params.Status != nil {
		query = query.Set("status", string(*params.Status))
	}
	if params.Outcome != nil {
		query = query.Set("outcome", *params.Outcome)
	}
	if params.LastError != nil {
		query = query.Set("last_error", *params.LastError)
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	return s.getRenewalJob(ctx, jobID)
}
