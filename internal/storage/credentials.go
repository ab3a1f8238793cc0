package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"revenda-crm/internal/panels"
	"revenda-crm/internal/stories/credentials"
)

const panelCredentialsTable = "panel_credentials"

var credentialRowFields = fields(credentialRow{})

type credentialRow struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Panel     string    `db:"panel"`
	Domain    string    `db:"domain"`
	Username  string    `db:"username"`
	Password  string    `db:"password"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r credentialRow) ToModel() *credentials.StoredCredentials {
	return &credentials.StoredCredentials{
		ID:        r.ID,
		UserID:    r.UserID,
		Panel:     panels.Panel(r.Panel),
		Domain:    r.Domain,
		Username:  r.Username,
		Password:  r.Password,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (s *storageImpl) GetCredentials(ctx context.Context, criteria credentials.GetCriteria) (*credentials.StoredCredentials, error) {
	query := s.stmpBuilder().
		Select(credentialRowFields).
		From(panelCredentialsTable).
		Where(sq.Eq{"user_id": criteria.UserID}).
		Where(sq.Eq{"panel": string(criteria.Panel)}).
		Limit(1)

	if criteria.Domain != "" {
		query = query.Where(sq.Eq{"domain": criteria.Domain})
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, q, args...)

	var r credentialRow
	err = row.Scan(&r.ID, &r.UserID, &r.Panel, &r.Domain, &r.Username, &r.Password, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	return r.ToModel(), nil
}

// ListCredentials returns every stored panel login. Each row names a
// reachable panel deployment; the package refresh worker iterates them.
func (s *storageImpl) ListCredentials(ctx context.Context) ([]*credentials.StoredCredentials, error) {
	q, args, err := s.stmpBuilder().
		Select(credentialRowFields).
		From(panelCredentialsTable).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	var result []*credentials.StoredCredentials
	for rows.Next() {
		var r credentialRow
		err = rows.Scan(&r.ID, &r.UserID, &r.Panel, &r.Domain, &r.Username, &r.Password, &r.CreatedAt, &r.UpdatedAt)
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

func (s *storageImpl) UpsertCredentials(ctx context.Context, creds credentials.StoredCredentials) (*credentials.StoredCredentials, error) {
	existing, err := s.GetCredentials(ctx, credentials.GetCriteria{
		UserID: creds.UserID,
		Panel:  creds.Panel,
		Domain: creds.Domain,
	})
	if err != nil {
		return nil, err
	}

	if existing != nil {
		q, args, err := s.stmpBuilder().
			Update(panelCredentialsTable).
			Set("username", creds.Username).
			Set("password", creds.Password).
			Set("updated_at", s.now()).
			Where(sq.Eq{"id": existing.ID}).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build sql query: %w", err)
		}

		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return nil, fmt.Errorf("db.ExecContext: %w", err)
		}

		return s.GetCredentials(ctx, credentials.GetCriteria{
			UserID: creds.UserID,
			Panel:  creds.Panel,
			Domain: creds.Domain,
		})
	}

	q, args, err := s.stmpBuilder().
		Insert(panelCredentialsTable).
		SetMap(map[string]interface{}{
			"user_id":    creds.UserID,
			"panel":      string(creds.Panel),
			"domain":     creds.Domain,
			"username":   creds.Username,
			"password":   creds.Password,
			"created_at": s.now(),
			"updated_at": s.now(),
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	return s.GetCredentials(ctx, credentials.GetCriteria{
		UserID: creds.UserID,
		Panel:  creds.Panel,
		Domain: creds.Domain,
	})
}
