package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"fieldops/internal/domain"
)

type PostgresFormsRepository struct {
	db *sql.DB
}

func NewPostgresFormsRepository(db *sql.DB) *PostgresFormsRepository {
	return &PostgresFormsRepository{db: db}
}

func scanForm(row interface{ Scan(...any) error }) (*domain.Form, error) {
	var f domain.Form
	var fields []byte
	if err := row.Scan(&f.FormID, &f.Title, &fields, &f.IsDefault, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.Fields = []domain.FormField{}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &f.Fields); err != nil {
			return nil, fmt.Errorf("decode form fields: %w", err)
		}
	}
	return &f, nil
}

func (r *PostgresFormsRepository) ListForms(ctx context.Context) ([]*domain.Form, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT form_id::text, title, fields, is_default, created_at FROM forms ORDER BY is_default DESC, title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Form{}
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *PostgresFormsRepository) GetForm(ctx context.Context, formID string) (*domain.Form, error) {
	f, err := scanForm(r.db.QueryRowContext(ctx,
		`SELECT form_id::text, title, fields, is_default, created_at FROM forms WHERE form_id = $1`, formID))
	if err != nil {
		return nil, mapPQError(err)
	}
	return f, nil
}

func (r *PostgresFormsRepository) CreateForm(ctx context.Context, form *domain.Form) (string, error) {
	fields, err := json.Marshal(form.Fields)
	if err != nil {
		return "", err
	}
	var id string
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO forms (title, fields, is_default) VALUES ($1, $2, $3) RETURNING form_id::text`,
		form.Title, fields, form.IsDefault,
	).Scan(&id)
	if err != nil {
		return "", mapPQError(err)
	}
	return id, nil
}

func (r *PostgresFormsRepository) UpdateForm(ctx context.Context, form *domain.Form) error {
	fields, err := json.Marshal(form.Fields)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE forms SET title = $2, fields = $3, is_default = $4 WHERE form_id = $1`,
		form.FormID, form.Title, fields, form.IsDefault,
	)
	if err != nil {
		return mapPQError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresFormsRepository) DeleteForm(ctx context.Context, formID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM forms WHERE form_id = $1`, formID)
	if err != nil {
		return mapPQError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
