package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"fieldops/internal/domain"
	"fieldops/pkg/database"
)

type PostgresJobsRepository struct {
	db *sql.DB
}

func NewPostgresJobsRepository(db *sql.DB) *PostgresJobsRepository {
	return &PostgresJobsRepository{db: db}
}

const jobColumns = `
	job_id::text,
	title,
	COALESCE(description, ''),
	form_id::text,
	COALESCE(form_title, ''),
	assigned_to::text,
	assigned_by::text,
	unit_id::text,
	COALESCE(address, ''),
	location_lat,
	location_lon,
	priority,
	COALESCE(job_type, ''),
	status,
	form_data,
	created_at,
	updated_at,
	updated_by::text`

func scanJob(row interface{ Scan(...any) error }) (*domain.Job, error) {
	var j domain.Job
	var formID, assignedTo, assignedBy, unitID, updatedBy sql.NullString
	var lat, lon sql.NullFloat64
	var formData []byte
	if err := row.Scan(
		&j.JobID,
		&j.Title,
		&j.Description,
		&formID,
		&j.FormTitle,
		&assignedTo,
		&assignedBy,
		&unitID,
		&j.Address,
		&lat,
		&lon,
		&j.Priority,
		&j.JobType,
		&j.Status,
		&formData,
		&j.CreatedAt,
		&j.UpdatedAt,
		&updatedBy,
	); err != nil {
		return nil, err
	}
	j.FormID = stringPtr(formID)
	j.AssignedTo = stringPtr(assignedTo)
	j.AssignedBy = stringPtr(assignedBy)
	j.UnitID = stringPtr(unitID)
	j.UpdatedBy = stringPtr(updatedBy)
	if lat.Valid && lon.Valid {
		j.Location = &domain.Location{Lat: lat.Float64, Lon: lon.Float64}
	}
	fd, err := decodeFormData(formData)
	if err != nil {
		return nil, err
	}
	j.FormData = fd
	return &j, nil
}

func decodeFormData(b []byte) (domain.FormData, error) {
	fd := domain.FormData{}
	if len(b) == 0 {
		return fd, nil
	}
	if err := json.Unmarshal(b, &fd); err != nil {
		return nil, fmt.Errorf("decode form_data: %w", err)
	}
	if fd == nil {
		fd = domain.FormData{}
	}
	return fd, nil
}

func encodeFormData(fd domain.FormData) ([]byte, error) {
	if fd == nil {
		fd = domain.FormData{}
	}
	return json.Marshal(fd)
}

func (r *PostgresJobsRepository) ListJobs(ctx context.Context, filters JobFilters) ([]*domain.Job, error) {
	where := []string{"1=1"}
	args := []any{}
	argIdx := 1
	if filters.AssignedTo != "" {
		where = append(where, fmt.Sprintf("assigned_to = $%d", argIdx))
		args = append(args, filters.AssignedTo)
		argIdx++
	}
	if filters.UnitID != "" {
		where = append(where, fmt.Sprintf("unit_id = $%d", argIdx))
		args = append(args, filters.UnitID)
		argIdx++
	}
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filters.Status)
		argIdx++
	}

	q := `SELECT ` + jobColumns + ` FROM jobs WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	out := []*domain.Job{}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		if isMalformedID(err) {
			return out, nil
		}
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *PostgresJobsRepository) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	j, err := scanJob(r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_id = $1`, jobID))
	if err != nil {
		return nil, mapPQError(err)
	}
	return j, nil
}

func (r *PostgresJobsRepository) ListHistory(ctx context.Context, jobID string) ([]*domain.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT history_id::text, job_id::text, action, user_id::text, COALESCE(description, ''), form_data, created_at
		FROM job_history
		WHERE job_id = $1
		ORDER BY created_at, seq
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.HistoryEntry{}
	for rows.Next() {
		var h domain.HistoryEntry
		var userID sql.NullString
		var formData []byte
		if err := rows.Scan(&h.HistoryID, &h.JobID, &h.Action, &userID, &h.Description, &formData, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.UserID = stringPtr(userID)
		if h.FormData, err = decodeFormData(formData); err != nil {
			return nil, err
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

func jobLocationArgs(j *domain.Job) (any, any) {
	if j.Location == nil {
		return nil, nil
	}
	return j.Location.Lat, j.Location.Lon
}

func (r *PostgresJobsRepository) CreateJob(ctx context.Context, job *domain.Job, entry *domain.HistoryEntry) (string, error) {
	formData, err := encodeFormData(job.FormData)
	if err != nil {
		return "", err
	}
	lat, lon := jobLocationArgs(job)

	var id string
	err = database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO jobs (
				title, description, form_id, form_title, assigned_to, assigned_by, unit_id,
				address, location_lat, location_lon, priority, job_type, status, form_data, updated_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			RETURNING job_id::text
		`,
			job.Title,
			nullIfEmpty(job.Description),
			nullableString(job.FormID),
			job.FormTitle,
			nullableString(job.AssignedTo),
			nullableString(job.AssignedBy),
			nullableString(job.UnitID),
			nullIfEmpty(job.Address),
			lat,
			lon,
			job.Priority,
			nullIfEmpty(job.JobType),
			job.Status,
			formData,
			nullableString(job.UpdatedBy),
		).Scan(&id); err != nil {
			return mapPQError(err)
		}
		entry.JobID = id
		return insertHistory(ctx, tx, entry)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *PostgresJobsRepository) UpdateJob(ctx context.Context, change JobChange, entry *domain.HistoryEntry) error {
	patch, err := encodeFormData(change.FormData)
	if err != nil {
		return err
	}

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var holder sql.NullString
		if err := tx.QueryRowContext(ctx,
			`SELECT assigned_to::text FROM jobs WHERE job_id = $1 FOR UPDATE`, change.JobID,
		).Scan(&holder); err != nil {
			return mapPQError(err)
		}
		if !holder.Valid || holder.String != change.Holder {
			return ErrNotHolder
		}

		var stored []byte
		if err := tx.QueryRowContext(ctx, `
			UPDATE jobs SET
				status = COALESCE($2, status),
				description = CASE WHEN $3 THEN $4 ELSE description END,
				form_data = form_data || $5::jsonb,
				assigned_to = COALESCE($6::uuid, assigned_to),
				updated_by = $7,
				updated_at = now()
			WHERE job_id = $1
			RETURNING form_data
		`,
			change.JobID,
			nullableString(change.Status),
			change.Description != nil,
			nullableString(change.Description),
			patch,
			nullableString(change.AssignedTo),
			nullIfEmpty(change.UpdatedBy),
		).Scan(&stored); err != nil {
			return mapPQError(err)
		}
		if entry.FormData, err = decodeFormData(stored); err != nil {
			return err
		}
		entry.JobID = change.JobID
		return insertHistory(ctx, tx, entry)
	})
}

func insertHistory(ctx context.Context, tx *sql.Tx, entry *domain.HistoryEntry) error {
	formData, err := encodeFormData(entry.FormData)
	if err != nil {
		return err
	}
	return tx.QueryRowContext(ctx, `
		INSERT INTO job_history (job_id, action, user_id, description, form_data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING history_id::text, created_at
	`,
		entry.JobID, entry.Action, nullableString(entry.UserID), entry.Description, formData,
	).Scan(&entry.HistoryID, &entry.CreatedAt)
}
