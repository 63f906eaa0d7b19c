package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"fieldops/internal/domain"
)

type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

const userColumns = `
	user_id::text,
	first_name,
	last_name,
	COALESCE(display_name, ''),
	username,
	password_hash,
	role,
	unit_id::text,
	COALESCE(email, ''),
	COALESCE(phone, ''),
	COALESCE(gender, ''),
	birth_date,
	COALESCE(address, ''),
	COALESCE(notes, ''),
	COALESCE(profile_image, ''),
	social_media,
	is_active,
	created_at,
	updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	var unitID sql.NullString
	var birthDate sql.NullTime
	var social []byte
	if err := row.Scan(
		&u.UserID,
		&u.FirstName,
		&u.LastName,
		&u.DisplayName,
		&u.Username,
		&u.PasswordHash,
		&u.Role,
		&unitID,
		&u.Email,
		&u.Phone,
		&u.Gender,
		&birthDate,
		&u.Address,
		&u.Notes,
		&u.ProfileImage,
		&social,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.UnitID = stringPtr(unitID)
	if birthDate.Valid {
		t := birthDate.Time
		u.BirthDate = &t
	}
	if len(social) > 0 {
		if err := json.Unmarshal(social, &u.SocialMedia); err != nil {
			return nil, fmt.Errorf("decode social_media: %w", err)
		}
	}
	return &u, nil
}

func (r *PostgresUsersRepository) ListUsers(ctx context.Context, filters UserFilters) ([]*domain.User, error) {
	where := []string{"1=1"}
	args := []any{}
	argIdx := 1
	if filters.UnitID != "" {
		where = append(where, fmt.Sprintf("unit_id = $%d", argIdx))
		args = append(args, filters.UnitID)
		argIdx++
	}
	if filters.Role != "" {
		where = append(where, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, filters.Role)
		argIdx++
	}
	if filters.Search != "" {
		where = append(where, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR username ILIKE $%d)", argIdx, argIdx, argIdx))
		args = append(args, "%"+filters.Search+"%")
		argIdx++
	}

	q := `SELECT ` + userColumns + ` FROM personnel WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY first_name, last_name`
	out := []*domain.User{}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		if isMalformedID(err) {
			return out, nil
		}
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PostgresUsersRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM personnel WHERE user_id = $1`, userID))
	if err != nil {
		return nil, mapPQError(err)
	}
	return u, nil
}

func (r *PostgresUsersRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM personnel WHERE lower(username) = lower($1)`, username))
	if err != nil {
		return nil, mapPQError(err)
	}
	return u, nil
}

func (r *PostgresUsersRepository) FindUserByNameInUnit(ctx context.Context, firstName, lastName, unitID string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM personnel
		 WHERE unit_id = $1 AND lower(first_name) = lower($2) AND lower(last_name) = lower($3)
		 LIMIT 1`,
		unitID, firstName, lastName))
	if err != nil {
		return nil, mapPQError(err)
	}
	return u, nil
}

func userArgs(u *domain.User) ([]any, error) {
	social, err := json.Marshal(u.SocialMedia)
	if err != nil {
		return nil, err
	}
	var birthDate any
	if u.BirthDate != nil {
		birthDate = *u.BirthDate
	}
	return []any{
		u.FirstName,
		u.LastName,
		nullIfEmpty(u.DisplayName),
		u.Username,
		u.PasswordHash,
		u.Role,
		nullableString(u.UnitID),
		nullIfEmpty(u.Email),
		nullIfEmpty(u.Phone),
		nullIfEmpty(u.Gender),
		birthDate,
		nullIfEmpty(u.Address),
		nullIfEmpty(u.Notes),
		nullIfEmpty(u.ProfileImage),
		social,
		u.IsActive,
	}, nil
}

func (r *PostgresUsersRepository) CreateUser(ctx context.Context, user *domain.User) (string, error) {
	args, err := userArgs(user)
	if err != nil {
		return "", err
	}
	var id string
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO personnel (
			first_name, last_name, display_name, username, password_hash, role, unit_id,
			email, phone, gender, birth_date, address, notes, profile_image, social_media, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING user_id::text
	`, args...).Scan(&id)
	if err != nil {
		return "", mapPQError(err)
	}
	return id, nil
}

func (r *PostgresUsersRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	args, err := userArgs(user)
	if err != nil {
		return err
	}
	args = append(args, user.UserID)
	res, err := r.db.ExecContext(ctx, `
		UPDATE personnel SET
			first_name = $1, last_name = $2, display_name = $3, username = $4, password_hash = $5,
			role = $6, unit_id = $7, email = $8, phone = $9, gender = $10, birth_date = $11,
			address = $12, notes = $13, profile_image = $14, social_media = $15, is_active = $16,
			updated_at = now()
		WHERE user_id = $17
	`, args...)
	if err != nil {
		return mapPQError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresUsersRepository) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM personnel WHERE user_id = $1`, userID)
	if err != nil {
		return mapPQError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
