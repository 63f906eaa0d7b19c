package repository

import (
	"context"
	"database/sql"
	"fmt"

	"fieldops/internal/domain"
	"fieldops/pkg/database"

	"github.com/lib/pq"
)

type PostgresUnitsRepository struct {
	db *sql.DB
}

func NewPostgresUnitsRepository(db *sql.DB) *PostgresUnitsRepository {
	return &PostgresUnitsRepository{db: db}
}

const unitColumns = `unit_id::text, name, parent_id::text, created_at`

func scanUnit(row interface{ Scan(...any) error }) (*domain.Unit, error) {
	var u domain.Unit
	var parentID sql.NullString
	if err := row.Scan(&u.UnitID, &u.Name, &parentID, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.ParentID = stringPtr(parentID)
	return &u, nil
}

func (r *PostgresUnitsRepository) ListUnits(ctx context.Context) ([]*domain.Unit, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+unitColumns+` FROM units ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Unit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PostgresUnitsRepository) GetUnit(ctx context.Context, unitID string) (*domain.Unit, error) {
	u, err := scanUnit(r.db.QueryRowContext(ctx,
		`SELECT `+unitColumns+` FROM units WHERE unit_id = $1`, unitID))
	if err != nil {
		return nil, mapPQError(err)
	}
	return u, nil
}

func (r *PostgresUnitsRepository) FindUnitByName(ctx context.Context, name string) (*domain.Unit, error) {
	u, err := scanUnit(r.db.QueryRowContext(ctx,
		`SELECT `+unitColumns+` FROM units WHERE lower(name) = lower($1)`, name))
	if err != nil {
		return nil, mapPQError(err)
	}
	return u, nil
}

func (r *PostgresUnitsRepository) CreateUnit(ctx context.Context, unit *domain.Unit) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO units (name, parent_id) VALUES ($1, $2) RETURNING unit_id::text`,
		unit.Name, nullableString(unit.ParentID),
	).Scan(&id)
	if err != nil {
		return "", mapPQError(err)
	}
	return id, nil
}

func (r *PostgresUnitsRepository) UpdateUnit(ctx context.Context, unit *domain.Unit) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE units SET name = $2, parent_id = $3 WHERE unit_id = $1`,
		unit.UnitID, unit.Name, nullableString(unit.ParentID),
	)
	if err != nil {
		return mapPQError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSubtree collects the subtree with a recursive query, checks for
// attached personnel and removes every unit with a single statement, all in
// one transaction.
func (r *PostgresUnitsRepository) DeleteSubtree(ctx context.Context, rootID string) ([]string, error) {
	var ids []string
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			WITH RECURSIVE subtree AS (
				SELECT unit_id FROM units WHERE unit_id = $1
				UNION
				SELECT u.unit_id FROM units u JOIN subtree s ON u.parent_id = s.unit_id
			)
			SELECT unit_id::text FROM subtree
		`, rootID)
		if err != nil {
			return mapPQError(err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return ErrNotFound
		}

		var attached int
		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM personnel WHERE unit_id = ANY($1)`, pq.Array(ids),
		).Scan(&attached); err != nil {
			return err
		}
		if attached > 0 {
			return fmt.Errorf("%w: %d personnel", ErrSubtreeHasPersonnel, attached)
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM units WHERE unit_id = ANY($1)`, pq.Array(ids))
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
