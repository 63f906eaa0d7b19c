package repository

import (
	"context"
	"database/sql"
	"fmt"

	"fieldops/pkg/database"
)

// LegacyUnitReport outcome of ResolveLegacyUnitRefs.
type LegacyUnitReport struct {
	ColumnPresent  bool
	ResolvedByID   int64
	ResolvedByName int64
	// Unresolved maps user_id to the legacy reference that matched no unit.
	Unresolved    map[string]string
	ColumnDropped bool
}

// ResolveLegacyUnitRefs rewrites personnel rows imported with a free-text
// legacy_unit_ref (either a unit id or a unit name) into a proper unit_id, in
// one transaction. When nothing is left unresolved and dropColumn is set the
// legacy column is dropped in the same transaction.
func ResolveLegacyUnitRefs(ctx context.Context, db *sql.DB, dropColumn bool) (*LegacyUnitReport, error) {
	report := &LegacyUnitReport{Unresolved: map[string]string{}}

	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.columns
				WHERE table_name = 'personnel' AND column_name = 'legacy_unit_ref'
			)
		`).Scan(&report.ColumnPresent); err != nil {
			return fmt.Errorf("check legacy column: %w", err)
		}
		if !report.ColumnPresent {
			return nil
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE personnel p
			SET unit_id = u.unit_id, legacy_unit_ref = NULL
			FROM units u
			WHERE p.legacy_unit_ref IS NOT NULL AND u.unit_id::text = p.legacy_unit_ref
		`)
		if err != nil {
			return fmt.Errorf("resolve by id: %w", err)
		}
		report.ResolvedByID, _ = res.RowsAffected()

		res, err = tx.ExecContext(ctx, `
			UPDATE personnel p
			SET unit_id = u.unit_id, legacy_unit_ref = NULL
			FROM units u
			WHERE p.legacy_unit_ref IS NOT NULL AND lower(u.name) = lower(trim(p.legacy_unit_ref))
		`)
		if err != nil {
			return fmt.Errorf("resolve by name: %w", err)
		}
		report.ResolvedByName, _ = res.RowsAffected()

		rows, err := tx.QueryContext(ctx,
			`SELECT user_id::text, legacy_unit_ref FROM personnel WHERE legacy_unit_ref IS NOT NULL`)
		if err != nil {
			return err
		}
		for rows.Next() {
			var userID, ref string
			if err := rows.Scan(&userID, &ref); err != nil {
				rows.Close()
				return err
			}
			report.Unresolved[userID] = ref
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if dropColumn && len(report.Unresolved) == 0 {
			if _, err := tx.ExecContext(ctx, `ALTER TABLE personnel DROP COLUMN legacy_unit_ref`); err != nil {
				return fmt.Errorf("drop legacy column: %w", err)
			}
			report.ColumnDropped = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
