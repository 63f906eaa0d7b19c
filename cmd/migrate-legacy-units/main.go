package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"fieldops/internal/config"
	"fieldops/internal/migrations"
	"fieldops/internal/repository"
	"fieldops/pkg/database"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "migrate-legacy-units",
		Short:        "Move imported personnel from free-text unit references to unit ids",
		SilenceUsage: true,
	}
	cmd.AddCommand(newSchemaCmd(), newResolveCmd())
	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connectDB()
			if err != nil {
				return err
			}
			defer db.Close()
			return migrations.Up(db)
		},
	}
}

type resolveOutput struct {
	ColumnPresent  bool              `json:"column_present"`
	ResolvedByID   int64             `json:"resolved_by_id"`
	ResolvedByName int64             `json:"resolved_by_name"`
	Unresolved     map[string]string `json:"unresolved"`
	ColumnDropped  bool              `json:"column_dropped"`
}

func newResolveCmd() *cobra.Command {
	var drop bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve personnel.legacy_unit_ref by unit id, then by case-insensitive unit name",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connectDB()
			if err != nil {
				return err
			}
			defer db.Close()

			report, err := repository.ResolveLegacyUnitRefs(cmd.Context(), db, drop)
			if err != nil {
				return err
			}
			if err := writeJSON(resolveOutput(*report)); err != nil {
				return err
			}
			if len(report.Unresolved) > 0 {
				return fmt.Errorf("%d personnel rows still reference unknown units", len(report.Unresolved))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&drop, "drop", false, "Drop the legacy column once every row is resolved")
	return cmd
}

func connectDB() (*sql.DB, error) {
	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect %s@%s: %w", cfg.Database.Database, cfg.Database.Host, err)
	}
	return db, nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
