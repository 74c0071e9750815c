package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/opendcs/odcsapi/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20260901000001, down_20260901000001)
}

// up_20260901000001 creates the tables the API reads for authentication
// and the connection cache sweep. In a full OpenDCS installation both
// already exist; this is for development databases only.
func up_20260901000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating api_keys table...")
	_, err := db.NewCreateTable().
		Model((*models.APIKey)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create api_keys table: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_api_keys_username ON api_keys(username)`)
	if err != nil {
		return fmt.Errorf("failed to create index on api_keys: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating cp_comp_proc_lock table...")
	_, err = db.NewCreateTable().
		Model((*models.AppStatus)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create cp_comp_proc_lock table: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20260901000001 drops the development tables.
func down_20260901000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping cp_comp_proc_lock table...")
	if _, err := db.NewDropTable().
		Model((*models.AppStatus)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop cp_comp_proc_lock table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [down] dropping api_keys table...")
	if _, err := db.NewDropTable().
		Model((*models.APIKey)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop api_keys table: %w", err)
	}
	fmt.Println(" OK")

	return nil
}
