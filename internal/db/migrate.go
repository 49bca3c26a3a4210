package db

import (
	"context"
	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

// Migrate aplica o schema embutido. Os comandos são idempotentes.
func Migrate(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, schemaSQL)
	return err
}
