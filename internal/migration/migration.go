package migration

import (
	"context"
	"fmt"
	"strings"

	"countprep/domain/counts"
	"countprep/internal/errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Migrator defines the interface for schema operations run inside the
// sink's transaction
type Migrator interface {
	Run(ctx context.Context, tx *sqlx.Tx) error
	Version() string

	// Table is the table Run creates, InsertSQL a one-row insert into it
	Table() string
	InsertSQL() string
}

// columnTypes maps output columns to their SQL types. The same DDL is
// accepted by Postgres and SQLite.
var columnTypes = map[string]string{
	counts.OutTimestamp:    "TIMESTAMP NOT NULL",
	counts.OutDeviceName:   "TEXT NOT NULL",
	counts.OutCount:        "BIGINT NOT NULL",
	counts.OutAverageSpeed: "DOUBLE PRECISION NOT NULL",
	counts.OutLongitude:    "DOUBLE PRECISION NOT NULL",
	counts.OutLatitude:     "DOUBLE PRECISION NOT NULL",
	counts.OutEasting:      "DOUBLE PRECISION NOT NULL",
	counts.OutNorthing:     "DOUBLE PRECISION NOT NULL",
}

// MigrationRunner drops and recreates the cleaned data table
type MigrationRunner struct {
	version string
	table   string
}

// NewRunner creates a runner for the given table
func NewRunner(table string) *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
		table:   table,
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Table returns the managed table name
func (r *MigrationRunner) Table() string {
	return r.table
}

// Run replaces the table: any existing table of that name is dropped
func (r *MigrationRunner) Run(ctx context.Context, tx *sqlx.Tx) error {
	if err := r.dropTable(ctx, tx); err != nil {
		return errors.Wrapf(err, "failed to drop %s table", r.table)
	}

	if err := r.createTable(ctx, tx); err != nil {
		return errors.Wrapf(err, "failed to create %s table", r.table)
	}

	return nil
}

func (r *MigrationRunner) dropTable(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", pq.QuoteIdentifier(r.table)))
	return err
}

func (r *MigrationRunner) createTable(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, r.CreateTableSQL())
	return err
}

// CreateTableSQL returns the CREATE TABLE statement for the cleaned table
func (r *MigrationRunner) CreateTableSQL() string {
	defs := make([]string, len(counts.OutputColumns))
	for i, col := range counts.OutputColumns {
		defs[i] = fmt.Sprintf("%s %s", pq.QuoteIdentifier(col), columnTypes[col])
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", pq.QuoteIdentifier(r.table), strings.Join(defs, ",\n\t"))
}

// InsertSQL returns a parameterized INSERT for one row, using ? placeholders.
// Callers rebind it for their driver.
func (r *MigrationRunner) InsertSQL() string {
	cols := make([]string, len(counts.OutputColumns))
	marks := make([]string, len(counts.OutputColumns))
	for i, col := range counts.OutputColumns {
		cols[i] = pq.QuoteIdentifier(col)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(r.table), strings.Join(cols, ", "), strings.Join(marks, ", "))
}
