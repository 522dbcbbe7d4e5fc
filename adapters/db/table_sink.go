package db

import (
	"context"

	"countprep/domain/counts"
	"countprep/internal"
	"countprep/internal/config"
	"countprep/internal/errors"
	"countprep/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// TableSink replaces a relational table with the cleaned dataset.
// The connection lives only for the duration of one Write.
type TableSink struct {
	driver   string
	dsn      string
	target   string
	migrator migration.Migrator
	logger   *internal.Logger
}

// NewTableSink creates a sink for the configured database and table
func NewTableSink(cfg config.DatabaseConfig, logger *internal.Logger) *TableSink {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &TableSink{
		driver:   cfg.Driver,
		dsn:      cfg.DSN(),
		target:   cfg.Redacted(),
		migrator: migration.NewRunner(cfg.Table),
		logger:   logger,
	}
}

// Name identifies the sink in logs
func (s *TableSink) Name() string {
	return "database"
}

// Write drops and recreates the table, then loads every record, all in one
// transaction. A failure leaves the previous table in place.
func (s *TableSink) Write(ctx context.Context, records []counts.CleanedRecord) (err error) {
	s.logger.Info("Connecting to %s database at %s", s.driver, s.target)
	db, err := sqlx.ConnectContext(ctx, s.driver, s.dsn)
	if err != nil {
		return errors.SinkError(s.Name(), errors.Wrap(err, "failed to connect to database"))
	}
	defer db.Close()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.SinkError(s.Name(), errors.Wrap(err, "failed to begin transaction"))
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Warn("Rollback failed: %v", rbErr)
			}
		}
	}()

	s.logger.Debug("Applying schema %s to table %q", s.migrator.Version(), s.migrator.Table())
	if err = s.migrator.Run(ctx, tx); err != nil {
		return errors.SinkError(s.Name(), err)
	}

	if s.driver == config.DriverPostgres {
		err = s.copyRows(ctx, tx, records)
	} else {
		err = s.insertRows(ctx, tx, records)
	}
	if err != nil {
		return errors.SinkError(s.Name(), err)
	}

	if err = tx.Commit(); err != nil {
		return errors.SinkError(s.Name(), errors.Wrap(err, "failed to commit"))
	}

	s.logger.Info("Wrote %d rows to table %q", len(records), s.migrator.Table())
	return nil
}

// copyRows bulk loads through the Postgres COPY protocol
func (s *TableSink) copyRows(ctx context.Context, tx *sqlx.Tx, records []counts.CleanedRecord) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(s.migrator.Table(), counts.OutputColumns...))
	if err != nil {
		return errors.Wrap(err, "failed to prepare COPY")
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Values()...); err != nil {
			return errors.Wrapf(err, "failed to copy row %d", i+1)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return errors.Wrap(err, "failed to flush COPY")
	}
	return nil
}

func (s *TableSink) insertRows(ctx context.Context, tx *sqlx.Tx, records []counts.CleanedRecord) error {
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(s.migrator.InsertSQL()))
	if err != nil {
		return errors.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Values()...); err != nil {
			return errors.Wrapf(err, "failed to insert row %d", i+1)
		}
	}
	return nil
}
