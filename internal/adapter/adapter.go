// Package adapter executes benchmark statements against a live backend and
// reports their wall-clock latency.
package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arkilian/ndxbench/internal/datagen"
	"github.com/arkilian/ndxbench/internal/dialect"
	berrors "github.com/arkilian/ndxbench/internal/errors"
	"github.com/arkilian/ndxbench/pkg/types"
)

// DefaultBatchSize is the number of rows per multi-row insert statement.
const DefaultBatchSize = 500

// progressEvery is the row interval between progress log lines.
const progressEvery = 100000

// Adapter is the capability set the analyzer drives. An Adapter owns one
// connection and must not be shared between concurrent runs.
type Adapter interface {
	// Dialect returns the backend dialect the adapter was opened with.
	Dialect() *dialect.Dialect

	// Provision drops and recreates the entity's table.
	Provision(ctx context.Context, e types.Entity) error

	// BulkLoad inserts n generated rows into the entity's table.
	BulkLoad(ctx context.Context, e types.Entity, n int) error

	// TimeQuery executes one statement and returns the elapsed time of the
	// execute call, including the row fetch when readOnly is set.
	TimeQuery(ctx context.Context, query string, readOnly bool) (time.Duration, error)

	// CreateIndex builds a unique index, or a spatial index when spatial is set.
	CreateIndex(ctx context.Context, table, index, column string, spatial bool) error

	// ClearTable deletes every row and drops index when it is not empty.
	ClearTable(ctx context.Context, table, index string) error

	// CountRows returns the number of rows in table.
	CountRows(ctx context.Context, table string) (int64, error)

	// Close releases the connection.
	Close() error
}

// DB implements Adapter over database/sql.
type DB struct {
	db        *sql.DB
	dialect   *dialect.Dialect
	gen       *datagen.Generator
	logger    *slog.Logger
	batchSize int
}

var _ Adapter = (*DB)(nil)

// NewDB wraps an open database handle. The pool is limited to a single
// connection so every statement of a run goes through the same session.
func NewDB(db *sql.DB, d *dialect.Dialect, seed int64, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.Default()
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return &DB{
		db:        db,
		dialect:   d,
		gen:       datagen.New(d, seed),
		logger:    logger.With(slog.String("backend", d.Name)),
		batchSize: DefaultBatchSize,
	}
}

// Dialect returns the backend dialect.
func (a *DB) Dialect() *dialect.Dialect {
	return a.dialect
}

// Provision drops and recreates the entity's table.
func (a *DB) Provision(ctx context.Context, e types.Entity) error {
	create, err := a.dialect.CreateTable(e)
	if err != nil {
		return err
	}

	if err := a.exec(ctx, "drop table", e.Name, a.dialect.DropTable(e.Name)); err != nil {
		return err
	}
	if err := a.exec(ctx, "create table", e.Name, create); err != nil {
		return err
	}

	a.logger.DebugContext(ctx, "table provisioned", slog.String("table", e.Name))
	return nil
}

// BulkLoad generates n values per column and inserts them in batches, each
// batch committed in its own transaction. Columns sharing a logical type
// receive the same value list, so self-joins match predictably.
func (a *DB) BulkLoad(ctx context.Context, e types.Entity, n int) error {
	a.logger.InfoContext(ctx, "inserting rows",
		slog.String("table", e.Name),
		slog.Int("rows", n),
	)
	start := time.Now()

	columns := make([]string, len(e.Columns))
	data := make([][]string, len(e.Columns))
	byType := make(map[types.ColumnType][]string, len(e.Columns))

	for i, c := range e.Columns {
		columns[i] = c.Name
		if values, ok := byType[c.Type]; ok {
			data[i] = values
			continue
		}

		a.logger.DebugContext(ctx, "creating data",
			slog.String("column", c.Name),
			slog.String("type", c.Type.String()),
		)
		values, err := a.gen.Values(c.Type, n)
		if err != nil {
			return err
		}
		byType[c.Type] = values
		data[i] = values
	}

	head := fmt.Sprintf("insert into %s (%s) values ", e.Name, strings.Join(columns, ", "))

	for lo := 0; lo < n; lo += a.batchSize {
		hi := lo + a.batchSize
		if hi > n {
			hi = n
		}

		var sb strings.Builder
		sb.WriteString(head)
		for row := lo; row < hi; row++ {
			if row > lo {
				sb.WriteByte(',')
			}
			sb.WriteString("\n(")
			for col := range data {
				if col > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(data[col][row])
			}
			sb.WriteByte(')')
		}

		if err := a.execTx(ctx, e.Name, sb.String()); err != nil {
			return err
		}

		if lo/progressEvery != hi/progressEvery {
			a.logger.InfoContext(ctx, "insert progress",
				slog.String("table", e.Name),
				slog.Int("inserted", hi),
				slog.Int("rows", n),
			)
		}
	}

	a.logger.InfoContext(ctx, "rows inserted",
		slog.String("table", e.Name),
		slog.Int("rows", n),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// TimeQuery executes query and measures only the execute call plus, when
// readOnly is set, draining the result rows.
func (a *DB) TimeQuery(ctx context.Context, query string, readOnly bool) (time.Duration, error) {
	if !readOnly {
		start := time.Now()
		_, err := a.db.ExecContext(ctx, query)
		elapsed := time.Since(start)
		if err != nil {
			return 0, a.failure("time query", "", query, err)
		}
		return elapsed, nil
	}

	start := time.Now()
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return 0, a.failure("time query", "", query, err)
	}
	for rows.Next() {
	}
	err = rows.Err()
	elapsed := time.Since(start)
	rows.Close()
	if err != nil {
		return 0, a.failure("time query", "", query, err)
	}
	return elapsed, nil
}

// CreateIndex builds a unique index on a scalar column or a spatial index on
// a geometry column.
func (a *DB) CreateIndex(ctx context.Context, table, index, column string, spatial bool) error {
	stmt, err := a.dialect.CreateIndex(table, index, column, spatial)
	if err != nil {
		return err
	}
	return a.exec(ctx, "create index", table, stmt)
}

// ClearTable deletes every row of table and drops index when given.
func (a *DB) ClearTable(ctx context.Context, table, index string) error {
	if err := a.exec(ctx, "clear table", table, "delete from "+table); err != nil {
		return err
	}
	if index == "" {
		return nil
	}
	return a.exec(ctx, "drop index", table, a.dialect.DropIndexStatement(index, table))
}

// CountRows returns the number of rows in table.
func (a *DB) CountRows(ctx context.Context, table string) (int64, error) {
	stmt := "select count(*) from " + table
	var n int64
	if err := a.db.QueryRowContext(ctx, stmt).Scan(&n); err != nil {
		return 0, a.failure("count rows", table, stmt, err)
	}
	return n, nil
}

// Close releases the connection.
func (a *DB) Close() error {
	return a.db.Close()
}

func (a *DB) exec(ctx context.Context, op, table, stmt string) error {
	if _, err := a.db.ExecContext(ctx, stmt); err != nil {
		return a.failure(op, table, stmt, err)
	}
	return nil
}

func (a *DB) execTx(ctx context.Context, table, stmt string) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return a.failure("begin", table, "", err)
	}
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		_ = tx.Rollback()
		return a.failure("bulk load", table, truncate(stmt), err)
	}
	if err := tx.Commit(); err != nil {
		return a.failure("commit", table, "", err)
	}
	return nil
}

func (a *DB) failure(op, table, stmt string, err error) error {
	details := map[string]interface{}{"backend": a.dialect.Name}
	if table != "" {
		details["table"] = table
	}
	if stmt != "" {
		details["statement"] = stmt
	}
	return berrors.NewBackendError(berrors.CodeExecutionFailed, op, err).WithDetails(details)
}

// truncate keeps bulk insert statements readable in error details.
func truncate(stmt string) string {
	const max = 256
	if len(stmt) <= max {
		return stmt
	}
	return stmt[:max] + "..."
}
