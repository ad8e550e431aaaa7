package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/arkilian/ndxbench/internal/dialect"
	berrors "github.com/arkilian/ndxbench/internal/errors"
)

// Options select the connection target. They do not change behavior.
type Options struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string

	// Schema is the postgres search_path.
	Schema string

	// SSLMode is the postgres sslmode (default disable).
	SSLMode string

	// Path is the sqlite database file.
	Path string

	// Seed seeds the synthetic data generator.
	Seed int64
}

// Open connects to the named backend.
func Open(ctx context.Context, backend string, opts Options, logger *slog.Logger) (*DB, error) {
	d, err := dialect.For(backend)
	if err != nil {
		return nil, err
	}

	switch d.Name {
	case dialect.Postgres:
		return OpenPostgres(ctx, opts, logger)
	case dialect.MySQL:
		return OpenMySQL(ctx, opts, logger)
	default:
		return OpenSQLite(ctx, opts.Path, opts.Seed, logger)
	}
}

// OpenPostgres connects to a PostGIS-enabled PostgreSQL database.
func OpenPostgres(ctx context.Context, opts Options, logger *slog.Logger) (*DB, error) {
	return open(ctx, "postgres", PostgresDSN(opts), dialect.NewPostgres(), opts.Seed, logger)
}

// OpenMySQL connects to a MySQL 8 database.
func OpenMySQL(ctx context.Context, opts Options, logger *slog.Logger) (*DB, error) {
	return open(ctx, "mysql", MySQLDSN(opts), dialect.NewMySQL(), opts.Seed, logger)
}

// OpenSQLite opens (creating if needed) an SQLite database file.
func OpenSQLite(ctx context.Context, path string, seed int64, logger *slog.Logger) (*DB, error) {
	if path == "" {
		return nil, berrors.NewValidationError(berrors.CodeInvalidConfig, "sqlite requires a database path")
	}
	return open(ctx, "sqlite3", path, dialect.NewSQLite(), seed, logger)
}

// PostgresDSN builds a lib/pq connection URL from opts.
func PostgresDSN(opts Options) string {
	host := opts.Host
	if host == "" {
		host = "localhost"
	}
	port := opts.Port
	if port == 0 {
		port = 5432
	}
	sslmode := opts.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	q := url.Values{}
	q.Set("sslmode", sslmode)
	if opts.Schema != "" {
		q.Set("search_path", opts.Schema)
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + opts.Name,
		RawQuery: q.Encode(),
	}
	if opts.User != "" {
		u.User = url.UserPassword(opts.User, opts.Password)
	}
	return u.String()
}

// MySQLDSN builds a go-sql-driver/mysql DSN from opts.
func MySQLDSN(opts Options) string {
	host := opts.Host
	if host == "" {
		host = "localhost"
	}
	port := opts.Port
	if port == 0 {
		port = 3306
	}

	cfg := mysql.NewConfig()
	cfg.User = opts.User
	cfg.Passwd = opts.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.DBName = opts.Name
	return cfg.FormatDSN()
}

func open(ctx context.Context, driver, dsn string, d *dialect.Dialect, seed int64, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, berrors.NewBackendError(berrors.CodeConnectFailed,
			fmt.Sprintf("open %s", d.Name), err)
	}

	a := NewDB(db, d, seed, logger)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, berrors.NewBackendError(berrors.CodeConnectFailed,
			fmt.Sprintf("connect to %s", d.Name), err)
	}

	// Extensions may already exist under a role that cannot create them;
	// statements that need a missing one fail later with a backend error.
	for _, stmt := range d.Setup {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			a.logger.WarnContext(ctx, "setup statement failed",
				slog.String("statement", stmt),
				slog.String("error", err.Error()),
			)
		}
	}

	a.logger.InfoContext(ctx, "connected")
	return a, nil
}
