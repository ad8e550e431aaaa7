package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/arkilian/ndxbench/internal/adapter"
	"github.com/arkilian/ndxbench/internal/analyzer"
	"github.com/arkilian/ndxbench/internal/config"
	"github.com/arkilian/ndxbench/internal/observability"
	"github.com/arkilian/ndxbench/internal/report"
	"github.com/arkilian/ndxbench/internal/storage"
	"github.com/arkilian/ndxbench/pkg/types"
)

// storeFlags select the publishing target. They are shared by every
// command that touches published reports.
type storeFlags struct {
	configFile string
	envFile    string

	publish       string
	publishPath   string
	publishPrefix string
	s3Bucket      string
	s3Region      string
	s3Endpoint    string
}

func (f *storeFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.configFile, "config", "",
		"Path to configuration file (YAML or JSON)")
	flags.StringVar(&f.envFile, "env-file", "",
		"Path to a .env file with NDXBENCH_* variables (default: ./.env if present)")

	flags.StringVar(&f.publish, "publish", "", "Publish the report: none, local, s3")
	flags.StringVar(&f.publishPath, "publish-path", "", "Base directory for local publishing")
	flags.StringVar(&f.publishPrefix, "publish-prefix", "", "Object key prefix for published reports")
	flags.StringVar(&f.s3Bucket, "s3-bucket", "", "S3 bucket for publishing")
	flags.StringVar(&f.s3Region, "s3-region", "", "S3 region")
	flags.StringVar(&f.s3Endpoint, "s3-endpoint", "", "S3-compatible endpoint")
}

// load reads the env file, the config file and the environment, then applies
// the publishing flags the user set. The result is not yet resolved.
func (f *storeFlags) load(flags *pflag.FlagSet) (*config.Config, error) {
	if f.envFile != "" {
		if err := godotenv.Load(f.envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg *config.Config
	var err error

	// Start with defaults or load from file
	if f.configFile != "" {
		cfg, err = config.LoadFromFile(f.configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Apply environment variables
	config.LoadFromEnv(cfg)

	set := changed(flags)
	set("publish", func() { cfg.Publish.Type = f.publish })
	set("publish-path", func() { cfg.Publish.Path = f.publishPath })
	set("publish-prefix", func() { cfg.Publish.Prefix = f.publishPrefix })
	set("s3-bucket", func() { cfg.Publish.S3.Bucket = f.s3Bucket })
	set("s3-region", func() { cfg.Publish.S3.Region = f.s3Region })
	set("s3-endpoint", func() { cfg.Publish.S3.Endpoint = f.s3Endpoint })
	return cfg, nil
}

// changed returns a helper that applies a flag only if the user set it.
func changed(flags *pflag.FlagSet) func(name string, apply func()) {
	return func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
}

// runFlags mirrors the configuration keys that can be set on the command
// line. Only flags the user set override the file and environment.
type runFlags struct {
	storeFlags

	backend    string
	dbName     string
	dbUser     string
	dbPassword string
	dbHost     string
	dbPort     int
	dbSchema   string
	dbPath     string
	dbSSLMode  string

	output    string
	start     int
	stop      int
	stopSmall int
	numPoints int
	spatial   bool
	ids       bool
	fullSweep bool
	fetchRows bool
	seed      int64

	csv             string
	publishCompress bool
}

func newRunCmd(c *cli) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark against one backend",
		Long: `Provision the benchmark tables, time plain and indexed lookups and joins
at each row count, and write the report. Settings are read from defaults, then
the config file, then NDXBENCH_* environment variables, then flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), &f)
			if err != nil {
				return err
			}
			return runBenchmark(cmd.Context(), c.logger, cmd.OutOrStdout(), cfg)
		},
	}

	flags := cmd.Flags()
	f.register(flags)

	flags.StringVar(&f.backend, "backend", "",
		"Backend under test: postgres, mysql, sqlite")
	flags.StringVar(&f.dbName, "db-name", "", "Database name")
	flags.StringVar(&f.dbUser, "db-user", "", "Database user")
	flags.StringVar(&f.dbPassword, "db-password", "", "Database password")
	flags.StringVar(&f.dbHost, "db-host", "", "Database host (default: localhost)")
	flags.IntVar(&f.dbPort, "db-port", 0, "Database port (default: backend standard port)")
	flags.StringVar(&f.dbSchema, "db-schema", "", "Postgres schema (search_path)")
	flags.StringVar(&f.dbPath, "db-path", "", "SQLite database file")
	flags.StringVar(&f.dbSSLMode, "db-sslmode", "", "Postgres sslmode (default: disable)")

	flags.StringVar(&f.output, "output", "", "Report path (.json, or .json.sz for snappy)")
	flags.IntVar(&f.start, "start", 0, "First row count of the sweep")
	flags.IntVar(&f.stop, "stop", 0, "Row count bound for regular entities")
	flags.IntVar(&f.stopSmall, "stop-small", 0, "Row count bound for spatial entities")
	flags.IntVar(&f.numPoints, "num-points", 0, "Number of sweep points")
	flags.BoolVar(&f.spatial, "spatial", false, "Measure point and polygon entities")
	flags.BoolVar(&f.ids, "ids", false, "Compare identifier representations")
	flags.BoolVar(&f.fullSweep, "full-sweep", false,
		"Load every sweep point instead of two repetitions of 0 and 1 rows")
	flags.BoolVar(&f.fetchRows, "fetch-rows", false, "Include fetching result rows in the timing")
	flags.Int64Var(&f.seed, "seed", 0, "Random seed (0 = use current time)")

	flags.StringVar(&f.csv, "csv", "", "Also write the CSV export to this path")
	flags.BoolVar(&f.publishCompress, "publish-compress", false, "Snappy-compress published reports")

	return cmd
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(flags *pflag.FlagSet, f *runFlags) (*config.Config, error) {
	cfg, err := f.load(flags)
	if err != nil {
		return nil, err
	}

	// Apply command line flags (highest priority)
	set := changed(flags)
	set("backend", func() { cfg.Backend = f.backend })
	set("db-name", func() { cfg.Database.Name = f.dbName })
	set("db-user", func() { cfg.Database.User = f.dbUser })
	set("db-password", func() { cfg.Database.Password = f.dbPassword })
	set("db-host", func() { cfg.Database.Host = f.dbHost })
	set("db-port", func() { cfg.Database.Port = f.dbPort })
	set("db-schema", func() { cfg.Database.Schema = f.dbSchema })
	set("db-path", func() { cfg.Database.Path = f.dbPath })
	set("db-sslmode", func() { cfg.Database.SSLMode = f.dbSSLMode })
	set("output", func() { cfg.Run.Output = f.output })
	set("start", func() { cfg.Run.Start = f.start })
	set("stop", func() { cfg.Run.Stop = f.stop })
	set("stop-small", func() { cfg.Run.StopSmall = f.stopSmall })
	set("num-points", func() { cfg.Run.NumPoints = f.numPoints })
	set("spatial", func() { cfg.Run.Spatial = f.spatial })
	set("ids", func() { cfg.Run.IDs = f.ids })
	set("full-sweep", func() { cfg.Run.FullSweep = f.fullSweep })
	set("fetch-rows", func() { cfg.Run.FetchRows = f.fetchRows })
	set("seed", func() { cfg.Run.Seed = f.seed })
	set("csv", func() { cfg.Export.CSV = f.csv })
	set("publish-compress", func() { cfg.Publish.Compress = f.publishCompress })

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runBenchmark(ctx context.Context, logger *slog.Logger, out io.Writer, cfg *config.Config) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	// Publishing storage is opened first so a bad target fails before the run.
	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return err
	}

	if cfg.Run.Seed == 0 {
		cfg.Run.Seed = time.Now().UnixNano()
	}
	runID := uuid.NewString()
	logger = logger.With(slog.String("run_id", runID))

	logger.InfoContext(ctx, "starting benchmark",
		slog.String("backend", cfg.Backend),
		slog.String("output", cfg.Run.Output),
		slog.Int64("seed", cfg.Run.Seed),
	)

	db, err := adapter.Open(ctx, cfg.Backend, cfg.AdapterOptions(), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	an := analyzer.New(db, logger)
	r, err := an.Run(ctx, cfg.RunParams())
	if err != nil {
		return err
	}

	if cfg.Export.CSV != "" {
		if _, err := report.ExportCSV(cfg.Run.Output, cfg.Export.CSV); err != nil {
			return err
		}
		logger.InfoContext(ctx, "csv exported", slog.String("csv", cfg.Export.CSV))
	}

	if store != nil {
		params := cfg.RunParams()
		params.Output = ""
		fingerprint, err := report.Fingerprint(cfg.Backend, params)
		if err != nil {
			return err
		}

		pub := report.NewPublisher(store, cfg.Publish.Prefix, cfg.Publish.Compress, logger)
		run := report.Run{Backend: cfg.Backend, Fingerprint: fingerprint, ID: runID}
		if _, err := pub.Publish(ctx, run, cfg.Run.Output, cfg.Export.CSV); err != nil {
			return err
		}
	}

	logTrialSummary(ctx, logger, an.Stats())
	return printSummary(out, r)
}

// printSummary writes one line per measured report field.
func printSummary(w io.Writer, r *types.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tFIELD\tMEAN LATENCY (s)")
	for _, f := range r.Populated() {
		values := make([]string, len(f.Values))
		for i, v := range f.Values {
			values[i] = strconv.FormatFloat(v, 'g', 6, 64)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Section, f.Key, strings.Join(values, " "))
	}
	return tw.Flush()
}

func logTrialSummary(ctx context.Context, logger *slog.Logger, stats *observability.TrialStats) {
	for _, s := range stats.Summary() {
		logger.DebugContext(ctx, "trial summary",
			slog.String("entity", s.Entity),
			slog.String("kind", s.Kind),
			slog.Int64("trials", s.Trials),
			slog.Duration("mean", s.Mean()),
			slog.Duration("min", s.Min),
			slog.Duration("max", s.Max),
		)
	}
}
