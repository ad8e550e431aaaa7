package main

import (
	"context"
	"fmt"
	"path"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/arkilian/ndxbench/internal/dialect"
	berrors "github.com/arkilian/ndxbench/internal/errors"
	"github.com/arkilian/ndxbench/internal/report"
	"github.com/arkilian/ndxbench/internal/storage"
)

func newRunsCmd(c *cli) *cobra.Command {
	var (
		f           storeFlags
		backend     string
		fingerprint string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List published runs",
		Long: `List the runs published to the configured storage, one line per run
with the keys of its report and CSV objects.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if backend != "" {
				d, err := dialect.For(backend)
				if err != nil {
					return err
				}
				backend = d.Name
			}

			pub, err := openPublisher(cmd.Context(), c, cmd.Flags(), &f)
			if err != nil {
				return err
			}
			runs, err := pub.Runs(cmd.Context(), backend, fingerprint)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "BACKEND\tFINGERPRINT\tRUN\tOBJECTS")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Backend, r.Fingerprint, r.ID, strings.Join(r.Objects, " "))
			}
			return tw.Flush()
		},
	}

	flags := cmd.Flags()
	f.register(flags)
	flags.StringVar(&backend, "backend", "", "Only list runs of this backend")
	flags.StringVar(&fingerprint, "fingerprint", "", "Only list runs with this parameter fingerprint (requires --backend)")

	return cmd
}

func newFetchCmd(c *cli) *cobra.Command {
	var f storeFlags

	cmd := &cobra.Command{
		Use:   "fetch <object-key> [local-path]",
		Short: "Download a published report or CSV",
		Long: `Download one published object. The local path defaults to the object's
base name in the current directory. A fetched .json.sz report can be passed
to export-csv directly.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			local := path.Base(key)
			if len(args) == 2 {
				local = args[1]
			}

			pub, err := openPublisher(cmd.Context(), c, cmd.Flags(), &f)
			if err != nil {
				return err
			}
			if err := pub.Fetch(cmd.Context(), key, local); err != nil {
				if berrors.GetCode(err) == berrors.CodeObjectNotFound {
					return fmt.Errorf("%w (list published objects with 'ndxbench runs')", err)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), local)
			return nil
		},
	}

	f.register(cmd.Flags())
	return cmd
}

// openPublisher resolves the publishing configuration and opens its storage.
func openPublisher(ctx context.Context, c *cli, flags *pflag.FlagSet, f *storeFlags) (*report.Publisher, error) {
	cfg, err := f.load(flags)
	if err != nil {
		return nil, err
	}
	cfg.Resolve()
	if err := cfg.ValidatePublish(); err != nil {
		return nil, err
	}
	if cfg.Publish.Type == storage.TypeNone {
		return nil, berrors.NewValidationError(berrors.CodeInvalidConfig,
			"no publish target configured (set --publish local or s3)")
	}

	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, err
	}
	return report.NewPublisher(store, cfg.Publish.Prefix, cfg.Publish.Compress, c.logger), nil
}
