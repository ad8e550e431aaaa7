package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/arkilian/ndxbench/internal/report"
)

func newExportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "export-csv <report.json> [out.csv]",
		Short: "Flatten a report into CSV rows",
		Long: `Write one CSV row per non-null report field: section, field, then the
field's values. The output defaults to the report path with a .csv extension.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ""
			if len(args) == 2 {
				out = args[1]
			}

			written, err := report.ExportCSV(args[0], out)
			if err != nil {
				return err
			}

			c.logger.InfoContext(cmd.Context(), "csv exported",
				slog.String("report", args[0]),
				slog.String("csv", written),
			)
			fmt.Fprintln(cmd.OutOrStdout(), written)
			return nil
		},
	}
}
