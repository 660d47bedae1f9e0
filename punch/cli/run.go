package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	dbcore "punchexport.com/punchexport/core"
	"punchexport.com/punchexport/punch/core"
)

type RunOptions struct {
	*RootOptions
	Migrate bool
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <source>",
		Short: "Stage a change file and export the affected shifts",
		Long: `Stage a time clock change file and export every shift it touches.

The source is a local path or an s3://bucket/key URI.

Example:
  punchexport run --config punch.yaml exports/changes.csv
  punchexport run s3://punch-inbound/2024-03-04.csv --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Migrate, "migrate", false, "migrate the staging tables before running")
	return cmd
}

func runExport(cmd *cobra.Command, opts *RunOptions, source string) error {
	ctx := cmd.Context()
	a, err := setup(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.Migrate {
		if err := dbcore.Migrate(a.DB); err != nil {
			return err
		}
	}

	src, err := a.Open(ctx, source)
	if err != nil {
		return err
	}
	defer src.Close()

	pipeline, err := a.Pipeline(ctx)
	if err != nil {
		return err
	}
	report, err := pipeline.Run(ctx, source, src)
	if err != nil {
		return err
	}
	return printReport(cmd, opts.Format, report)
}

func printReport(cmd *cobra.Command, format string, report *core.RunReport) error {
	out := cmd.OutOrStdout()
	if format == "json" {
		return writeJSON(out, report)
	}

	fmt.Fprintf(out, "run %s, batch %d\n", report.RunID, report.BatchID)
	fmt.Fprintf(out, "inserted %d, duplicates %d, skipped %d\n",
		report.Ingest.Inserted, report.Ingest.Duplicates, report.Ingest.SkippedCount())
	for _, skipped := range report.Ingest.Skipped {
		fmt.Fprintf(out, "  line %d: %s\n", skipped.Line, skipped.Reason)
	}
	fmt.Fprintf(out, "correlated %d, unresolved %d, groups %d, failed groups %d\n",
		report.Correlated, report.Unresolved, report.Groups, report.FailedGroups)
	for _, doc := range report.Documents {
		switch {
		case doc.Skipped != "":
			fmt.Fprintf(out, "%s: skipped (%s)\n", doc.Warehouse, doc.Skipped)
		case doc.Error != "":
			fmt.Fprintf(out, "%s: failed (%s)\n", doc.Warehouse, doc.Error)
		default:
			fmt.Fprintf(out, "%s: %s, %d transactions\n", doc.Warehouse, doc.FileName, doc.Transactions)
		}
	}
	return nil
}
