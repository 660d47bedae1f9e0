package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"punchexport.com/punchexport/punch/model"
)

func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the export run log",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent export runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			var runs []model.ExportRun
			if err := a.DB.WithContext(cmd.Context()).
				Preload("Documents").
				Order("started_at DESC").
				Limit(limit).
				Find(&runs).Error; err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), runs)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tBATCH\tSTATUS\tSTARTED\tINSERTED\tDUPLICATES\tSKIPPED\tDOCUMENTS")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\t%d\t%d\t%d\n",
					r.ID, r.BatchID, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"),
					r.Inserted, r.Duplicates, r.Skipped, len(r.Documents))
			}
			return w.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "number of runs to show")

	cmd.AddCommand(list)
	return cmd
}
