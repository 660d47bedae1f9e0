package cli

import (
	"bytes"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"punchexport.com/punchexport/punch/core"
	"punchexport.com/punchexport/punch/model"
)

func NewLocationsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "Manage the location to warehouse mapping",
	}
	cmd.AddCommand(newLocationsImportCommand(rootOpts))
	cmd.AddCommand(newLocationsListCommand(rootOpts))
	return cmd
}

func newLocationsImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <workbook>",
		Short: "Upsert locations from an .xlsx workbook (local path or s3:// URI)",
		Long: `Upsert locations from the first sheet of an .xlsx workbook.

The header row must name the columns location_id, warehouse_id and
time_zone. Time zones may be IANA or Windows names.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			src, err := a.Open(ctx, args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			var buf bytes.Buffer
			if _, err := io.Copy(&buf, src); err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			n, err := core.ImportLocations(ctx, a.DB, &buf)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d locations\n", n)
			return nil
		},
	}
}

func newLocationsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List mapped locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			var locations []model.WarehouseLocation
			if err := a.DB.WithContext(cmd.Context()).Order("location_id").Find(&locations).Error; err != nil {
				return fmt.Errorf("failed to list locations: %w", err)
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), locations)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LOCATION\tWAREHOUSE\tTIME ZONE")
			for _, l := range locations {
				fmt.Fprintf(w, "%d\t%s\t%s\n", l.LocationID, l.WarehouseID, l.TimeZone)
			}
			return w.Flush()
		},
	}
}
