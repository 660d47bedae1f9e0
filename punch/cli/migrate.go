package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"punchexport.com/punchexport/config"
	dbcore "punchexport.com/punchexport/core"
	"punchexport.com/punchexport/punch/app"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var clients []string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the staging, location and run log tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(clients) > 0 {
				cfg, err := config.Load(rootOpts.ConfigPath)
				if err != nil {
					return err
				}
				if err := app.MigrateClients(cmd.Context(), cfg, clients); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrated %d client schemas\n", len(clients))
				return nil
			}

			a, err := setup(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := dbcore.Migrate(a.DB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrated")
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&clients, "clients", nil, "migrate these client schemas on the SSM environment's server instead")
	return cmd
}
