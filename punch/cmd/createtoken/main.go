package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"punchexport.com/punchexport/security"
)

func main() {
	var identity security.Identity
	var expires time.Duration

	cmd := &cobra.Command{
		Use:          "createtoken",
		Short:        "Print a signed API token for the punch export web API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			secret := os.Getenv("PUNCH_SIGNING_SECRET")
			if secret == "" {
				return fmt.Errorf("PUNCH_SIGNING_SECRET is not set")
			}
			identity.Provider = "createtoken"
			token, err := security.CreateIdentityToken(&identity, secret, expires)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&identity.Name, "name", "operator", "identity name")
	cmd.Flags().StringVar(&identity.Client, "client", "", "client the token is scoped to")
	cmd.Flags().DurationVar(&expires, "expires", 24*time.Hour, "token lifetime")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
