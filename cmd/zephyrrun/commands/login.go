package commands

import (
	"fmt"

	"github.com/loykin/zephyrrun/internal/credential"
	"github.com/spf13/cobra"
)

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Negotiate a session and print the confirmed identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer s.close()

		res, err := s.client.Login(cmd.Context())
		if err != nil {
			return err
		}
		for _, a := range res.Attempts {
			s.logger.Debug("strategy attempt", "scheme", string(a.Scheme), "outcome", a.Outcome.Kind.String(), "verified", a.Verified)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s via %s\n", res.Identity, res.Scheme)

		if save, _ := cmd.Flags().GetBool("save"); save {
			secret, err := s.doc.ResolveSecret()
			if err != nil {
				return err
			}
			key := credential.KeyFor(s.doc.BaseURL, s.doc.Identity)
			if err := credential.Set(key, secret); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "secret saved to keyring as %s\n", key)
		}
		return nil
	},
}

func init() {
	LoginCmd.Flags().Bool("save", false, "store the secret in the system keyring after a successful login")
}
