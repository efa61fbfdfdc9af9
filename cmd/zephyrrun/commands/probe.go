package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/loykin/zephyrrun"
	"github.com/spf13/cobra"
)

var ProbeCmd = &cobra.Command{
	Use:   "probe [capability...]",
	Short: "Check which REST endpoints the deployment serves",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer s.close()

		if skip, _ := cmd.Flags().GetBool("anonymous"); !skip {
			if _, err := s.client.Login(cmd.Context()); err != nil {
				return err
			}
		}
		cands := zephyrrun.Catalogue()
		if len(args) > 0 {
			var picked []zephyrrun.Candidate
			for _, c := range cands {
				for _, a := range args {
					if string(c.Capability) == a {
						picked = append(picked, c)
					}
				}
			}
			cands = picked
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CAPABILITY\tPATH\tSTATUS\tCODE")
		for st := range s.client.Probe(cmd.Context(), cands) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", st.Capability, st.Path, st.Status, st.StatusCode)
		}
		return tw.Flush()
	},
}

func init() {
	ProbeCmd.Flags().Bool("anonymous", false, "probe without logging in first")
}
