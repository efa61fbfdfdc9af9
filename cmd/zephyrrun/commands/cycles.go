package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var CyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "List the test cycles of a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetString("project")
		projectID, _ := cmd.Flags().GetString("project-id")
		version, _ := cmd.Flags().GetString("version")
		if project == "" && projectID == "" {
			return fmt.Errorf("--project or --project-id is required")
		}

		s, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer s.close()

		if projectID == "" {
			if projectID, err = s.client.ResolveProjectID(cmd.Context(), project); err != nil {
				return err
			}
		}
		cycles, err := s.client.ListCycles(cmd.Context(), projectID, version)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tVERSION")
		for _, c := range cycles {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, c.VersionID)
		}
		return tw.Flush()
	},
}

func init() {
	CyclesCmd.Flags().String("project", "", "project key, resolved to its id")
	CyclesCmd.Flags().String("project-id", "", "numeric project id")
	CyclesCmd.Flags().String("version", "", "only cycles of this version id")
}
