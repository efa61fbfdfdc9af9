package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var FindCmd = &cobra.Command{
	Use:   "find <test-key>",
	Short: "Find the execution of a test in a cycle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer s.close()

		cycleID, projectID, err := resolveCycle(cmd, s)
		if err != nil {
			return err
		}
		e, found, err := s.client.FindExecution(cmd.Context(), args[0], cycleID, projectID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no execution of %s in cycle %s", args[0], cycleID)
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"id":       e.ID,
			"issueKey": e.IssueKey,
			"status":   e.Status.String(),
			"comment":  e.Comment,
			"cycleId":  e.CycleID,
		})
	},
}

// resolveCycle turns --project/--project-id and --cycle/--cycle-id into ids.
func resolveCycle(cmd *cobra.Command, s *session) (cycleID, projectID string, err error) {
	ctx := cmd.Context()
	project, _ := cmd.Flags().GetString("project")
	projectID, _ = cmd.Flags().GetString("project-id")
	cycleName, _ := cmd.Flags().GetString("cycle")
	cycleID, _ = cmd.Flags().GetString("cycle-id")
	version, _ := cmd.Flags().GetString("version")

	if projectID == "" {
		if project == "" {
			return "", "", fmt.Errorf("--project or --project-id is required")
		}
		if projectID, err = s.client.ResolveProjectID(ctx, project); err != nil {
			return "", "", err
		}
	}
	if cycleID == "" {
		if cycleName == "" {
			return "", "", fmt.Errorf("--cycle or --cycle-id is required")
		}
		c, ok, err := s.client.FindCycleByName(ctx, projectID, version, cycleName)
		if err != nil {
			return "", "", err
		}
		if !ok {
			return "", "", fmt.Errorf("no cycle named %q in project %s", cycleName, projectID)
		}
		cycleID = c.ID
	}
	return cycleID, projectID, nil
}

func addCycleFlags(cmd *cobra.Command) {
	cmd.Flags().String("project", "", "project key, resolved to its id")
	cmd.Flags().String("project-id", "", "numeric project id")
	cmd.Flags().String("cycle", "", "cycle name (case-insensitive)")
	cmd.Flags().String("cycle-id", "", "cycle id")
	cmd.Flags().String("version", "", "version id used when looking a cycle up by name")
}

func init() {
	addCycleFlags(FindCmd)
}
