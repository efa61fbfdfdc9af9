package commands

import (
	"fmt"
	"strings"

	"github.com/loykin/zephyrrun"
	"github.com/spf13/cobra"
)

var SetStatusCmd = &cobra.Command{
	Use:   "set-status <test-key|execution-id> <status>",
	Short: "Move one execution to PASS, FAIL, WIP, BLOCKED or UNEXECUTED",
	Long: "Move one execution to a new status. With --execution the first argument is an " +
		"execution id; otherwise it is a test key looked up in the given cycle.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := zephyrrun.ParseStatus(args[1]); err != nil {
			return err
		}
		comment, _ := cmd.Flags().GetString("comment")
		commentPtr := optionalComment(comment, cmd.Flags().Changed("comment"))
		byID, _ := cmd.Flags().GetBool("execution")

		s, err := openSession(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer s.close()

		id := strings.TrimSpace(args[0])
		if !byID {
			cycleID, projectID, err := resolveCycle(cmd, s)
			if err != nil {
				return err
			}
			e, found, err := s.client.FindExecution(cmd.Context(), id, cycleID, projectID)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no execution of %s in cycle %s", id, cycleID)
			}
			id = e.ID
		}
		out, err := s.client.SetStatus(cmd.Context(), id, args[1], commentPtr)
		if err != nil {
			return err
		}
		if out.Acknowledged {
			fmt.Fprintf(cmd.OutOrStdout(), "execution %s: %s (acknowledged)\n", id, strings.ToUpper(strings.TrimSpace(args[1])))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "execution %s: %s\n", out.ID, out.Status)
		return nil
	},
}

func init() {
	addCycleFlags(SetStatusCmd)
	SetStatusCmd.Flags().Bool("execution", false, "treat the first argument as an execution id")
	SetStatusCmd.Flags().String("comment", "", "comment stored with the execution")
}
