package commands

import (
	"fmt"
	"strings"

	"github.com/loykin/zephyrrun"
	"github.com/spf13/cobra"
)

var BulkCmd = &cobra.Command{
	Use:   "bulk <status> <execution-id>...",
	Short: "Move several executions to one status in a single request",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := zephyrrun.ParseStatus(args[0]); err != nil {
			return err
		}
		var ids []string
		for _, a := range args[1:] {
			for _, id := range strings.Split(a, ",") {
				if id = strings.TrimSpace(id); id != "" {
					ids = append(ids, id)
				}
			}
		}
		if len(ids) == 0 {
			return zephyrrun.ErrEmptyExecutionList
		}
		comment, _ := cmd.Flags().GetString("comment")

		s, err := openSession(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer s.close()

		out, err := s.client.SetStatusBulk(cmd.Context(), ids, args[0], optionalComment(comment, cmd.Flags().Changed("comment")))
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("%d executions: %s", len(out.IDs), out.Status)
		if out.JobToken != "" {
			msg += " (job " + out.JobToken + ")"
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

func init() {
	BulkCmd.Flags().String("comment", "", "comment stored with every execution")
}
