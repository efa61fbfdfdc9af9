package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/loykin/zephyrrun"
	"github.com/spf13/cobra"
)

var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the status transitions recorded by this tool",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := doc.SetupLogging(); err != nil {
			return err
		}
		sc := doc.StoreConfig()
		if sc == nil {
			return fmt.Errorf("history is disabled in the config")
		}
		st, err := zephyrrun.OpenStore(cmd.Context(), *sc)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		execID, _ := cmd.Flags().GetString("execution")
		limit, _ := cmd.Flags().GetInt("limit")
		rows, err := st.List(cmd.Context(), zephyrrun.HistoryFilter{ExecutionID: execID, Limit: limit})
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RECORDED\tMODE\tEXECUTIONS\tSTATUS\tRESULT\tIDENTITY")
		for _, r := range rows {
			result := "ok"
			switch {
			case r.Failed:
				result = "failed: " + r.Error
			case r.Acknowledged:
				result = "acknowledged"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.RecordedAt.Local().Format(time.DateTime), r.Mode, strings.Join(r.ExecutionIDs, ","), r.StatusName, result, r.Identity)
		}
		return tw.Flush()
	},
}

func init() {
	HistoryCmd.Flags().String("execution", "", "only transitions touching this execution id")
	HistoryCmd.Flags().Int("limit", 50, "maximum rows (0 = all)")
}
