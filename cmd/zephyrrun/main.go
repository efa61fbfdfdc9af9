package main

import (
	"context"
	"strings"

	"github.com/loykin/zephyrrun/cmd/zephyrrun/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "zephyrrun",
	Short:         "Report test results to Jira Zephyr (ZAPI)",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	v := viper.GetViper()
	v.SetDefault("config", commands.DefaultConfigPath)

	// Environment variables: ZEPHYRRUN_BASE_URL, ZEPHYRRUN_SECRET, ...
	v.SetEnvPrefix("ZEPHYRRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	pf := rootCmd.PersistentFlags()
	pf.String("config", v.GetString("config"), "path to a config yaml")
	pf.String("base-url", "", "deployment base URL (overrides base_url)")
	pf.String("identity", "", "login identity (overrides identity)")
	pf.String("scheme", "", "preferred scheme: basic, bearer or session")
	pf.StringSlice("order", nil, "strategy order, e.g. session,basic")
	pf.Bool("no-history", false, "do not record transitions")

	_ = v.BindPFlag("config", pf.Lookup("config"))
	_ = v.BindPFlag("base_url", pf.Lookup("base-url"))
	_ = v.BindPFlag("identity", pf.Lookup("identity"))
	_ = v.BindPFlag("scheme", pf.Lookup("scheme"))
	_ = v.BindPFlag("order", pf.Lookup("order"))
	_ = v.BindPFlag("no_history", pf.Lookup("no-history"))
	// secret is environment only (ZEPHYRRUN_SECRET) so it never shows up in process lists.
	_ = v.BindEnv("secret")

	rootCmd.AddCommand(commands.LoginCmd)
	rootCmd.AddCommand(commands.ProbeCmd)
	rootCmd.AddCommand(commands.CyclesCmd)
	rootCmd.AddCommand(commands.FindCmd)
	rootCmd.AddCommand(commands.SetStatusCmd)
	rootCmd.AddCommand(commands.BulkCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
	rootCmd.AddCommand(commands.ServeCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		exitHandler.LogFatalError(err, "command execution failed")
	}
}
