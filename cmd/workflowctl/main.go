package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/equiply/workflow-service/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "workflowctl",
		Short: "Operate the service-request workflow service",
		Long: `workflowctl is the operator tool for the workflow service. The graph and
check commands work offline; migrate and seed need POSTGRES_DSN; watch needs
REDIS_ADDR.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.GraphCmd())
	rootCmd.AddCommand(cli.CheckCmd())

	// Database tools
	rootCmd.AddCommand(cli.MigrateCmd())
	rootCmd.AddCommand(cli.SeedCmd())

	// Event stream
	rootCmd.AddCommand(cli.WatchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
