package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/equiply/workflow-service/internal/domain"
	"github.com/equiply/workflow-service/internal/workflow"
)

// GraphCmd returns the graph command
func GraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the service-request status graph",
		Long: `List every status with the statuses reachable from it and the roles
allowed to take each edge. Terminal statuses are highlighted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printGraph(cmd.OutOrStdout())
			return nil
		},
	}
}

func printGraph(out io.Writer) {
	terminal := color.New(color.FgRed, color.Bold)
	for _, status := range workflow.Statuses() {
		if workflow.IsTerminal(status) {
			fmt.Fprintf(out, "%s %s\n", terminal.Sprint(status), color.New(color.FgHiBlack).Sprint("(terminal)"))
		} else {
			fmt.Fprintln(out, color.New(color.FgCyan).Sprint(status))
		}
		for _, next := range workflow.ValidNextStatuses(status) {
			fmt.Fprintf(out, "  -> %-20s %s\n", next, rolesLabel(workflow.RequiredRoles(status, next)))
		}
	}
}

func rolesLabel(roles []domain.Role) string {
	names := make([]string, 0, len(roles)+1)
	for _, r := range roles {
		names = append(names, string(r))
	}
	names = append(names, string(domain.RoleAdmin))
	return "[" + strings.Join(names, ", ") + "]"
}
