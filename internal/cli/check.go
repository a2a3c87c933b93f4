package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/equiply/workflow-service/internal/domain"
	"github.com/equiply/workflow-service/internal/workflow"
)

// ErrTransitionDenied makes a refused check exit non-zero.
var ErrTransitionDenied = errors.New("transition denied")

// CheckCmd returns the check command
func CheckCmd() *cobra.Command {
	var from, to, role string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a role may take a transition",
		Example: `  workflowctl check --from SUBMITTED --to UNDER_REVIEW --role MANAGER
  workflowctl check --from JOB_SCHEDULED --to JOB_IN_PROGRESS --role USER`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), from, to, role)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Current status")
	cmd.Flags().StringVar(&to, "to", "", "Requested status")
	cmd.Flags().StringVar(&role, "role", "", "Actor role (USER, OPERATOR, MANAGER, ADMIN)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

func runCheck(out io.Writer, rawFrom, rawTo, rawRole string) error {
	from, err := workflow.ParseStatus(rawFrom)
	if err != nil {
		return err
	}
	to, err := workflow.ParseStatus(rawTo)
	if err != nil {
		return err
	}
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return err
	}

	decision := workflow.Validate(from, to, role)
	if decision.Allowed {
		fmt.Fprintf(out, "%s %s -> %s for %s\n", color.New(color.FgGreen).Sprint("ALLOWED"), from, to, role)
		return nil
	}
	fmt.Fprintf(out, "%s %s: %s\n", color.New(color.FgRed).Sprint("DENIED"), decision.Reason, decision.Message)
	return fmt.Errorf("%w: %s", ErrTransitionDenied, decision.Reason)
}
