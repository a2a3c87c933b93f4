package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/equiply/workflow-service/internal/config"
	"github.com/equiply/workflow-service/internal/events"
	"github.com/equiply/workflow-service/internal/observability"
	"github.com/equiply/workflow-service/internal/persistence"
)

// WatchCmd returns the watch command
func WatchCmd() *cobra.Command {
	var requestID string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Tail workflow events published to Redis",
		Long: `Subscribe to WORKFLOW_EVENTS_CHANNEL and print each event as it is
published. Use --request to follow a single service request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg.Logger.Format = config.LogFormatConsole
			logger, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			redis := persistence.NewRedis(ctx, cfg.Redis, logger)
			defer redis.Close()

			logger.Info("watching workflow events", zap.String("channel", cfg.Workflow.EventsChannel))
			out := cmd.OutOrStdout()
			return redis.WatchEvents(ctx, cfg.Workflow.EventsChannel, logger, func(event events.Event) error {
				if requestID != "" && event.RequestID != requestID {
					return nil
				}
				fmt.Fprintln(out, formatEvent(event))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&requestID, "request", "", "Only show events for this service request id")

	return cmd
}

func formatEvent(event events.Event) string {
	line := fmt.Sprintf("%s %-32s %s", event.Timestamp.Format(time.RFC3339), color.New(color.FgCyan).Sprint(event.Type), event.RequestID)
	if event.Actor.ID != "" {
		line += fmt.Sprintf(" by %s (%s)", event.Actor.ID, event.Actor.Role)
	}

	payload, _ := event.Payload.(map[string]any)
	switch event.Type {
	case events.EventStatusChanged:
		line += fmt.Sprintf(" %v -> %v", payload["from_status"], payload["to_status"])
	case events.EventOperatorAssigned:
		line += fmt.Sprintf(" operator=%v", payload["operator_id"])
	case events.EventAssignmentCancelled:
		line += fmt.Sprintf(" assignment=%v", payload["assignment_id"])
	case events.EventServiceRequestCreated:
		line += fmt.Sprintf(" status=%v", payload["status"])
	}
	return line
}
