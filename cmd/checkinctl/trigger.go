package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/checkin-engine/internal/app"
	"github.com/yungbote/checkin-engine/internal/modules/checkin"
)

type triggerer interface {
	Trigger(ctx context.Context, req checkin.TriggerRequest) (checkin.RunSummary, error)
}

func init() {
	var clientFlag, coachFlag string
	var forceFlag bool
	triggerCmd := &cobra.Command{
		Use:   "trigger",
		Short: "Run check-ins now for one client, one coach, or everyone",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildTriggerRequest(clientFlag, coachFlag, forceFlag)
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return runTrigger(cmd.Context(), a.Services.Orchestrator, req, os.Stdout)
		},
	}
	triggerCmd.Flags().StringVar(&clientFlag, "client", "", "Client ID")
	triggerCmd.Flags().StringVar(&coachFlag, "coach", "", "Coach ID (all of the coach's active clients)")
	triggerCmd.Flags().BoolVar(&forceFlag, "force", false, "Send even if this week's check-in already exists")
	rootCmd.AddCommand(triggerCmd)

	weekStartCmd := &cobra.Command{
		Use:   "week-start",
		Short: "Print the dedupe key a run started now would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			w, err := cfg.Window()
			if err != nil {
				return err
			}
			now := nowFunc()
			_, _ = fmt.Fprintf(os.Stdout, "%s (window open: %v)\n",
				checkin.WeekStart(now, loc, w.Weekday), checkin.IsTriggerWindow(now, loc, w))
			return nil
		},
	}
	rootCmd.AddCommand(weekStartCmd)
}

func buildTriggerRequest(clientID, coachID string, force bool) (checkin.TriggerRequest, error) {
	req := checkin.TriggerRequest{Force: force}
	if s := strings.TrimSpace(clientID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return req, fmt.Errorf("--client: %w", err)
		}
		req.ClientID = &id
	}
	if s := strings.TrimSpace(coachID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return req, fmt.Errorf("--coach: %w", err)
		}
		req.CoachID = &id
	}
	return req, nil
}

// runTrigger prints one line per client and a closing tally.
func runTrigger(ctx context.Context, t triggerer, req checkin.TriggerRequest, w io.Writer) error {
	sum, err := t.Trigger(ctx, req)
	if err != nil {
		return err
	}
	for _, o := range sum.Outcomes {
		_, _ = fmt.Fprintln(w, o.String())
	}
	counts := sum.Counts()
	_, _ = fmt.Fprintf(w, "week %s: %d sent, %d forced, %d skipped, %d failed\n",
		sum.WeekStart,
		counts[checkin.StatusSent], counts[checkin.StatusForced],
		counts[checkin.StatusSkipped], counts[checkin.StatusFailed])
	if counts[checkin.StatusFailed] > 0 {
		return fmt.Errorf("%d check-in(s) failed", counts[checkin.StatusFailed])
	}
	return nil
}
