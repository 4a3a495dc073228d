package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/checkin-engine/internal/app"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
	"github.com/yungbote/checkin-engine/internal/services"
)

func init() {
	var userFlag, roleFlag, coachFlag string
	var ttlFlag time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the admin API or SSE stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.LogMode)
			if err != nil {
				return err
			}
			userID := uuid.New()
			if strings.TrimSpace(userFlag) != "" {
				if userID, err = uuid.Parse(userFlag); err != nil {
					return fmt.Errorf("--user: %w", err)
				}
			}
			var coachID *uuid.UUID
			if strings.TrimSpace(coachFlag) != "" {
				id, err := uuid.Parse(coachFlag)
				if err != nil {
					return fmt.Errorf("--coach: %w", err)
				}
				coachID = &id
			}
			switch roleFlag {
			case services.RoleAdmin, services.RoleCoach, services.RoleClient:
			default:
				return fmt.Errorf("--role must be admin, coach or client")
			}
			auth := services.NewAuthService(log, clock.New(), cfg.JWTSecretKey, ttlFlag)
			tok, err := auth.IssueToken(userID, roleFlag, coachID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, tok)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&userFlag, "user", "", "User ID (random when empty)")
	tokenCmd.Flags().StringVar(&roleFlag, "role", services.RoleAdmin, "admin, coach or client")
	tokenCmd.Flags().StringVar(&coachFlag, "coach", "", "Coach ID claim")
	tokenCmd.Flags().DurationVar(&ttlFlag, "ttl", time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
