package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/travelog-backend/internal/platform/authtoken"
)

type tokenOutput struct {
	UserID    string    `json:"user_id" yaml:"user_id"`
	Token     string    `json:"token" yaml:"token"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
}

func newTokenCmd(env *cliEnv) *cobra.Command {
	var (
		user string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user (development only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("invalid --user %q: %w", user, err)
			}
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive")
			}
			verifier, err := authtoken.NewVerifier(env.cfg.JWTSecretKey)
			if err != nil {
				return err
			}
			tok, err := verifier.Issue(userID, ttl)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), env.format(), tokenOutput{
				UserID:    userID.String(),
				Token:     tok,
				ExpiresAt: time.Now().Add(ttl).UTC().Truncate(time.Second),
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id to embed as the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
