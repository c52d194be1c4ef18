package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/Yusufzhafir/tradeview/internal/router/middleware"
	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenScope   string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token signed with auth.jwt_secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret is not set")
		}
		maker, err := middleware.NewJWTMaker(cfg.Auth.JWTSecret)
		if err != nil {
			return err
		}
		token, claims, err := maker.CreateToken(tokenSubject, tokenScope, tokenTTL)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires %s\n", token, claims.ExpiresAt.Time.Format(time.RFC3339))
		return err
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "dashboard", "token subject")
	tokenCmd.Flags().StringVar(&tokenScope, "scope", "read", "token scope")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
