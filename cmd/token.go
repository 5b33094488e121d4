package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Alturino/catalog/internal/config"
	"github.com/Alturino/catalog/internal/constants"
	"github.com/Alturino/catalog/internal/log"
	"github.com/Alturino/catalog/internal/token"
)

func newTokenCommand() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Print an admin bearer token signed with application.secret_key",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			logger := zerolog.Ctx(c).
				With().
				Str(log.KeyTag, "main token").
				Str(log.KeyProcess, "generating token").
				Logger()
			c = logger.WithContext(c)

			cfg := config.Get(c, constants.AppProductService)
			if cfg.Application.SecretKey == "" {
				err := errors.New("application.secret_key is empty, auth is disabled")
				logger.Error().Err(err).Msg(err.Error())
				return err
			}

			signed, err := token.GenerateToken(cfg.Application.SecretKey, subject, ttl)
			if err != nil {
				logger.Error().Err(err).Msg(err.Error())
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return tokenCmd
}
