package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Alturino/catalog/internal/constants"
	"github.com/Alturino/catalog/internal/log"
	productCmd "github.com/Alturino/catalog/product/cmd"
)

func Start() {
	logger := log.Get(os.Getenv("APPLICATION_LOG_PATH"), os.Getenv("APPLICATION_ENV")).
		With().
		Str(log.KeyAppName, constants.AppMainCatalog).
		Str(log.KeyTag, "main Start").
		Logger()

	logger.Info().Msg("adding listener for SIGINT and SIGTERM")
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info().Msg("added listener for SIGINT and SIGTERM")

	c = logger.WithContext(c)

	rootCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Product catalog service",
	}
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "product",
			Short: "Run product service",
			Run: func(cmd *cobra.Command, args []string) {
				productCmd.RunProductService(cmd.Context())
			},
		},
		newMigrateCommand(),
		newTokenCommand(),
	)
	if err := rootCmd.ExecuteContext(c); err != nil {
		logger.Fatal().Err(err).Msgf("error when executing command=%s", err.Error())
	}
}
