package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/tatsuya4559/iambrowser/pkg/config"
	"github.com/tatsuya4559/iambrowser/pkg/console"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Runs the standalone debug console",
	Long: `Starts a TCP console that renders the log streams of iambrowser instances
running in dev mode. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return err
		}

		configDir, err := config.Dir()
		if err != nil {
			return err
		}

		cfg, err := config.Load(configDir, args)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		server := console.NewServer(cfg.Console.Address, verbose)
		return server.Run(ctx)
	},
}

func init() {
	consoleCmd.Flags().BoolP("verbose", "v", false, "also show debug and trace events")
	rootCmd.AddCommand(consoleCmd)
}
