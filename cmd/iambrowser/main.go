// Command iambrowser is a terminal UI for browsing AWS IAM users, roles and
// policies across all configured profiles.
package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tatsuya4559/iambrowser/pkg/config"
	"github.com/tatsuya4559/iambrowser/pkg/console"
	"github.com/tatsuya4559/iambrowser/pkg/iam"
	"github.com/tatsuya4559/iambrowser/pkg/ui"
)

var rootCmd = &cobra.Command{
	Use:           "iambrowser",
	Short:         "Browse AWS IAM users, roles and policies in the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := cmd.Flags().GetBool("dev")
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

		if dev {
			cfg.Dev = true
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, cleanup, err := buildLogger(cfg, configDir)
		if err != nil {
			return err
		}
		defer cleanup()

		app, err := ui.New(cfg, logger, iam.Dial)
		if err != nil {
			return err
		}

		program := tea.NewProgram(app, tea.WithAltScreen())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if cfg.Dev {
			watcher := config.NewWatcher(configDir, args, func(updated *config.Config) {
				program.Send(ui.ConfigReloadedMsg{Config: updated})
			})
			go func() {
				if err := watcher.Run(ctx, logger); err != nil && !eris.Is(err, context.Canceled) {
					logger.Warn().Err(err).Msg("config watcher stopped")
				}
			}()
		}

		logger.Info().Bool("dev", cfg.Dev).Msg("starting iambrowser")
		_, err = program.Run()
		return err
	},
}

// buildLogger assembles the zerolog sink: the log file when configured and,
// in dev mode, a stream to the debug console. The TUI owns the terminal, so
// nothing ever logs to stdout or stderr.
func buildLogger(cfg *config.Config, configDir string) (*zerolog.Logger, func(), error) {
	writers := make([]io.Writer, 0, 2)
	closers := make([]io.Closer, 0, 2)

	logFile := cfg.Log.File
	if logFile == "" && cfg.Dev {
		logFile = filepath.Join(configDir, "iambrowser.log")
	}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0770); err != nil {
			return nil, nil, eris.Wrapf(err, "failed to create the log directory for %s", logFile)
		}

		handle, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0660)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "failed to open %s", logFile)
		}

		writers = append(writers, handle)
		closers = append(closers, handle)
	}

	if cfg.Dev {
		stream := console.NewNetWriter(cfg.Console.Address)
		writers = append(writers, stream)
		closers = append(closers, stream)
	}

	var sink io.Writer = io.Discard
	switch len(writers) {
	case 1:
		sink = writers[0]
	default:
		if len(writers) > 1 {
			sink = zerolog.MultiLevelWriter(writers...)
		}
	}

	logger := zerolog.New(sink).Level(cfg.LogLevel()).With().Timestamp().Logger()
	cleanup := func() {
		for _, closer := range closers {
			closer.Close()
		}
	}

	return &logger, cleanup, nil
}

func init() {
	rootCmd.Flags().Bool("dev", false, "enable dev mode (debug logging, console streaming, live config reload)")

	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		return eris.ToString(err, true)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		eprintln(err)
		os.Exit(1)
	}
}

func eprintln(err error) {
	os.Stderr.WriteString(eris.ToString(err, os.Getenv("IAMBROWSER_DEBUG") != "") + "\n")
}
