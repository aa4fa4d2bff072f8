// Package tool bundles the project's build helpers: dependency locking and
// syncing, commit hook installation and cross-platform POSIX commands for
// task actions. The task runner is mounted as a subcommand as well.
package tool

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	taskcmd "github.com/tatsuya4559/iambrowser/pkg/taskrun/cmd"
)

var rootCmd = &cobra.Command{
	Use:   "tool",
	Short: "Build tools for iambrowser",
	Long: `This command bundles several tools that are used to prepare the iambrowser
workspace. This includes pinning and installing Go CLI tools, installing the
commit hook, ...`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(taskcmd.RootCmd)
}

// Execute runs the root command. A failed task action surfaces its own exit
// status, exactly like the standalone task binary.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	logger := zerolog.New(taskcmd.NewConsoleWriter())
	logger.Error().Err(err).Msg("command failed")
	os.Exit(taskcmd.ExitStatus(err))
}
