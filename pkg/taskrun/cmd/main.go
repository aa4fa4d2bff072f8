// Package cmd implements the CLI for the taskrun package.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tatsuya4559/iambrowser/pkg/taskrun"
)

// RootCmd parses the first tasks.star file found above the working directory
// and executes the given targets. Without a target it falls back to the
// script's default task or the task listing.
var RootCmd = &cobra.Command{
	Use:           "task [flags] [key=value ...] [target ...]",
	Short:         "Runs the project's declarative tasks",
	Long:          `This command parses the first tasks.star file it finds and executes the given tasks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets := make([]string, 0)
		options := make(map[string]string)
		dryRun, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}

		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		for _, part := range args {
			pos := strings.Index(part, "=")
			if pos > -1 {
				options[part[:pos]] = part[pos+1:]
			} else {
				targets = append(targets, part)
			}
		}

		logger := zerolog.New(NewConsoleWriter())
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		ctx = taskrun.WithLogger(ctx, &logger)

		scriptPath, err := findTaskScript()
		if err != nil {
			return err
		}

		projectRoot := filepath.Dir(scriptPath)
		taskList, taskOptions, err := taskrun.RunScript(ctx, scriptPath, projectRoot, options, true)
		if err != nil {
			return eris.Wrap(err, "failed to parse tasks")
		}

		cachePath := filepath.Join(projectRoot, taskrun.CacheName)
		if err := taskrun.WriteCache(cachePath, options, taskList); err != nil {
			logger.Warn().Err(err).Msg("failed to write task cache")
		}

		if len(targets) == 0 {
			if defaultTask, ok := taskList.Default(); ok {
				targets = []string{defaultTask.Short}
			} else {
				targets = []string{"help"}
			}
		}

		runner := taskrun.NewRunner(taskList, projectRoot)
		runner.DryRun = dryRun
		runner.Force = force

		for _, name := range targets {
			if name == "help" {
				printTaskList(cmd, taskList, taskOptions)
				continue
			}

			if err := runner.Invoke(ctx, name); err != nil {
				return err
			}
		}

		return nil
	},
}

// findTaskScript walks up from the working directory until it finds a
// tasks.star file.
func findTaskScript() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", eris.Wrap(err, "failed to retrieve the current working directory")
	}

	path := wd
	for {
		scriptPath := filepath.Join(path, taskrun.ScriptName)
		_, err := os.Stat(scriptPath)
		if err == nil {
			relPath, err := filepath.Rel(wd, scriptPath)
			if err != nil {
				return scriptPath, nil
			}
			return relPath, nil
		}
		if !eris.Is(err, os.ErrNotExist) {
			return "", eris.Wrapf(err, "failed to check %s", scriptPath)
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", eris.Errorf("no %s file found", taskrun.ScriptName)
		}

		path = parent
	}
}

// printTaskList renders the two-column help listing: visible tasks in
// declaration order, then the declared options with their defaults.
func printTaskList(cmd *cobra.Command, list *taskrun.TaskList, options map[string]taskrun.Option) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Available tasks:")

	maxNameLen := 0
	visible := make([]*taskrun.Task, 0, list.Len())
	for _, task := range list.Ordered() {
		if task.Hidden || task.Desc == "" {
			continue
		}

		if len(task.Short) > maxNameLen {
			maxNameLen = len(task.Short)
		}
		visible = append(visible, task)
	}

	lineFmt := fmt.Sprintf(" * %%-%ds %%s\n", maxNameLen+3)
	for _, task := range visible {
		fmt.Fprintf(out, lineFmt, task.Short+":", task.Desc)
	}

	if len(options) > 0 {
		names := make([]string, 0, len(options))
		for name := range options {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(out, "\nOptions (pass as key=value):")
		for _, name := range names {
			opt := options[name]
			if opt.Help == "" {
				fmt.Fprintf(out, " * %s (default: %q)\n", name, opt.Default())
			} else {
				fmt.Fprintf(out, " * %s (default: %q) %s\n", name, opt.Default(), opt.Help)
			}
		}
	}
}

// ExitStatus maps a command error to the process exit status: a failed
// action's own status when it carries one, 1 for everything else. Wrapping
// binaries use it too, so the runner is transparent to scripts regardless
// of how it was invoked.
func ExitStatus(err error) int {
	var actionErr *taskrun.ActionError
	if errors.As(err, &actionErr) && actionErr.Status != 0 {
		return actionErr.Status
	}

	return 1
}

// Execute runs RootCmd and exits with the failing action's status when a
// task command fails.
func Execute() {
	err := RootCmd.Execute()
	if err == nil {
		return
	}

	logger := zerolog.New(NewConsoleWriter())
	logger.Error().Err(err).Msg("task failed")
	os.Exit(ExitStatus(err))
}

func init() {
	RootCmd.Flags().BoolP("dry", "n", false, "dry run; only print the commands, don't execute anything")
	RootCmd.Flags().BoolP("force", "f", false, "force build; always execute the passed steps even if they don't have to run")
}
