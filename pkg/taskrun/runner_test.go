package taskrun_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatsuya4559/iambrowser/pkg/taskrun"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()

	logger := zerolog.Nop()
	return taskrun.WithLogger(context.Background(), &logger)
}

func newRunner(list *taskrun.TaskList, root string) *taskrun.Runner {
	runner := taskrun.NewRunner(list, root)
	runner.SetOutput(io.Discard, io.Discard)
	return runner
}

func readLog(t *testing.T, dir string) []string {
	t.Helper()

	content, err := os.ReadFile(filepath.Join(dir, "order.log"))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	return strings.Fields(string(content))
}

func TestInvokeRunsPrerequisitesInOrder(t *testing.T) {
	dir := t.TempDir()
	list := buildList(t,
		&taskrun.Task{Short: "a", Base: dir, Cmds: []taskrun.Cmd{
			taskrun.ShellCmd{TaskName: "a", Content: "echo a >> order.log"},
		}},
		&taskrun.Task{Short: "b", Base: dir, Deps: []string{"a"}, Cmds: []taskrun.Cmd{
			taskrun.ShellCmd{TaskName: "b", Content: "echo b >> order.log"},
		}},
	)

	err := newRunner(list, dir).Invoke(testCtx(t), "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, readLog(t, dir))
}

func TestInvokeRunsSharedPrerequisiteOnce(t *testing.T) {
	dir := t.TempDir()
	echo := func(name string, deps ...string) *taskrun.Task {
		return &taskrun.Task{Short: name, Base: dir, Deps: deps, Cmds: []taskrun.Cmd{
			taskrun.ShellCmd{TaskName: name, Content: "echo " + name + " >> order.log"},
		}}
	}

	list := buildList(t,
		echo("base"),
		echo("left", "base"),
		echo("right", "base"),
		echo("top", "left", "right"),
	)

	err := newRunner(list, dir).Invoke(testCtx(t), "top")
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "left", "right", "top"}, readLog(t, dir))
}

func TestInvokeAbortsOnFirstFailure(t *testing.T) {
	dir := t.TempDir()
	list := buildList(t,
		&taskrun.Task{Short: "broken", Base: dir, Cmds: []taskrun.Cmd{
			taskrun.ShellCmd{TaskName: "broken", Content: "exit 3"},
			taskrun.ShellCmd{TaskName: "broken", Content: "echo broken >> order.log", Index: 1},
		}},
		&taskrun.Task{Short: "dependent", Base: dir, Deps: []string{"broken"}, Cmds: []taskrun.Cmd{
			taskrun.ShellCmd{TaskName: "dependent", Content: "echo dependent >> order.log"},
		}},
	)

	err := newRunner(list, dir).Invoke(testCtx(t), "dependent")

	var actionErr *taskrun.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, 3, actionErr.Status)
	assert.Equal(t, "broken", actionErr.TaskName)
	assert.Empty(t, readLog(t, dir), "nothing may run after the failing action")
}

func TestInvokeSkipsUpToDateTask(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "spec.txt")
	require.NoError(t, os.WriteFile(input, []byte("v1"), 0660))

	list := buildList(t,
		&taskrun.Task{
			Short:   "compile",
			Base:    dir,
			Inputs:  []string{"spec.txt"},
			Outputs: []string{"out.lock"},
			Cmds: []taskrun.Cmd{
				taskrun.ShellCmd{TaskName: "compile", Content: "echo compile >> order.log"},
				taskrun.ShellCmd{TaskName: "compile", Content: "echo locked > out.lock", Index: 1},
			},
		},
	)

	// first run: output missing, must execute
	require.NoError(t, newRunner(list, dir).Invoke(testCtx(t), "compile"))
	assert.Equal(t, []string{"compile"}, readLog(t, dir))

	// make sure the output is strictly newer than the input
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(input, past, past))

	// second run: output newer than input, no-op
	require.NoError(t, newRunner(list, dir).Invoke(testCtx(t), "compile"))
	assert.Equal(t, []string{"compile"}, readLog(t, dir))

	// touching the input forces a regeneration
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(input, future, future))

	require.NoError(t, newRunner(list, dir).Invoke(testCtx(t), "compile"))
	assert.Equal(t, []string{"compile", "compile"}, readLog(t, dir))
}

func TestInvokeForceBypassesStalenessCheck(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "spec.txt")
	require.NoError(t, os.WriteFile(input, []byte("v1"), 0660))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(input, past, past))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out.lock"), []byte("x"), 0660))

	list := buildList(t,
		&taskrun.Task{
			Short:   "compile",
			Base:    dir,
			Inputs:  []string{"spec.txt"},
			Outputs: []string{"out.lock"},
			Cmds: []taskrun.Cmd{
				taskrun.ShellCmd{TaskName: "compile", Content: "echo compile >> order.log"},
			},
		},
	)

	runner := newRunner(list, dir)
	runner.Force = true
	require.NoError(t, runner.Invoke(testCtx(t), "compile"))
	assert.Equal(t, []string{"compile"}, readLog(t, dir))
}

func TestInvokeTaskWithoutOutputsAlwaysRuns(t *testing.T) {
	dir := t.TempDir()
	list := buildList(t,
		&taskrun.Task{Short: "sync", Base: dir, Cmds: []taskrun.Cmd{
			taskrun.ShellCmd{TaskName: "sync", Content: "echo sync >> order.log"},
		}},
	)

	require.NoError(t, newRunner(list, dir).Invoke(testCtx(t), "sync"))
	require.NoError(t, newRunner(list, dir).Invoke(testCtx(t), "sync"))
	assert.Equal(t, []string{"sync", "sync"}, readLog(t, dir))
}

func TestInvokeSkipIfExists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), []byte(""), 0660))

	list := buildList(t,
		&taskrun.Task{
			Short:        "setup",
			Base:         dir,
			SkipIfExists: []string{"marker"},
			Cmds: []taskrun.Cmd{
				taskrun.ShellCmd{TaskName: "setup", Content: "echo setup >> order.log"},
			},
		},
	)

	require.NoError(t, newRunner(list, dir).Invoke(testCtx(t), "setup"))
	assert.Empty(t, readLog(t, dir))
}

func TestInvokeAggregateTaskRunsOnlyPrerequisites(t *testing.T) {
	dir := t.TempDir()
	list := buildList(t,
		&taskrun.Task{Short: "sync", Base: dir, Cmds: []taskrun.Cmd{
			taskrun.ShellCmd{TaskName: "sync", Content: "echo sync >> order.log"},
		}},
		&taskrun.Task{Short: "hook", Base: dir, Cmds: []taskrun.Cmd{
			taskrun.ShellCmd{TaskName: "hook", Content: "echo hook >> order.log"},
		}},
		&taskrun.Task{Short: "prepare", Base: dir, Deps: []string{"sync", "hook"}},
	)

	require.NoError(t, newRunner(list, dir).Invoke(testCtx(t), "prepare"))
	assert.Equal(t, []string{"sync", "hook"}, readLog(t, dir))
}

func TestInvokeDryRunExecutesNothing(t *testing.T) {
	dir := t.TempDir()
	list := buildList(t,
		&taskrun.Task{Short: "a", Base: dir, Cmds: []taskrun.Cmd{
			taskrun.ShellCmd{TaskName: "a", Content: "echo a >> order.log"},
		}},
	)

	runner := newRunner(list, dir)
	runner.DryRun = true
	require.NoError(t, runner.Invoke(testCtx(t), "a"))
	assert.Empty(t, readLog(t, dir))
}

func TestInvokeInlineTaskRefRunsOnce(t *testing.T) {
	dir := t.TempDir()
	shared := &taskrun.Task{Short: "shared", Base: dir, Cmds: []taskrun.Cmd{
		taskrun.ShellCmd{TaskName: "shared", Content: "echo shared >> order.log"},
	}}
	list := buildList(t,
		shared,
		&taskrun.Task{Short: "outer", Base: dir, Deps: []string{"shared"}, Cmds: []taskrun.Cmd{
			taskrun.RefCmd{Task: shared},
			taskrun.ShellCmd{TaskName: "outer", Content: "echo outer >> order.log", Index: 1},
		}},
	)

	require.NoError(t, newRunner(list, dir).Invoke(testCtx(t), "outer"))
	assert.Equal(t, []string{"shared", "outer"}, readLog(t, dir))
}

func TestInvokeUnknownTargetExecutesNothing(t *testing.T) {
	dir := t.TempDir()
	list := buildList(t,
		&taskrun.Task{Short: "a", Base: dir, Cmds: []taskrun.Cmd{
			taskrun.ShellCmd{TaskName: "a", Content: "echo a >> order.log"},
		}},
	)

	err := newRunner(list, dir).Invoke(testCtx(t), "missing")
	var unknownErr *taskrun.UnknownTaskError
	require.ErrorAs(t, err, &unknownErr)
	assert.Empty(t, readLog(t, dir))
}
