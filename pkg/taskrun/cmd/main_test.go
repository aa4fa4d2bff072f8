package cmd

import (
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/tatsuya4559/iambrowser/pkg/taskrun"
)

func renderHelp(t *testing.T, list *taskrun.TaskList, options map[string]taskrun.Option) string {
	t.Helper()

	out := strings.Builder{}
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	printTaskList(cmd, list, options)
	return out.String()
}

func TestHelpListsTasksInDeclarationOrder(t *testing.T) {
	list := taskrun.NewTaskList()
	require.NoError(t, list.Add(&taskrun.Task{Short: "zeta", Desc: "Declared first"}))
	require.NoError(t, list.Add(&taskrun.Task{Short: "alpha", Desc: "Declared second"}))
	require.NoError(t, list.Add(&taskrun.Task{Short: "secret", Desc: "Hidden", Hidden: true}))
	require.NoError(t, list.Add(&taskrun.Task{Short: "bare"}))

	output := renderHelp(t, list, nil)
	assert.Less(t, strings.Index(output, "zeta:"), strings.Index(output, "alpha:"))
	assert.NotContains(t, output, "secret")
	assert.NotContains(t, output, "bare")
}

func TestHelpListsOptionsAlphabetically(t *testing.T) {
	list := taskrun.NewTaskList()
	require.NoError(t, list.Add(&taskrun.Task{Short: "build", Desc: "Builds everything"}))

	options := map[string]taskrun.Option{
		"zeta":  {DefaultValue: starlark.String("3"), Help: "the last one"},
		"alpha": {DefaultValue: starlark.String("1")},
		"mid":   {DefaultValue: starlark.String("2")},
	}

	output := renderHelp(t, list, options)
	posAlpha := strings.Index(output, "* alpha")
	posMid := strings.Index(output, "* mid")
	posZeta := strings.Index(output, "* zeta")

	require.GreaterOrEqual(t, posAlpha, 0)
	assert.Less(t, posAlpha, posMid)
	assert.Less(t, posMid, posZeta)

	// map iteration order must not leak into the listing
	assert.Equal(t, output, renderHelp(t, list, options))
}

func TestExitStatusCarriesTheActionStatus(t *testing.T) {
	failed := &taskrun.ActionError{TaskName: "build", Cmd: "false", Status: 3}
	assert.Equal(t, 3, ExitStatus(failed))
	assert.Equal(t, 3, ExitStatus(eris.Wrap(failed, "task build failed")))
}

func TestExitStatusDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, ExitStatus(eris.New("not an action failure")))
	assert.Equal(t, 1, ExitStatus(&taskrun.ActionError{TaskName: "build", Cmd: "true", Status: 0}))
}
