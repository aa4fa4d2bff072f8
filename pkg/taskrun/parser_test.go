package taskrun_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatsuya4559/iambrowser/pkg/taskrun"
)

func writeScript(t *testing.T, content string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, taskrun.ScriptName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0660))
	return path, dir
}

func TestRunScriptCollectsTasksInDeclarationOrder(t *testing.T) {
	path, dir := writeScript(t, `
def configure():
    task("zulu", desc="declared first", cmds=["echo z"])
    task("alpha", desc="declared second", deps=["zulu"], cmds=["echo a"])
`)

	list, _, err := taskrun.RunScript(testCtx(t), path, dir, nil, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"zulu", "alpha"}, names(list.Ordered()))

	alpha, ok := list.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, []string{"zulu"}, alpha.Deps)
	assert.Equal(t, "declared second", alpha.Desc)
}

func TestRunScriptDefaultTask(t *testing.T) {
	path, dir := writeScript(t, `
def configure():
    task("build", desc="build it", cmds=["echo build"])
    task("all", desc="the default", deps=["build"], default=True)
`)

	list, _, err := taskrun.RunScript(testCtx(t), path, dir, nil, true)
	require.NoError(t, err)

	defaultTask, ok := list.Default()
	require.True(t, ok)
	assert.Equal(t, "all", defaultTask.Short)
}

func TestRunScriptOptions(t *testing.T) {
	path, dir := writeScript(t, `
flavor = option("flavor", default="vanilla", help="build flavor")

def configure():
    task("bake", desc="bake " + flavor, cmds=["echo " + flavor])
`)

	list, options, err := taskrun.RunScript(testCtx(t), path, dir, map[string]string{"flavor": "mocha"}, true)
	require.NoError(t, err)

	require.Contains(t, options, "flavor")
	assert.Equal(t, "vanilla", options["flavor"].Default())
	assert.Equal(t, "build flavor", options["flavor"].Help)

	bake, ok := list.Get("bake")
	require.True(t, ok)
	assert.Equal(t, "bake mocha", bake.Desc)
}

func TestRunScriptNamelessTaskIsHidden(t *testing.T) {
	path, dir := writeScript(t, `
def configure():
    helper = task(cmds=["echo helper"])
    task("main", desc="uses helper", cmds=[helper, "echo main"])
`)

	list, _, err := taskrun.RunScript(testCtx(t), path, dir, nil, true)
	require.NoError(t, err)
	require.Equal(t, 2, list.Len())

	helper := list.Ordered()[0]
	assert.True(t, helper.Hidden)
	assert.True(t, strings.HasPrefix(helper.Short, "auto#"))

	main, ok := list.Get("main")
	require.True(t, ok)
	require.Len(t, main.Cmds, 2)
	assert.Same(t, helper, main.Cmds[0].TaskRef())
}

func TestRunScriptRejectsReservedNames(t *testing.T) {
	path, dir := writeScript(t, `
def configure():
    task("help", desc="nope")
`)

	_, _, err := taskrun.RunScript(testCtx(t), path, dir, nil, true)
	assert.Error(t, err)
}

func TestRunScriptRejectsTaskInInitPhase(t *testing.T) {
	path, dir := writeScript(t, `
task("early", desc="too early")

def configure():
    pass
`)

	_, _, err := taskrun.RunScript(testCtx(t), path, dir, nil, true)
	assert.Error(t, err)
}

func TestRunScriptRequiresConfigure(t *testing.T) {
	path, dir := writeScript(t, `x = 1`)

	_, _, err := taskrun.RunScript(testCtx(t), path, dir, nil, true)
	assert.Error(t, err)
}

func TestRunScriptAppliesEnvOverrides(t *testing.T) {
	path, dir := writeScript(t, `
def configure():
    setenv("BAKE_MODE", "fast")
    task("plain", desc="inherits the override", cmds=["echo 1"])
    task("custom", desc="overrides locally", env={"BAKE_MODE": "slow"}, cmds=["echo 2"])
`)

	list, _, err := taskrun.RunScript(testCtx(t), path, dir, nil, true)
	require.NoError(t, err)

	plain, _ := list.Get("plain")
	assert.Equal(t, "fast", plain.Env["BAKE_MODE"])

	custom, _ := list.Get("custom")
	assert.Equal(t, "slow", custom.Env["BAKE_MODE"])
}

func TestRunScriptCommandTuplesQuoteArguments(t *testing.T) {
	path, dir := writeScript(t, `
def configure():
    task("quoted", desc="tuple command", cmds=[("echo", "hello world", "$HOME")])
`)

	list, _, err := taskrun.RunScript(testCtx(t), path, dir, nil, true)
	require.NoError(t, err)

	quoted, _ := list.Get("quoted")
	require.Len(t, quoted.Cmds, 1)

	shell, ok := quoted.Cmds[0].(taskrun.ShellCmd)
	require.True(t, ok)
	assert.Contains(t, shell.Content, "'hello world'")
	assert.Contains(t, shell.Content, "'$HOME'")
}

func TestWriteAndReadCache(t *testing.T) {
	path, dir := writeScript(t, `
def configure():
    task("build", desc="build it", cmds=["echo build"])
    task("all", desc="aggregate", deps=["build"], default=True)
`)

	list, _, err := taskrun.RunScript(testCtx(t), path, dir, map[string]string{"k": "v"}, true)
	require.NoError(t, err)

	cachePath := filepath.Join(dir, taskrun.CacheName)
	require.NoError(t, taskrun.WriteCache(cachePath, map[string]string{"k": "v"}, list))

	options, cached, err := taskrun.ReadCache(cachePath)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k": "v"}, options)
	assert.Equal(t, names(list.Ordered()), names(cached.Ordered()))

	defaultTask, ok := cached.Default()
	require.True(t, ok)
	assert.Equal(t, "all", defaultTask.Short)
}

func TestReadCacheRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, taskrun.CacheName)
	require.NoError(t, os.WriteFile(path, []byte("not a cache"), 0660))

	_, _, err := taskrun.ReadCache(path)
	assert.Error(t, err)
}
