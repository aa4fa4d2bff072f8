package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec(t *testing.T) {
	input := `
# workspace tooling
golang.org/x/tools/cmd/goimports
github.com/go-delve/delve/cmd/dlv @>=1.22  # debugger

honnef.co/go/tools/cmd/staticcheck @2024.*
`

	reqs, err := ParseSpec(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []Requirement{
		{Module: "golang.org/x/tools/cmd/goimports", Constraint: "*"},
		{Module: "github.com/go-delve/delve/cmd/dlv", Constraint: ">=1.22"},
		{Module: "honnef.co/go/tools/cmd/staticcheck", Constraint: "2024.*"},
	}, reqs)
}

func TestParseSpecRejectsMalformedLines(t *testing.T) {
	_, err := ParseSpec(strings.NewReader("@>=1.0\n"))
	assert.Error(t, err)

	_, err = ParseSpec(strings.NewReader("example.com/mod @\n"))
	assert.Error(t, err)
}

func TestResolveVersion(t *testing.T) {
	versions := []string{"v1.0.0", "v1.2.0", "v1.3.0-rc.1", "v2.0.0", "garbage"}

	tests := []struct {
		name       string
		constraint string
		want       string
		wantErr    bool
	}{
		{name: "any picks highest release", constraint: "*", want: "v2.0.0"},
		{name: "range excludes new major", constraint: ">=1.0 <2.0", want: "v1.2.0"},
		{name: "prerelease never matches", constraint: ">=1.3.0-0 <2.0", want: "", wantErr: true},
		{name: "nothing matches", constraint: ">=3.0", want: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveVersion(Requirement{Module: "example.com/mod", Constraint: tc.constraint}, versions)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

type fakeLister map[string][]string

func (f fakeLister) Versions(ctx context.Context, module string) ([]string, error) {
	return f[module], nil
}

func TestLockWritesDeterministicLockfile(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "tools.in")
	lockPath := filepath.Join(dir, "tools.lock")
	require.NoError(t, os.WriteFile(specPath, []byte(
		"example.com/b/cmd/b @>=1.1\nexample.com/a/cmd/a\n",
	), 0660))

	lister := fakeLister{
		"example.com/b/cmd/b": {"v1.0.0", "v1.1.0", "v1.2.0"},
		"example.com/a/cmd/a": {"v0.9.0", "v0.10.0"},
	}

	require.NoError(t, Lock(context.Background(), lister, specPath, lockPath))

	content, err := os.ReadFile(lockPath)
	require.NoError(t, err)
	assert.Equal(t,
		"# Code generated by tool lock. DO NOT EDIT.\n"+
			"example.com/b/cmd/b v1.2.0\n"+
			"example.com/a/cmd/a v0.10.0\n",
		string(content), "spec order must be preserved")

	// identical inputs produce identical output
	require.NoError(t, Lock(context.Background(), lister, specPath, lockPath))
	second, err := os.ReadFile(lockPath)
	require.NoError(t, err)
	assert.Equal(t, string(content), string(second))
}

func TestLockFailsWhenNoVersionMatches(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "tools.in")
	require.NoError(t, os.WriteFile(specPath, []byte("example.com/mod @>=9.0\n"), 0660))

	lister := fakeLister{"example.com/mod": {"v1.0.0"}}
	err := Lock(context.Background(), lister, specPath, filepath.Join(dir, "tools.lock"))
	assert.Error(t, err)
}

func TestReadLockfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.lock")
	require.NoError(t, os.WriteFile(path, []byte(
		"# Code generated by tool lock. DO NOT EDIT.\nexample.com/mod v1.2.3\n",
	), 0660))

	pins, err := ReadLockfile(path)
	require.NoError(t, err)
	assert.Equal(t, []Pin{{Module: "example.com/mod", Version: "v1.2.3"}}, pins)
}

func TestReadLockfileRejectsMalformedPins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.lock")
	require.NoError(t, os.WriteFile(path, []byte("example.com/mod\n"), 0660))

	_, err := ReadLockfile(path)
	assert.Error(t, err)
}
