package toolchain

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnclosingModules(t *testing.T) {
	testCases := []struct {
		pkg      string
		expected []string
	}{
		{
			"golang.org/x/tools/cmd/goimports",
			[]string{
				"golang.org/x/tools/cmd/goimports",
				"golang.org/x/tools/cmd",
				"golang.org/x/tools",
				"golang.org/x",
			},
		},
		{
			"github.com/go-delve/delve/cmd/dlv",
			[]string{
				"github.com/go-delve/delve/cmd/dlv",
				"github.com/go-delve/delve/cmd",
				"github.com/go-delve/delve",
			},
		},
		{
			"honnef.co/go/tools/cmd/staticcheck",
			[]string{
				"honnef.co/go/tools/cmd/staticcheck",
				"honnef.co/go/tools/cmd",
				"honnef.co/go/tools",
				"honnef.co/go",
			},
		},
		// already a module root
		{"mvdan.cc/gofumpt", []string{"mvdan.cc/gofumpt"}},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, enclosingModules(testCase.pkg), testCase.pkg)
	}
}

func TestVersionsResolvesEnclosingModule(t *testing.T) {
	queried := make([]string, 0)
	tool := GoTool{
		list: func(ctx context.Context, module string) ([]string, error) {
			queried = append(queried, module)
			if module != "golang.org/x/tools" {
				return nil, eris.Errorf("unknown module %s", module)
			}

			return []string{"v0.20.0", "v0.21.0"}, nil
		},
	}

	versions, err := tool.Versions(context.Background(), "golang.org/x/tools/cmd/goimports")
	require.NoError(t, err)
	assert.Equal(t, []string{"v0.20.0", "v0.21.0"}, versions)

	// longest candidates are probed first so a nested module wins over its
	// parent
	assert.Equal(t, []string{
		"golang.org/x/tools/cmd/goimports",
		"golang.org/x/tools/cmd",
		"golang.org/x/tools",
	}, queried)
}

func TestVersionsModuleRootNeedsNoTrimming(t *testing.T) {
	tool := GoTool{
		list: func(ctx context.Context, module string) ([]string, error) {
			require.Equal(t, "mvdan.cc/gofumpt", module)
			return []string{"v0.6.0"}, nil
		},
	}

	versions, err := tool.Versions(context.Background(), "mvdan.cc/gofumpt")
	require.NoError(t, err)
	assert.Equal(t, []string{"v0.6.0"}, versions)
}

func TestVersionsReportsThePackageWhenNothingMatches(t *testing.T) {
	tool := GoTool{
		list: func(ctx context.Context, module string) ([]string, error) {
			return nil, eris.Errorf("unknown module %s", module)
		},
	}

	_, err := tool.Versions(context.Background(), "example.org/nope/cmd/nothing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "example.org/nope/cmd/nothing")
}
