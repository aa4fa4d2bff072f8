package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// GoTool talks to the installed Go toolchain. It implements both
// VersionLister and Installer.
type GoTool struct {
	// list overrides the `go list -m -versions` call in tests.
	list func(ctx context.Context, module string) ([]string, error)
}

var (
	_ VersionLister = GoTool{}
	_ Installer     = GoTool{}
)

// Versions returns the published versions of the module that provides the
// given package. Spec entries name packages (usually main packages under a
// cmd/ directory), not module roots, so the module is resolved the way
// `go install` does: trim trailing path segments until the proxy knows the
// module.
func (t GoTool) Versions(ctx context.Context, pkg string) ([]string, error) {
	list := t.list
	if list == nil {
		list = goListVersions
	}

	var lastErr error
	for _, module := range enclosingModules(pkg) {
		versions, err := list(ctx, module)
		if err == nil {
			return versions, nil
		}
		lastErr = err
	}

	return nil, eris.Wrapf(lastErr, "no module provides %s", pkg)
}

// enclosingModules lists the module paths that could provide a package,
// longest first: the package path itself, then every parent down to the
// first path element below the host.
func enclosingModules(pkg string) []string {
	result := []string{pkg}
	for strings.Count(pkg, "/") > 1 {
		pkg = pkg[:strings.LastIndex(pkg, "/")]
		result = append(result, pkg)
	}

	return result
}

// goListVersions runs `go list -m -versions` and returns the reported
// versions in the toolchain's order (oldest first).
func goListVersions(ctx context.Context, module string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "go", "list", "-m", "-versions", module+"@latest")
	cmd.Env = append(os.Environ(), "GOFLAGS=-mod=mod")

	output, err := cmd.Output()
	if err != nil {
		return nil, eris.Wrapf(err, "go list failed for %s", module)
	}

	// output is one line: "module v1.0.0 v1.1.0 ..."
	fields := strings.Fields(strings.TrimSpace(string(output)))
	if len(fields) < 1 {
		return nil, eris.Errorf("go list returned no result for %s", module)
	}

	return fields[1:], nil
}

// Install runs `go install module@version` with GOBIN pointed at binDir.
// The full package path can be used directly, `go install` resolves the
// enclosing module itself.
func (GoTool) Install(ctx context.Context, module, version, binDir string) error {
	cmd := exec.CommandContext(ctx, "go", "install", fmt.Sprintf("%s@%s", module, version))
	cmd.Env = append(os.Environ(), fmt.Sprintf("GOBIN=%s", binDir))
	cmd.Stderr = os.Stderr
	cmd.Stdout = os.Stdout

	if err := cmd.Run(); err != nil {
		return eris.Wrapf(err, "go install failed for %s@%s", module, version)
	}

	return nil
}
