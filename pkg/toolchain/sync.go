package toolchain

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
)

// Installer installs a pinned module into a bin directory. The real
// implementation shells out to `go install`; tests inject a fake.
type Installer interface {
	Install(ctx context.Context, module, version, binDir string) error
}

func getProgressBar(length int64, desc string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		// progress output just clutters CI logs
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.Default(length, desc)
}

// binaryName returns the binary a module installs as, the last path element
// with any major version suffix stripped.
func binaryName(module string) string {
	name := path.Base(module)
	if len(name) > 1 && name[0] == 'v' && strings.Trim(name[1:], "0123456789") == "" {
		name = path.Base(path.Dir(module))
	}

	return name
}

// Sync installs every pin from the given lockfiles into binDir and then
// removes any binary in binDir that no lockfile mentions, so the directory
// always matches the pinned set exactly.
func Sync(ctx context.Context, installer Installer, lockFiles []string, binDir string) error {
	pins := make([]Pin, 0)
	for _, file := range lockFiles {
		filePins, err := ReadLockfile(file)
		if err != nil {
			return err
		}

		pins = append(pins, filePins...)
	}

	if err := os.MkdirAll(binDir, 0770); err != nil {
		return eris.Wrapf(err, "failed to create %s", binDir)
	}

	expected := make(map[string]bool, len(pins))
	bar := getProgressBar(int64(len(pins)), "Installing tools")
	for _, pin := range pins {
		expected[binaryName(pin.Module)] = true

		if err := installer.Install(ctx, pin.Module, pin.Version, binDir); err != nil {
			return eris.Wrapf(err, "failed to install %s@%s", pin.Module, pin.Version)
		}

		//nolint:errcheck
		bar.Add(1)
	}
	//nolint:errcheck
	bar.Finish()

	entries, err := os.ReadDir(binDir)
	if err != nil {
		return eris.Wrapf(err, "failed to read %s", binDir)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".exe")
		if !expected[name] {
			stale := filepath.Join(binDir, entry.Name())
			if err := os.Remove(stale); err != nil {
				return eris.Wrapf(err, "failed to remove stale tool %s", stale)
			}
		}
	}

	return nil
}
