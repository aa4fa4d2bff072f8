// Package precommit installs the repo's pre-commit gate: it reads the hook
// configuration and renders it into a fail-fast shell script inside the
// local git hooks directory.
package precommit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ConfigName is the hook configuration file at the project root.
const ConfigName = ".pre-commit-config.yaml"

// Hook is one entry to run on commit.
type Hook struct {
	ID    string   `yaml:"id"`
	Name  string   `yaml:"name,omitempty"`
	Entry string   `yaml:"entry"`
	Args  []string `yaml:"args,omitempty"`
}

// Repo groups hooks the way the upstream pre-commit format does. Only local
// repos are supported; the entries run as plain commands.
type Repo struct {
	Repo  string `yaml:"repo"`
	Hooks []Hook `yaml:"hooks"`
}

// Config is the parsed hook configuration.
type Config struct {
	Repos []Repo `yaml:"repos"`
}

// Load reads and parses a hook configuration file.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to open %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, eris.Wrapf(err, "failed to parse %s", path)
	}

	for _, repo := range cfg.Repos {
		for _, hook := range repo.Hooks {
			if hook.ID == "" || hook.Entry == "" {
				return nil, eris.Errorf("%s: every hook needs an id and an entry", path)
			}
		}
	}

	return &cfg, nil
}

// RenderScript turns the configuration into a POSIX shell script that runs
// every hook in declaration order and aborts on the first failure.
func RenderScript(cfg *Config) string {
	builder := strings.Builder{}
	builder.WriteString("#!/bin/sh\n")
	builder.WriteString("# Installed by tool install-hook. Edit " + ConfigName + " instead.\n")
	builder.WriteString("set -e\n\n")

	for _, repo := range cfg.Repos {
		for _, hook := range repo.Hooks {
			name := hook.Name
			if name == "" {
				name = hook.ID
			}

			builder.WriteString(fmt.Sprintf("echo '=> %s'\n", strings.ReplaceAll(name, "'", "'\\''")))
			builder.WriteString(shellJoin(hook.Entry, hook.Args))
			builder.WriteString("\n")
		}
	}

	return builder.String()
}

func shellJoin(entry string, args []string) string {
	parts := []string{entry}
	for _, arg := range args {
		if strings.ContainsAny(arg, " $'\"\\") {
			arg = "'" + strings.ReplaceAll(arg, "'", "'\\''") + "'"
		}
		parts = append(parts, arg)
	}

	return strings.Join(parts, " ")
}

// Install renders the configuration at cfgPath into gitDir/hooks/pre-commit.
// The written file doubles as the timestamp marker the task graph compares
// against the configuration.
func Install(cfgPath, gitDir string) error {
	cfg, err := Load(cfgPath)
	if err != nil {
		return err
	}

	hooksDir := filepath.Join(gitDir, "hooks")
	if err := os.MkdirAll(hooksDir, 0770); err != nil {
		return eris.Wrapf(err, "failed to create %s", hooksDir)
	}

	hookPath := filepath.Join(hooksDir, "pre-commit")
	err = os.WriteFile(hookPath, []byte(RenderScript(cfg)), 0755)
	if err != nil {
		return eris.Wrapf(err, "failed to write %s", hookPath)
	}

	return nil
}

// FindGitDir walks up from start until it finds a .git directory.
func FindGitDir(start string) (string, error) {
	path, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		gitPath := filepath.Join(path, ".git")
		info, err := os.Stat(gitPath)
		if err == nil && info.IsDir() {
			return gitPath, nil
		}

		if err != nil && !eris.Is(err, os.ErrNotExist) {
			return "", eris.Wrapf(err, "failed to check %s", gitPath)
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", eris.New("no .git directory found")
		}

		path = parent
	}
}
