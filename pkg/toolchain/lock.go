// Package toolchain pins and installs the Go CLI tools the project depends
// on. A human-edited spec file (tools.in) declares modules with loose version
// constraints, lock turns that into an exact lockfile and sync installs the
// pinned set into the workspace .tools directory.
package toolchain

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"
)

// Requirement is one line of a spec file: a module path plus an optional
// version constraint. A missing constraint means "any release".
type Requirement struct {
	Module     string
	Constraint string
}

// Pin is one line of a lockfile: a module path and an exact version.
type Pin struct {
	Module  string
	Version string
}

// VersionLister enumerates the published versions of a module. The real
// implementation shells out to the Go toolchain; tests inject a fake.
type VersionLister interface {
	Versions(ctx context.Context, module string) ([]string, error)
}

const lockHeader = "# Code generated by tool lock. DO NOT EDIT."

// ParseSpec reads a spec file. Each non-empty line is `module/path` or
// `module/path @constraint`; # starts a comment.
func ParseSpec(r io.Reader) ([]Requirement, error) {
	result := make([]Requirement, 0)
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if pos := strings.Index(line, "#"); pos > -1 {
			line = line[:pos]
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		req := Requirement{Constraint: "*"}
		if pos := strings.Index(line, "@"); pos > -1 {
			req.Module = strings.TrimSpace(line[:pos])
			req.Constraint = strings.TrimSpace(line[pos+1:])
		} else {
			req.Module = line
		}

		if req.Module == "" || req.Constraint == "" {
			return nil, eris.Errorf("line %d: malformed requirement %q", lineNo, scanner.Text())
		}

		result = append(result, req)
	}

	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "failed to read spec")
	}

	return result, nil
}

// ResolveVersion picks the highest release among versions that satisfies the
// requirement's constraint. Pre-releases never match.
func ResolveVersion(req Requirement, versions []string) (string, error) {
	constraint, err := semver.NewConstraint(req.Constraint)
	if err != nil {
		return "", eris.Wrapf(err, "invalid constraint %q for %s", req.Constraint, req.Module)
	}

	var best *semver.Version
	for _, raw := range versions {
		version, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}

		if version.Prerelease() != "" || !constraint.Check(version) {
			continue
		}

		if best == nil || version.GreaterThan(best) {
			best = version
		}
	}

	if best == nil {
		return "", eris.Errorf("no released version of %s satisfies %q", req.Module, req.Constraint)
	}

	return "v" + best.String(), nil
}

// Lock resolves every requirement in the spec file and writes the resulting
// pins to lockPath. Pins keep the spec's declaration order so the output is
// deterministic for unchanged inputs.
func Lock(ctx context.Context, lister VersionLister, specPath, lockPath string) error {
	handle, err := os.Open(specPath)
	if err != nil {
		return eris.Wrapf(err, "failed to open %s", specPath)
	}
	defer handle.Close()

	reqs, err := ParseSpec(handle)
	if err != nil {
		return eris.Wrapf(err, "failed to parse %s", specPath)
	}

	pins := make([]Pin, 0, len(reqs))
	for _, req := range reqs {
		versions, err := lister.Versions(ctx, req.Module)
		if err != nil {
			return eris.Wrapf(err, "failed to list versions of %s", req.Module)
		}

		version, err := ResolveVersion(req, versions)
		if err != nil {
			return err
		}

		pins = append(pins, Pin{Module: req.Module, Version: version})
	}

	out, err := os.Create(lockPath)
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", lockPath)
	}
	defer out.Close()

	return WriteLockfile(out, pins)
}

// WriteLockfile renders pins in their given order, one `module version` line
// each, below a generated-file header.
func WriteLockfile(w io.Writer, pins []Pin) error {
	if _, err := fmt.Fprintln(w, lockHeader); err != nil {
		return eris.Wrap(err, "failed to write lockfile")
	}

	for _, pin := range pins {
		if _, err := fmt.Fprintf(w, "%s %s\n", pin.Module, pin.Version); err != nil {
			return eris.Wrap(err, "failed to write lockfile")
		}
	}

	return nil
}

// ReadLockfile parses a file written by WriteLockfile.
func ReadLockfile(path string) ([]Pin, error) {
	handle, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to open %s", path)
	}
	defer handle.Close()

	pins := make([]Pin, 0)
	scanner := bufio.NewScanner(handle)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, eris.Errorf("%s:%d: malformed pin %q", path, lineNo, line)
		}

		pins = append(pins, Pin{Module: parts[0], Version: parts[1]})
	}

	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", path)
	}

	return pins, nil
}
