// Package iam provides the data layer for the browser: AWS profile
// discovery, a client for the IAM API and the lazily loaded entry tree the
// UI renders.
package iam

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/ini.v1"
)

// Profiles returns the profile names declared in the AWS shared config and
// credentials files, in file order, config file first. AWS_CONFIG_FILE and
// AWS_SHARED_CREDENTIALS_FILE override the default locations.
func Profiles() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, eris.Wrap(err, "failed to determine the home directory")
	}

	configFile := os.Getenv("AWS_CONFIG_FILE")
	if configFile == "" {
		configFile = filepath.Join(home, ".aws", "config")
	}

	credentialsFile := os.Getenv("AWS_SHARED_CREDENTIALS_FILE")
	if credentialsFile == "" {
		credentialsFile = filepath.Join(home, ".aws", "credentials")
	}

	seen := make(map[string]bool)
	profiles := make([]string, 0)

	add := func(name string) {
		if name != "" && name != ini.DefaultSection && !seen[name] {
			seen[name] = true
			profiles = append(profiles, name)
		}
	}

	names, err := sectionNames(configFile)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		// the config file prefixes non-default profiles with "profile "
		add(strings.TrimPrefix(name, "profile "))
	}

	names, err = sectionNames(credentialsFile)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		add(name)
	}

	return profiles, nil
}

func sectionNames(path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		if eris.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "failed to check %s", path)
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse %s", path)
	}

	return file.SectionStrings(), nil
}
