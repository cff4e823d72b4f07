// Package config loads project configuration from an .anchorscan.json file
// found in the scanned directory or any of its parents.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const FileName = ".anchorscan.json"

type Config struct {
	// IgnoreSeverities drops rules and findings at these levels.
	IgnoreSeverities []string `json:"ignoreSeverities"`
	// IgnoreRules drops rules by ID.
	IgnoreRules []string `json:"ignoreRules"`
	// IncludeRuleTypes keeps only rules of these types; empty means all.
	IncludeRuleTypes []string `json:"includeRuleTypes"`
	// TemplatesPath points at custom YAML rule templates.
	TemplatesPath string `json:"templatesPath"`
	// Baseline suppresses findings recorded in this baseline file.
	Baseline string `json:"baseline"`
	// FailOn makes the scan exit non-zero when a finding at this severity
	// or higher remains.
	FailOn string `json:"failOn"`
}

func Default() Config {
	return Config{}
}

// Load searches upwards from startDir for the config file. It returns the
// defaults and an empty path when no file exists.
func Load(startDir string) (Config, string, error) {
	cfg := Default()
	dir := startDir
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			b, err := os.ReadFile(candidate)
			if err != nil {
				return cfg, candidate, err
			}
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, candidate, err
			}
			return cfg, candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached root
			break
		}
		dir = parent
	}
	return cfg, "", nil
}
