package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// DependencyOverride declares extra dependencies for one object.
// Names are full object names (DB.SCHEMA.NAME) in template form.
type DependencyOverride struct {
	Script       string   `yaml:"script"`
	Dependencies []string `yaml:"dependencies"`
}

// ProjectConfig is the config.yaml file at the script root.
type ProjectConfig struct {
	Version            string               `yaml:"version"`
	ScriptExclusion    []string             `yaml:"scriptExclusion"`
	DependencyOverride []DependencyOverride `yaml:"dependencyOverride"`
	ConfigTables       []string             `yaml:"configTables"`
}

// Load reads config.yaml from scriptRoot. A missing file yields an empty config.
func Load(scriptRoot string) (*ProjectConfig, error) {
	configPath := filepath.Join(scriptRoot, dlsync.ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ProjectConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes config.yaml content. Unknown keys are rejected.
func Parse(data []byte) (*ProjectConfig, error) {
	var cfg ProjectConfig
	if len(strings.TrimSpace(string(data))) == 0 {
		return &cfg, nil
	}

	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: cannot parse %s: %v", dlsync.ErrInvalidConfig, dlsync.ConfigFileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that exclusion patterns compile and overrides name an object.
func (c *ProjectConfig) Validate() error {
	var errs []error
	for _, pattern := range c.ScriptExclusion {
		if _, err := path.Match(strings.ToUpper(pattern), ""); err != nil {
			errs = append(errs, fmt.Errorf("%w: bad scriptExclusion pattern %q", dlsync.ErrInvalidConfig, pattern))
		}
	}
	for i, o := range c.DependencyOverride {
		if strings.TrimSpace(o.Script) == "" {
			errs = append(errs, fmt.Errorf("%w: dependencyOverride[%d] has no script", dlsync.ErrInvalidConfig, i))
		}
	}
	return errors.Join(errs...)
}

// IsScriptExcluded reports whether the script's full object name matches any
// exclusion pattern. Matching is case-insensitive and uses path.Match globs,
// so "DB.SCH.*" excludes a whole schema.
func (c *ProjectConfig) IsScriptExcluded(s *dlsync.Script) bool {
	return c.IsNameExcluded(s.FullObjectName())
}

// IsNameExcluded is IsScriptExcluded for a bare full object name.
func (c *ProjectConfig) IsNameExcluded(fullName string) bool {
	name := strings.ToUpper(fullName)
	for _, pattern := range c.ScriptExclusion {
		if ok, _ := path.Match(strings.ToUpper(strings.TrimSpace(pattern)), name); ok {
			return true
		}
	}
	return false
}

// Overrides flattens DependencyOverride into dependent/depends-on name pairs.
func (c *ProjectConfig) Overrides() [][2]string {
	var out [][2]string
	for _, o := range c.DependencyOverride {
		for _, d := range o.Dependencies {
			out = append(out, [2]string{o.Script, d})
		}
	}
	return out
}

// IsConfigTable reports whether fullName is listed in configTables.
// Both sides must already be in the same form (injected or template).
func IsConfigTable(tables []string, fullName string) bool {
	for _, t := range tables {
		if strings.EqualFold(strings.TrimSpace(t), fullName) {
			return true
		}
	}
	return false
}
