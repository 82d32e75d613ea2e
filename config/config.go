// Package config — rimkit.yaml persisted extraction options.
//
// The extract command remembers its last-used options in a rimkit.yaml file
// next to the mod, so repeated runs need no flags. Command-line flags always
// override the stored values, and a successful run writes the effective
// options back.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rimkit/rimkit/layout"
)

// FileName is the config file name, stored in the mod's root directory.
const FileName = "rimkit.yaml"

// Config holds everything the extract command remembers between runs.
type Config struct {
	// Language is the output language folder name.
	Language string `yaml:"language,omitempty"`
	// Version filters source trees: "All", "Base" or a version number.
	Version string `yaml:"version,omitempty"`
	// ArchivePath is the reference translation archive root.
	ArchivePath string `yaml:"archive_path,omitempty"`
	// OutputDir overrides the default output root.
	OutputDir string `yaml:"output_dir,omitempty"`

	MergeVersions   bool `yaml:"merge_versions,omitempty"`
	FlattenMods     bool `yaml:"flatten_mods,omitempty"`
	CleanOutput     bool `yaml:"clean_output,omitempty"`
	RecoverImplicit bool `yaml:"recover_implicit,omitempty"`
	CreateAbout     bool `yaml:"create_about"`
	InstallNote     bool `yaml:"install_note"`

	// TranslatableTags and BlacklistedTags override the default
	// classification sets when non-empty.
	TranslatableTags []string `yaml:"translatable_tags,omitempty"`
	BlacklistedTags  []string `yaml:"blacklisted_tags,omitempty"`
}

// Default returns the configuration used when no rimkit.yaml exists.
func Default() *Config {
	return &Config{
		Language:    "SpanishLatin",
		Version:     layout.VersionAll,
		CreateAbout: true,
		InstallNote: true,
	}
}

// Load reads rimkit.yaml from dir. A missing file yields the defaults; a
// malformed file is an error (silently ignoring it would discard the user's
// tag overrides).
func Load(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if cfg.Language == "" {
		cfg.Language = Default().Language
	}
	if cfg.Version == "" {
		cfg.Version = layout.VersionAll
	}
	return cfg, nil
}

// Save writes the config to dir/rimkit.yaml.
func (c *Config) Save(dir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
