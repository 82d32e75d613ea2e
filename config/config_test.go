package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rimkit/rimkit/layout"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
	if cfg.Language != "SpanishLatin" || cfg.Version != layout.VersionAll {
		t.Fatalf("defaults = %+v", cfg)
	}
	if !cfg.CreateAbout || !cfg.InstallNote {
		t.Fatalf("CreateAbout and InstallNote must default on: %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	doc := `language: French
version: "1.5"
archive_path: /data/archive
merge_versions: true
create_about: false
install_note: false
translatable_tags:
  - label
  - description
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Language != "French" || cfg.Version != "1.5" || cfg.ArchivePath != "/data/archive" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !cfg.MergeVersions || cfg.CreateAbout || cfg.InstallNote {
		t.Fatalf("booleans not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.TranslatableTags, []string{"label", "description"}) {
		t.Fatalf("TranslatableTags = %v", cfg.TranslatableTags)
	}
}

func TestLoadFillsBlankIdentityFields(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("clean_output: true\n"), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Language != "SpanishLatin" || cfg.Version != layout.VersionAll {
		t.Fatalf("blank fields must fall back to defaults: %+v", cfg)
	}
	if !cfg.CleanOutput {
		t.Fatalf("stored value lost: %+v", cfg)
	}
}

func TestLoadMalformedFileErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("language: [unclosed"), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("malformed yaml must error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Language = "German"
	cfg.Version = "1.4"
	cfg.RecoverImplicit = true
	cfg.BlacklistedTags = []string{"texPath", "iconPath"}

	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Fatalf("round trip mismatch\n got: %+v\nwant: %+v", got, cfg)
	}
}
