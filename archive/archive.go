// Package archive builds read-only lookup indices of previously translated
// text from reference directory trees.
//
// An archive is any directory tree of LanguageData-shaped XML documents —
// typically an older release of a translation repository. Indices are built
// once per extraction run and consulted as fallback sources when an entry has
// no translation yet. Placeholder values are excluded at build time, so a
// lookup hit is always a real translation.
package archive

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rimkit/rimkit/langdata"
)

// Index maps a translation key to its archived translated text.
type Index map[string]string

// Lookup returns the archived translation for a key. Safe on a nil index.
func (ix Index) Lookup(key string) (string, bool) {
	v, ok := ix[key]
	return v, ok
}

// LoadTree recursively indexes every *.xml document under root. Malformed or
// unreadable files are reported through warn and skipped; later files win on
// key collisions. An empty root yields an empty index.
func LoadTree(root string, warn func(path string, err error)) Index {
	ix := Index{}
	if root == "" {
		return ix
	}
	// Walk errors on individual entries are not fatal: a partially
	// readable archive still serves as a fallback source.
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".xml") {
			return nil
		}
		f, err := langdata.ParseFile(path)
		if err != nil {
			if warn != nil {
				warn(path, err)
			}
			return nil
		}
		for _, key := range f.Keys() {
			if v, ok := f.Get(key); ok && !langdata.IsPlaceholder(v) {
				ix[key] = v
			}
		}
		return nil
	})
	return ix
}

// LoadFile indexes a single document. A missing or malformed file yields an
// empty index: the local archive is a best-effort source.
func LoadFile(path string) Index {
	ix := Index{}
	f, err := langdata.ParseFile(path)
	if err != nil {
		return ix
	}
	for _, key := range f.Keys() {
		if v, ok := f.Get(key); ok && !langdata.IsPlaceholder(v) {
			ix[key] = v
		}
	}
	return ix
}

// FindLanguageDir locates the archived language tree for a mod: the archive
// root must contain a folder named after the mod, holding (directly or under
// a Languages/ folder) a directory whose name starts with the language name,
// case-insensitively.
func FindLanguageDir(archiveRoot, modName, language string) (string, bool) {
	if archiveRoot == "" {
		return "", false
	}
	modDir := filepath.Join(archiveRoot, modName)
	if !isDir(modDir) {
		return "", false
	}

	searchDirs := []string{modDir}
	if langs := filepath.Join(modDir, "Languages"); isDir(langs) {
		searchDirs = append(searchDirs, langs)
	}

	prefix := strings.ToLower(language)
	for _, dir := range searchDirs {
		items, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, it := range items {
			if it.IsDir() && strings.HasPrefix(strings.ToLower(it.Name()), prefix) {
				return filepath.Join(dir, it.Name()), true
			}
		}
	}
	return "", false
}

// FindEnglishDir locates the mod's own English language texts, used to
// validate implicitly recovered entries.
func FindEnglishDir(modPath string) (string, bool) {
	for _, name := range []string{"English", "English (United Kingdom)"} {
		dir := filepath.Join(modPath, "Languages", name)
		if isDir(dir) {
			return dir, true
		}
	}
	return "", false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
