// Package extract implements the translation extraction pipeline.
//
// One run walks a mod tree, derives dotted translation keys from every
// definitions file and every English Keyed file, reconciles them against the
// prior output files and the reference archive, and writes LanguageData
// templates. Processing is strictly sequential; a parse failure on one file
// is recorded and skipped without aborting the batch.
package extract

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rimkit/rimkit/archive"
	"github.com/rimkit/rimkit/classify"
	"github.com/rimkit/rimkit/defxml"
	"github.com/rimkit/rimkit/langdata"
	"github.com/rimkit/rimkit/layout"
	"github.com/rimkit/rimkit/merge"
)

const (
	defsDirName  = "defs"
	keyedDirName = "keyed"

	// Output sub-directories, named by the game's conventions.
	defInjectedDir = "DefInjected"
	keyedOutDir    = "Keyed"

	// DefaultOutputDir is the folder created under the mod root when no
	// explicit output root is configured.
	DefaultOutputDir = "TranslationTemplates"
)

// Options configure one extraction run.
type Options struct {
	// ModPath is the mod's root directory.
	ModPath string
	// Language is the target output language folder name.
	Language string
	// OutputRoot overrides the default <mod>/TranslationTemplates/<lang>.
	OutputRoot string
	// ArchiveRoot is the optional reference archive; empty disables
	// archive fallbacks.
	ArchiveRoot string
	// Layout selects version filtering/merging and wrapper flattening.
	Layout layout.Options
	// RecoverImplicit enables recovery of archive keys for fields
	// inherited from base definitions.
	RecoverImplicit bool
	// CleanOutput removes the output root before extraction.
	CleanOutput bool
	// Classifier decides translatability; nil means the default sets.
	Classifier *classify.Classifier
	// Logf receives warnings (unreadable archive files etc.). Optional.
	Logf func(format string, args ...any)
}

// FileResult records one written output file.
type FileResult struct {
	Action merge.Action
	// Path is relative to the output root.
	Path string
	// Version labels the source tree the file came from ("Base", "1.5").
	Version string
}

// Failure records a file that could not be processed.
type Failure struct {
	Path string
	Err  error
}

// Result aggregates one extraction run.
type Result struct {
	Files     []FileResult
	Failures  []Failure
	Generated int
	Updated   int
}

type run struct {
	opts       Options
	outputRoot string
	classifier *classify.Classifier

	archiveLang string // archived language tree, "" when unavailable
	global      archive.Index
	english     archive.Index

	res *Result
}

// Run executes one extraction. Archive indices are built once and treated as
// read-only for the remainder of the run.
func Run(opts Options) (*Result, error) {
	info, err := os.Stat(opts.ModPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("mod directory %s not found", opts.ModPath)
	}
	if opts.Language == "" {
		return nil, fmt.Errorf("output language is required")
	}

	r := &run{opts: opts, res: &Result{}}
	r.classifier = opts.Classifier
	if r.classifier == nil {
		r.classifier = classify.Default()
	}
	r.outputRoot = opts.OutputRoot
	if r.outputRoot == "" {
		r.outputRoot = filepath.Join(opts.ModPath, DefaultOutputDir, opts.Language)
	}

	if opts.CleanOutput {
		if err := os.RemoveAll(r.outputRoot); err != nil {
			return nil, fmt.Errorf("cleaning output root: %w", err)
		}
	}

	// A missing or unreadable archive degrades to "no archive available".
	modName := filepath.Base(filepath.Clean(opts.ModPath))
	if dir, ok := archive.FindLanguageDir(opts.ArchiveRoot, modName, opts.Language); ok {
		r.archiveLang = dir
	} else if opts.ArchiveRoot != "" {
		r.warn("archive has no %q language tree for mod %q", opts.Language, modName)
	}
	r.global = archive.LoadTree(r.archiveLang, r.archiveWarn)

	r.english = archive.Index{}
	if opts.RecoverImplicit {
		if dir, ok := archive.FindEnglishDir(opts.ModPath); ok {
			r.english = archive.LoadTree(dir, r.archiveWarn)
		}
	}

	r.processDefs()
	r.processKeyed()

	for _, f := range r.res.Files {
		if f.Action == merge.ActionGenerated {
			r.res.Generated++
		} else {
			r.res.Updated++
		}
	}
	return r.res, nil
}

// ---------------------------------------------------------------------------
// Definitions (DefInjected)
// ---------------------------------------------------------------------------

func (r *run) processDefs() {
	for _, defsDir := range r.findDirs(defsDirName, nil) {
		rel := r.relToMod(filepath.Dir(defsDir))
		outRel, ok := layout.Resolve(rel, r.opts.Layout)
		if !ok {
			continue
		}

		targetBase := filepath.Join(r.outputRoot, filepath.FromSlash(outRel), defInjectedDir)
		archiveBase := ""
		if r.archiveLang != "" {
			archiveBase = filepath.Join(r.archiveLang, filepath.FromSlash(outRel), defInjectedDir)
		}

		for _, file := range r.xmlFilesUnder(defsDir) {
			r.processDefFile(file, targetBase, archiveBase, layout.Label(rel))
		}
	}
}

func (r *run) processDefFile(path, targetBase, archiveBase, version string) {
	root, err := defxml.ParseFile(path)
	if err != nil {
		r.fail(path, err)
		return
	}

	// Group derived entries by definition type, preserving first-seen
	// order; each type becomes one output file.
	var types []string
	byType := make(map[string][]defxml.Entry)
	for _, def := range root.Children {
		nameNode := def.Child(defxml.IdentityTag)
		if nameNode == nil {
			continue // cannot form a key
		}
		defName := nameNode.TrimmedText()
		if defName == "" {
			continue
		}
		if _, seen := byType[def.Tag]; !seen {
			types = append(types, def.Tag)
		}
		byType[def.Tag] = append(byType[def.Tag], defxml.Derive(def, defName, r.classifier)...)
	}

	fileName := filepath.Base(path)
	for _, defType := range types {
		entries := byType[defType]
		if len(entries) == 0 {
			continue
		}

		outPath := filepath.Join(targetBase, defType, fileName)
		src, action := r.mergeSources(outPath)
		if archiveBase != "" {
			src.Local = archive.LoadFile(filepath.Join(archiveBase, defType, fileName))
		}

		merged, orphaned := merge.Definitions(defType, entries, src, r.opts.RecoverImplicit)
		doc := &langdata.Document{Style: langdata.StyleDefInjected, Entries: merged, Orphans: orphaned}
		if err := langdata.WriteFile(outPath, doc); err != nil {
			r.fail(outPath, err)
			continue
		}
		r.record(action, outPath, version)
	}
}

// ---------------------------------------------------------------------------
// Keyed
// ---------------------------------------------------------------------------

func (r *run) processKeyed() {
	// Only English Keyed trees are sources; the others are translations.
	englishOnly := func(dir string) bool {
		parent := filepath.Base(filepath.Dir(dir))
		return strings.Contains(strings.ToLower(parent), "english")
	}

	for _, keyedDir := range r.findDirs(keyedDirName, englishOnly) {
		// <rel>/Languages/English/Keyed — the version tree is three
		// levels up.
		rel := r.relToMod(filepath.Dir(filepath.Dir(filepath.Dir(keyedDir))))
		outRel, ok := layout.Resolve(rel, r.opts.Layout)
		if !ok {
			continue
		}

		targetBase := filepath.Join(r.outputRoot, filepath.FromSlash(outRel), keyedOutDir)
		archiveBase := ""
		if r.archiveLang != "" {
			archiveBase = filepath.Join(r.archiveLang, filepath.FromSlash(outRel), keyedOutDir)
		}

		for _, file := range r.xmlFilesUnder(keyedDir) {
			r.processKeyedFile(file, targetBase, archiveBase)
		}
	}
}

func (r *run) processKeyedFile(path, targetBase, archiveBase string) {
	root, err := defxml.ParseFile(path)
	if err != nil {
		r.fail(path, err)
		return
	}

	var entries []defxml.Entry
	for _, child := range root.Children {
		if text := child.TrimmedText(); text != "" {
			entries = append(entries, defxml.Entry{Key: child.Tag, Text: text})
		}
	}
	if len(entries) == 0 {
		return
	}

	fileName := filepath.Base(path)
	outPath := filepath.Join(targetBase, fileName)
	src, action := r.mergeSources(outPath)
	if archiveBase != "" {
		src.Local = archive.LoadFile(filepath.Join(archiveBase, fileName))
	}

	merged, orphaned := merge.Keyed(entries, src)
	doc := &langdata.Document{Style: langdata.StyleKeyed, Entries: merged, Orphans: orphaned}
	if err := langdata.WriteFile(outPath, doc); err != nil {
		r.fail(outPath, err)
		return
	}
	r.record(action, outPath, keyedOutDir)
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

// mergeSources builds the per-file merge inputs: the prior output file (its
// existence decides the action) and the run-wide indices.
func (r *run) mergeSources(outPath string) (*merge.Sources, merge.Action) {
	src := &merge.Sources{
		Local:   archive.Index{},
		Global:  r.global,
		English: r.english,
	}
	action := merge.ActionGenerated
	if info, err := os.Stat(outPath); err == nil && !info.IsDir() {
		action = merge.ActionUpdated
		existing, err := langdata.ParseFile(outPath)
		if err != nil {
			r.warn("prior output %s is unreadable, regenerating: %v", outPath, err)
		} else {
			src.Existing = existing
		}
	}
	return src, action
}

// findDirs returns every directory under the mod whose name matches,
// case-insensitively, skipping the output root. Results are sorted so that
// versions process in order.
func (r *run) findDirs(name string, accept func(dir string) bool) []string {
	var dirs []string
	_ = filepath.WalkDir(r.opts.ModPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if samePath(path, r.outputRoot) {
			return filepath.SkipDir
		}
		if strings.EqualFold(d.Name(), name) && (accept == nil || accept(path)) {
			dirs = append(dirs, path)
		}
		return nil
	})
	sort.Strings(dirs)
	return dirs
}

func (r *run) xmlFilesUnder(dir string) []string {
	var files []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".xml") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files
}

func (r *run) relToMod(dir string) string {
	rel, err := filepath.Rel(r.opts.ModPath, dir)
	if err != nil {
		return "."
	}
	return filepath.ToSlash(rel)
}

func (r *run) record(action merge.Action, outPath, version string) {
	rel, err := filepath.Rel(r.outputRoot, outPath)
	if err != nil {
		rel = outPath
	}
	r.res.Files = append(r.res.Files, FileResult{
		Action:  action,
		Path:    filepath.ToSlash(rel),
		Version: version,
	})
}

func (r *run) fail(path string, err error) {
	r.res.Failures = append(r.res.Failures, Failure{Path: path, Err: err})
	r.warn("skipping %s: %v", path, err)
}

func (r *run) warn(format string, args ...any) {
	if r.opts.Logf != nil {
		r.opts.Logf(format, args...)
	}
}

func (r *run) archiveWarn(path string, err error) {
	r.warn("unreadable archive file %s: %v", path, err)
}

func samePath(a, b string) bool {
	ca, err1 := filepath.Abs(a)
	cb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && ca == cb
}

// WriteInstallNote drops a short installation note in the output root,
// telling translators where the generated folders go.
func WriteInstallNote(outputRoot, language string) error {
	var b strings.Builder
	b.WriteString("=== HOW TO INSTALL THIS TRANSLATION ===\n\n")
	b.WriteString("1. Open the original mod's folder.\n")
	b.WriteString("2. Enter the 'Languages' folder (create it if missing).\n")
	fmt.Fprintf(&b, "3. Inside, create a folder named '%s'.\n", language)
	b.WriteString("4. Copy everything in this folder (the version folders, DefInjected, Keyed...) in there.\n")
	if err := os.MkdirAll(outputRoot, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outputRoot, "INSTALL.txt"), []byte(b.String()), 0644)
}
