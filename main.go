// rimkit — RimWorld translation kit: extracts translatable text from mod
// definition files and maintains LanguageData translation templates.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rimkit/rimkit/bulkcopy"
	"github.com/rimkit/rimkit/classify"
	"github.com/rimkit/rimkit/config"
	"github.com/rimkit/rimkit/extract"
	"github.com/rimkit/rimkit/i18n"
	"github.com/rimkit/rimkit/langdata"
	"github.com/rimkit/rimkit/layout"
	"github.com/rimkit/rimkit/metadata"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rimkit",
		Short: "RimWorld translation kit: mod translation template manager",
		Long: `rimkit — RimWorld translation kit.

Extracts translatable text from a mod's definition files (Defs) and its
English Keyed files, and generates LanguageData translation templates.
Re-running extraction never loses human translations: existing values are
kept, untranslated entries are filled from a reference archive of older
translations when one is available, and keys that disappear from the source
are preserved as commented-out records.

Commands:
  extract     Generate/update translation templates for a mod
  status      Show mod info and template translation progress
  copy        Bulk-copy mod folders (optionally stripping XML comments)
  meta        Extract About.xml metadata from a folder of mods`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newExtractCmd(),
		newStatusCmd(),
		newCopyCmd(),
		newMetaCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rimkit version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// extract (the core engine run)
// ---------------------------------------------------------------------------

func newExtractCmd() *cobra.Command {
	var (
		lang        string
		versionFlag string
		archivePath string
		outDir      string
		tags        string
		exclude     string

		mergeVersions   bool
		flattenMods     bool
		cleanOutput     bool
		recoverImplicit bool
		about           bool
		installNote     bool
		save            bool
	)

	cmd := &cobra.Command{
		Use:   "extract <mod-dir>",
		Short: "Generate/update translation templates for a mod",
		Long: `Extract translatable text from a mod and write LanguageData templates.

Walks every Defs directory (and every English Keyed directory) in the mod,
derives a dotted key for each translatable field, and writes one template
file per definition type under <mod>/TranslationTemplates/<language>.

This command is idempotent — safe to run repeatedly. Values already
translated in the output files are never overwritten, untranslated entries
are filled from the reference archive when --archive points at one, and
keys no longer present in the source are kept as commented-out records.

Options are remembered in rimkit.yaml next to the mod; flags override the
stored values.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modPath := filepath.Clean(args[0])

			cfg, err := config.Load(modPath)
			if err != nil {
				return err
			}

			// Flags beat the stored configuration.
			flagged := cmd.Flags().Changed
			if flagged("lang") {
				cfg.Language = lang
			}
			if flagged("version") {
				cfg.Version = versionFlag
			}
			if flagged("archive") {
				cfg.ArchivePath = archivePath
			}
			if flagged("out") {
				cfg.OutputDir = outDir
			}
			if flagged("merge") {
				cfg.MergeVersions = mergeVersions
			}
			if flagged("flatten-mods") {
				cfg.FlattenMods = flattenMods
			}
			if flagged("clean") {
				cfg.CleanOutput = cleanOutput
			}
			if flagged("recover-implicit") {
				cfg.RecoverImplicit = recoverImplicit
			}
			if flagged("about") {
				cfg.CreateAbout = about
			}
			if flagged("install-note") {
				cfg.InstallNote = installNote
			}
			if flagged("tags") {
				cfg.TranslatableTags = classify.ParseSet(tags).Tags()
			}
			if flagged("exclude") {
				cfg.BlacklistedTags = classify.ParseSet(exclude).Tags()
			}

			if err := runExtract(modPath, cfg); err != nil {
				return err
			}
			if save {
				if err := cfg.Save(modPath); err != nil {
					logWarning("could not save %s: %v", config.FileName, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "Output language folder name")
	cmd.Flags().StringVar(&versionFlag, "version", "", `Version filter: "All", "Base" or e.g. "1.5"`)
	cmd.Flags().StringVar(&archivePath, "archive", "", "Reference translation archive root")
	cmd.Flags().StringVar(&outDir, "out", "", "Output root (default <mod>/TranslationTemplates/<lang>)")
	cmd.Flags().BoolVar(&mergeVersions, "merge", false, "Merge every version tree into the target version")
	cmd.Flags().BoolVar(&flattenMods, "flatten-mods", false, "Collapse Mods/<name> wrapper folders into the top level")
	cmd.Flags().BoolVar(&cleanOutput, "clean", false, "Remove the output root before extracting")
	cmd.Flags().BoolVar(&recoverImplicit, "recover-implicit", false, "Recover archived keys for fields inherited from base definitions")
	cmd.Flags().BoolVar(&about, "about", true, "Write a minimal About.xml next to the output")
	cmd.Flags().BoolVar(&installNote, "install-note", true, "Write an INSTALL.txt in the output root")
	cmd.Flags().BoolVar(&save, "save", true, "Remember these options in rimkit.yaml")
	cmd.Flags().StringVar(&tags, "tags", "", "Translatable tag fragments (comma-separated, overrides defaults)")
	cmd.Flags().StringVar(&exclude, "exclude", "", "Excluded tag fragments (comma-separated, overrides defaults)")

	return cmd
}

func runExtract(modPath string, cfg *config.Config) error {
	logInfo(i18n.T("Generating translation templates for %s"), filepath.Base(modPath))
	logInfo(i18n.T("Output language: %s"), cfg.Language)

	opts := extract.Options{
		ModPath:     modPath,
		Language:    cfg.Language,
		OutputRoot:  cfg.OutputDir,
		ArchiveRoot: cfg.ArchivePath,
		Layout: layout.Options{
			Version:       cfg.Version,
			MergeVersions: cfg.MergeVersions,
			FlattenMods:   cfg.FlattenMods,
		},
		RecoverImplicit: cfg.RecoverImplicit,
		CleanOutput:     cfg.CleanOutput,
		Classifier:      classify.New(cfg.TranslatableTags, cfg.BlacklistedTags),
		Logf:            logWarning,
	}
	result, err := extract.Run(opts)
	if err != nil {
		return err
	}

	printResult(result)

	if len(result.Files) == 0 {
		logWarning(i18n.T("No Defs or English Keyed files found."))
		return nil
	}

	outputRoot := cfg.OutputDir
	if outputRoot == "" {
		outputRoot = filepath.Join(modPath, extract.DefaultOutputDir, cfg.Language)
	}
	if cfg.InstallNote {
		if err := extract.WriteInstallNote(outputRoot, cfg.Language); err != nil {
			logWarning("install note: %v", err)
		}
	}
	if cfg.CreateAbout {
		writeAbout(modPath, filepath.Dir(outputRoot))
	}

	logSuccess(i18n.T("Done! Files processed: %d"), len(result.Files))
	logSuccess(i18n.T("Templates written to %s"), outputRoot)
	if n := len(result.Failures); n > 0 {
		logWarning(i18n.N("%d file could not be processed", "%d files could not be processed", n), n)
		for _, f := range result.Failures {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", f.Path, f.Err)
		}
	}
	return nil
}

// printResult groups the per-file action log by source version, the way the
// pipeline discovered them.
func printResult(result *extract.Result) {
	lastVersion := ""
	for _, f := range result.Files {
		if f.Version != lastVersion {
			fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, versionHeading(f.Version), colorReset)
			lastVersion = f.Version
		}
		fmt.Fprintf(os.Stderr, "   └── [%s] %s\n", f.Action, f.Path)
	}
	if len(result.Files) > 0 {
		fmt.Fprintln(os.Stderr)
	}
}

func versionHeading(v string) string {
	if v == "Keyed" {
		return "Keyed texts"
	}
	return "Version " + v
}

func writeAbout(modPath, destDir string) {
	mod, err := metadata.Read(modPath)
	if err != nil {
		logWarning("about metadata: %v", err)
		return
	}
	fileName, err := metadata.WriteMinimalAbout(mod, destDir)
	if err != nil {
		logWarning("about metadata: %v", err)
		return
	}
	logInfo("Wrote About/%s (%s)", fileName, mod.PackageID)
}

// ---------------------------------------------------------------------------
// status (read-only: mod info + template progress)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "status <mod-dir>",
		Short: "Show mod info and template translation progress",
		Long: `Show a mod's metadata, its discovered version trees, and the
translation progress of any generated templates. Does not modify any files.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modPath := filepath.Clean(args[0])
			cfg, err := config.Load(modPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("lang") {
				cfg.Language = lang
			}
			return runStatus(modPath, cfg)
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "Language templates to inspect")
	return cmd
}

func runStatus(modPath string, cfg *config.Config) error {
	fmt.Fprintf(os.Stderr, "\n%sMod%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	if mod, err := metadata.Read(modPath); err == nil {
		fmt.Fprintf(os.Stderr, "  Name:       %s\n", mod.Name)
		fmt.Fprintf(os.Stderr, "  Author:     %s\n", mod.Author)
		fmt.Fprintf(os.Stderr, "  Package:    %s\n", mod.PackageID)
		if mod.PublishedFileID != "" {
			fmt.Fprintf(os.Stderr, "  Workshop:   %s\n", mod.PublishedFileID)
		}
	} else {
		fmt.Fprintf(os.Stderr, "  Name:       %s (no About.xml)\n", filepath.Base(modPath))
	}

	absRoot, _ := filepath.Abs(modPath)
	fmt.Fprintf(os.Stderr, "  Root:       %s\n", absRoot)

	versions := discoverVersions(modPath)
	if len(versions) > 0 {
		fmt.Fprintf(os.Stderr, "  Versions:   %s\n", strings.Join(versions, ", "))
	} else {
		fmt.Fprintf(os.Stderr, "  Versions:   none (no Defs directories found)\n")
	}

	fmt.Fprintln(os.Stderr)
	showTemplateStats(filepath.Join(modPath, extract.DefaultOutputDir, cfg.Language), cfg.Language)
	return nil
}

// discoverVersions lists the version labels of every Defs-bearing tree.
func discoverVersions(modPath string) []string {
	seen := make(map[string]bool)
	var versions []string
	filepath.Walk(modPath, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() || !strings.EqualFold(info.Name(), "Defs") {
			return nil
		}
		rel, err := filepath.Rel(modPath, filepath.Dir(path))
		if err != nil {
			return nil
		}
		label := layout.Label(filepath.ToSlash(rel))
		if !seen[label] {
			seen[label] = true
			versions = append(versions, label)
		}
		return nil
	})
	sort.Strings(versions)
	return versions
}

func showTemplateStats(outputRoot, lang string) {
	if !dirExists(outputRoot) {
		logInfo("No templates generated yet for %s. Run 'rimkit extract'.", lang)
		return
	}

	fmt.Fprintf(os.Stderr, "%sTemplate Statistics (%s)%s\n", colorBlue, lang, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	files, total, translated := 0, 0, 0
	filepath.Walk(outputRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.EqualFold(filepath.Ext(path), ".xml") {
			return nil
		}
		f, err := langdata.ParseFile(path)
		if err != nil {
			return nil
		}
		files++
		for _, key := range f.Keys() {
			v, _ := f.Get(key)
			total++
			if !langdata.IsPlaceholder(v) {
				translated++
			}
		}
		return nil
	})

	percent := 0
	if total > 0 {
		percent = translated * 100 / total
	}
	statusColor := colorGreen
	if percent < 50 {
		statusColor = colorRed
	} else if percent < 100 {
		statusColor = colorYellow
	}

	fmt.Fprintf(os.Stderr, "  Files:      %d\n", files)
	fmt.Fprintf(os.Stderr, "  Entries:    %d\n", total)
	fmt.Fprintf(os.Stderr, "  Translated: %s%d (%d%%)%s\n", statusColor, translated, percent, colorReset)
	fmt.Fprintln(os.Stderr)
}

// ---------------------------------------------------------------------------
// copy (bulk mod duplication)
// ---------------------------------------------------------------------------

func newCopyCmd() *cobra.Command {
	var opts bulkcopy.Options

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Bulk-copy mod folders (optionally stripping XML comments)",
		Long: `Copy every mod folder under --from into --to, in parallel.

With --strip-comments, XML files are rewritten without comments on the way
through — useful when preparing a lean redistribution of many mods at once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Logf = logInfo
			stats, err := bulkcopy.Run(context.Background(), opts)
			if stats != nil && stats.Mods() > 0 {
				logSuccess(i18n.T("Copied %d mods (%d files)"), stats.Mods(), stats.Files())
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.Source, "from", "", "Directory holding one sub-directory per mod")
	cmd.Flags().StringVar(&opts.Dest, "to", "", "Destination root")
	cmd.Flags().StringVar(&opts.Subfolder, "subfolder", "", "Optional folder inserted under the destination")
	cmd.Flags().IntVar(&opts.Workers, "workers", bulkcopy.DefaultWorkers, "Copy pool size")
	cmd.Flags().BoolVar(&opts.CleanDest, "clean", false, "Remove the destination before copying")
	cmd.Flags().BoolVar(&opts.StripComments, "strip-comments", false, "Rewrite XML files without comments")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

// ---------------------------------------------------------------------------
// meta (About.xml metadata scraper)
// ---------------------------------------------------------------------------

func newMetaCmd() *cobra.Command {
	var src, dst string

	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Extract About.xml metadata from a folder of mods",
		Long: `Scan every mod under --from and write a minimal About file
(name, author, packageId, Workshop id) for each under --to/ModMetadata.
Mods without a usable About.xml are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := metadata.ScanMods(src, dst, logInfo)
			if res != nil {
				logSuccess(i18n.T("Metadata extracted for %d mods (%d skipped)"), res.Processed, res.Skipped)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&src, "from", "", "Directory holding one sub-directory per mod")
	cmd.Flags().StringVar(&dst, "to", "", "Destination root")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// dirExists returns true if the path exists and is a directory.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
