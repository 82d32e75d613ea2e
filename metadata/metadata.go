// Package metadata reads and writes RimWorld mod About.xml metadata.
//
// A mod's identity lives in About/About.xml (name, author, packageId) plus
// an optional PublishedFileId.txt carrying its Steam Workshop id. The writer
// produces the minimal About.xml a translation package ships with.
package metadata

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Mod is the metadata of one mod.
type Mod struct {
	Name            string
	Author          string
	PackageID       string
	PublishedFileID string
}

// aboutXML mirrors the fields read from About.xml.
type aboutXML struct {
	XMLName   xml.Name `xml:"ModMetaData"`
	Name      string   `xml:"name"`
	Author    string   `xml:"author"`
	PackageID string   `xml:"packageId"`
}

// Read loads a mod's metadata. The packageId is mandatory; name and author
// fall back to the folder name and "Unknown".
func Read(modPath string) (*Mod, error) {
	var aboutPath string
	for _, name := range []string{"About.xml", "about.xml"} {
		p := filepath.Join(modPath, "About", name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			aboutPath = p
			break
		}
	}
	if aboutPath == "" {
		return nil, fmt.Errorf("%s has no About/About.xml", modPath)
	}

	data, err := os.ReadFile(aboutPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", aboutPath, err)
	}
	var about aboutXML
	if err := xml.Unmarshal(data, &about); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", aboutPath, err)
	}
	if strings.TrimSpace(about.PackageID) == "" {
		return nil, fmt.Errorf("%s has no packageId", aboutPath)
	}

	mod := &Mod{
		Name:      strings.TrimSpace(about.Name),
		Author:    strings.TrimSpace(about.Author),
		PackageID: strings.TrimSpace(about.PackageID),
	}
	if mod.Name == "" {
		mod.Name = filepath.Base(filepath.Clean(modPath))
	}
	if mod.Author == "" {
		mod.Author = "Unknown"
	}

	for _, p := range []string{
		filepath.Join(modPath, "PublishedFileId.txt"),
		filepath.Join(modPath, "About", "PublishedFileId.txt"),
	} {
		if data, err := os.ReadFile(p); err == nil {
			if id := strings.TrimSpace(string(data)); id != "" {
				mod.PublishedFileID = id
				break
			}
		}
	}
	return mod, nil
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// WriteMinimalAbout writes the minimal About.xml under baseDir/About. The
// file is named About_<fileId>.xml when the Workshop id is known, and the
// id is also dropped alongside as PublishedFileId.txt. Returns the file name
// written.
func WriteMinimalAbout(mod *Mod, baseDir string) (string, error) {
	lines := []string{
		"<ModMetaData>",
		"\t<name>" + textEscaper.Replace(mod.Name) + "</name>",
		"\t<author>" + textEscaper.Replace(mod.Author) + "</author>",
		"\t<packageId>" + textEscaper.Replace(mod.PackageID) + "</packageId>",
	}
	if mod.PublishedFileID != "" {
		lines = append(lines, "\t<!-- PublishedFileId: "+mod.PublishedFileID+" -->")
	}
	lines = append(lines, "</ModMetaData>")

	aboutDir := filepath.Join(baseDir, "About")
	if err := os.MkdirAll(aboutDir, 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", aboutDir, err)
	}

	fileName := "About.xml"
	if mod.PublishedFileID != "" {
		fileName = "About_" + mod.PublishedFileID + ".xml"
	}
	path := filepath.Join(aboutDir, fileName)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	if mod.PublishedFileID != "" {
		idPath := filepath.Join(aboutDir, "PublishedFileId.txt")
		if err := os.WriteFile(idPath, []byte(mod.PublishedFileID), 0644); err != nil {
			return "", fmt.Errorf("writing %s: %w", idPath, err)
		}
	}
	return fileName, nil
}

// ScanResult aggregates one ScanMods run.
type ScanResult struct {
	Processed int
	Skipped   int
}

// scanOutputDir is the folder created under the destination by ScanMods.
const scanOutputDir = "ModMetadata"

// forbiddenChars are characters invalid in folder names on common
// filesystems.
var forbiddenChars = regexp.MustCompile(`[<>"/\\|?*]`)

// SanitizeFolderName makes a mod name safe to use as a folder name.
func SanitizeFolderName(name string) string {
	return strings.TrimSpace(forbiddenChars.ReplaceAllString(name, "_"))
}

// ScanMods walks a directory of mods and writes a minimal About file for
// each under dest/ModMetadata/<mod>/About. Mods without a usable About.xml
// are counted as skipped, not failed.
func ScanMods(srcDir, destDir string, logf func(format string, args ...any)) (*ScanResult, error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", srcDir, err)
	}

	res := &ScanResult{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		mod, err := Read(filepath.Join(srcDir, e.Name()))
		if err != nil {
			res.Skipped++
			if logf != nil {
				logf("skipping %s: %v", e.Name(), err)
			}
			continue
		}

		folder := SanitizeFolderName(mod.Name)
		if folder == "" {
			folder = e.Name()
		}
		outDir := filepath.Join(destDir, scanOutputDir, folder)
		fileName, err := WriteMinimalAbout(mod, outDir)
		if err != nil {
			return res, err
		}
		res.Processed++
		if logf != nil {
			logf("wrote %s for %s (%s)", fileName, mod.Name, mod.PackageID)
		}
	}
	return res, nil
}
