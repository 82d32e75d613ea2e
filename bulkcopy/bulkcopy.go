// Package bulkcopy duplicates mod folders in parallel.
//
// The copier runs a fixed-size worker pool over an immutable list of mod
// directories; each worker copies one mod at a time. XML files can optionally
// be rewritten without their comments on the way through. Progress counters
// are the only shared state and are guarded by a mutex.
package bulkcopy

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds the copy pool.
const DefaultWorkers = 4

// Options configure one copy run.
type Options struct {
	// Source is the directory holding one sub-directory per mod.
	Source string
	// Dest is the destination root.
	Dest string
	// Subfolder is an optional folder inserted under Dest.
	Subfolder string
	// Workers is the pool size; 0 means DefaultWorkers.
	Workers int
	// CleanDest removes the destination before copying.
	CleanDest bool
	// StripComments rewrites copied XML files without their comments.
	StripComments bool
	// Logf receives per-mod progress lines. Optional.
	Logf func(format string, args ...any)
}

// Stats counts completed work across workers.
type Stats struct {
	mu    sync.Mutex
	mods  int
	files int
}

func (s *Stats) add(files int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mods++
	s.files += files
}

// Mods returns the number of mods copied so far.
func (s *Stats) Mods() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mods
}

// Files returns the number of files copied so far.
func (s *Stats) Files() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files
}

// Run copies every mod directory under opts.Source. The first error stops
// scheduling new mods but lets in-flight copies finish.
func Run(ctx context.Context, opts Options) (*Stats, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	destRoot := filepath.Join(opts.Dest, opts.Subfolder)
	if opts.CleanDest {
		if err := os.RemoveAll(destRoot); err != nil {
			return nil, fmt.Errorf("cleaning %s: %w", destRoot, err)
		}
	}

	entries, err := os.ReadDir(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", opts.Source, err)
	}
	var mods []string
	for _, e := range entries {
		if e.IsDir() {
			mods = append(mods, e.Name())
		}
	}

	stats := &Stats{}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, mod := range mods {
		mod := mod
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := copyTree(filepath.Join(opts.Source, mod), filepath.Join(destRoot, mod), opts.StripComments)
			if err != nil {
				return fmt.Errorf("copying %s: %w", mod, err)
			}
			stats.add(n)
			if opts.Logf != nil {
				opts.Logf("copied %s (%d files)", mod, n)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

// copyTree copies src into dst and returns the number of files copied.
func copyTree(src, dst string, stripComments bool) (int, error) {
	count := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if stripComments && strings.EqualFold(filepath.Ext(path), ".xml") {
			if err := copyXMLStripped(path, target); err != nil {
				return err
			}
		} else if err := copyFile(path, target); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// copyXMLStripped rewrites one XML file without comments. A file that fails
// to parse is copied verbatim instead: malformed data is the mod author's
// problem, not a reason to drop the file.
func copyXMLStripped(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	stripped, err := StripComments(data)
	if err != nil {
		return os.WriteFile(dst, data, 0644)
	}
	return os.WriteFile(dst, stripped, 0644)
}

// StripComments re-encodes an XML document without its comments. Element
// structure and character data are preserved token-for-token; the original
// declaration is replaced by a standard one.
func StripComments(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch tok.(type) {
		case xml.Comment, xml.ProcInst:
			continue
		}
		if err := enc.EncodeToken(tok); err != nil {
			return nil, err
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
