package pipeline

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// SourceEntry is one regular file found under the source root.
type SourceEntry struct {
	Path      string // Absolute path, for external tools.
	Rel       string // Path relative to the source root.
	Ext       string // Lowercase extension without the dot.
	Size      int64
	Supported bool   // Extension is one of the configured file types.
	Dest      string // Destination relative to the destination root; set when planned.
}

// Discover walks fsys from its root and yields every regular file in sorted
// order (directories and files interleaved by name, depth first). Entries
// whose name starts with "." are skipped, directories included, which also
// drops macOS "._" resource forks. Symlinks to regular files are followed;
// symlinks to directories are not.
//
// A directory that cannot be read yields one error (with Rel set to the
// directory) and the walk continues with its siblings.
func Discover(fsys billy.Filesystem, types []string) iter.Seq2[SourceEntry, error] {
	supported := make(map[string]bool, len(types))
	for _, t := range types {
		supported[strings.ToLower(strings.TrimLeft(t, "*."))] = true
	}
	return func(yield func(SourceEntry, error) bool) {
		walk(fsys, "", supported, yield)
	}
}

// walk visits dir and reports whether the caller still wants entries.
func walk(fsys billy.Filesystem, dir string, supported map[string]bool, yield func(SourceEntry, error) bool) bool {
	infos, err := fsys.ReadDir(dir)
	if err != nil {
		return yield(SourceEntry{Rel: dir}, fmt.Errorf("read dir %q: %w", dir, err))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	for _, fi := range infos {
		name := fi.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		rel := filepath.Join(dir, name)

		if fi.Mode()&os.ModeSymlink != 0 {
			target, err := fsys.Stat(rel)
			if err != nil || !target.Mode().IsRegular() {
				continue
			}
			fi = target
		}
		if fi.IsDir() {
			if !walk(fsys, rel, supported, yield) {
				return false
			}
			continue
		}
		if !fi.Mode().IsRegular() {
			continue
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		entry := SourceEntry{
			Path:      filepath.Join(fsys.Root(), rel),
			Rel:       rel,
			Ext:       ext,
			Size:      fi.Size(),
			Supported: supported[ext],
		}
		if !yield(entry, nil) {
			return false
		}
	}
	return true
}
