package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// reNumericSuffix matches an existing "_NN" counter at the end of a stem.
var reNumericSuffix = regexp.MustCompile(`_[0-9]+$`)

// CollisionResolver tracks destination paths claimed by source files and
// resolves duplicates by appending "_NN" counters before the extension.
// Paths are compared case-insensitively because the target card is FAT
// formatted. All methods are goroutine-safe.
type CollisionResolver struct {
	mu      sync.Mutex
	joinSep string
	owners  map[string]string // lowercase destination -> source that owns it
}

// NewCollisionResolver creates a ready-to-use resolver. joinSep is trimmed
// from the end of a stem truncated to make room for a counter.
func NewCollisionResolver(joinSep string) *CollisionResolver {
	return &CollisionResolver{
		joinSep: joinSep,
		owners:  make(map[string]string),
	}
}

// Resolve returns the final destination for source. The first source to
// request a path keeps it; later sources get the first free "_NN" variant
// that still fits m.FileBudget. renamed reports whether a counter was added.
func (cr *CollisionResolver) Resolve(source string, m Mapping) (dest string, renamed bool) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	want := m.Path()
	if cr.claim(source, want) {
		return want, false
	}

	stem := strings.TrimSuffix(m.File, OutputExt)
	base := reNumericSuffix.ReplaceAllString(stem, "")

	for counter := 1; ; counter++ {
		candidate := Mapping{Dir: m.Dir, File: cr.numbered(base, counter, m.FileBudget)}
		if path := candidate.Path(); cr.claim(source, path) {
			return path, true
		}
	}
}

// claim records source as the owner of path when path is free (or already
// owned by source) and reports whether it succeeded.
func (cr *CollisionResolver) claim(source, path string) bool {
	key := strings.ToLower(filepath.Clean(path))
	owner, exists := cr.owners[key]
	if exists && owner != source {
		return false
	}
	cr.owners[key] = source
	return true
}

// numbered builds "<base>_NN.wav", truncating base so the name fits budget.
// When no room is left for the base the counter alone is the stem.
func (cr *CollisionResolver) numbered(base string, counter, budget int) string {
	suffix := fmt.Sprintf("_%02d", counter)
	room := budget - len(OutputExt) - len(suffix)
	if r := []rune(base); len(r) > room && room > 0 {
		base = string(r[:room])
	}
	if cr.joinSep != "" {
		base = strings.TrimRight(base, cr.joinSep)
	}
	if room <= 0 || base == "" {
		return fmt.Sprintf("%02d", counter) + OutputExt
	}
	return base + suffix + OutputExt
}
