package pipeline

import (
	"errors"
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Sentinel errors for fatal setup failures. They are always wrapped in a
// *SetupError.
var (
	ErrSourceUnreadable = errors.New("source folder is not readable")
	ErrDestUnwritable   = errors.New("destination folder is not writable")
)

// SetupError is a fatal error raised before any file is processed.
type SetupError struct {
	Op   string // "source", "destination", "dependencies", "config".
	Path string
	Err  error
}

func (e *SetupError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("setup %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("setup %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// writeProbeName is created and removed in the destination root to prove it
// is writable.
const writeProbeName = ".m8prep-write-test"

// Preflight checks that the source root is a readable directory and, unless
// dryRun, that the destination root exists (creating it) and accepts writes.
func Preflight(src, dest billy.Filesystem, dryRun bool) error {
	fi, err := src.Stat("")
	if err != nil {
		return &SetupError{Op: "source", Path: src.Root(), Err: fmt.Errorf("%w: %v", ErrSourceUnreadable, err)}
	}
	if !fi.IsDir() {
		return &SetupError{Op: "source", Path: src.Root(), Err: fmt.Errorf("%w: not a directory", ErrSourceUnreadable)}
	}
	if _, err := src.ReadDir(""); err != nil {
		return &SetupError{Op: "source", Path: src.Root(), Err: fmt.Errorf("%w: %v", ErrSourceUnreadable, err)}
	}

	if dryRun {
		return nil
	}
	if err := dest.MkdirAll("", 0o755); err != nil {
		return &SetupError{Op: "destination", Path: dest.Root(), Err: fmt.Errorf("%w: %v", ErrDestUnwritable, err)}
	}
	if err := util.WriteFile(dest, writeProbeName, nil, 0o644); err != nil {
		return &SetupError{Op: "destination", Path: dest.Root(), Err: fmt.Errorf("%w: %v", ErrDestUnwritable, err)}
	}
	_ = dest.Remove(writeProbeName)
	return nil
}
