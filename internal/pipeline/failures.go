package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// WriteFailureLog writes one line per failure:
//
//	<RFC3339 timestamp> run=<id> <source> -> <dest>: <reason>
func WriteFailureLog(w io.Writer, runID string, now time.Time, failures []Outcome) error {
	ts := now.Format(time.RFC3339)
	for _, f := range failures {
		dest := f.Entry.Dest
		if dest == "" {
			dest = "-"
		}
		if _, err := fmt.Fprintf(w, "%s run=%s %s -> %s: %s\n", ts, runID, f.Entry.Rel, dest, f.Reason); err != nil {
			return err
		}
	}
	return nil
}

// appendFailureLog appends failures to the file at path, creating it (and
// its parent directory) when needed. Nothing is written when there are no
// failures.
func appendFailureLog(path, runID string, now time.Time, failures []Outcome) error {
	if path == "" || len(failures) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failure log: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failure log: %w", err)
	}
	if err := WriteFailureLog(f, runID, now, failures); err != nil {
		f.Close()
		return fmt.Errorf("failure log: %w", err)
	}
	return f.Close()
}
