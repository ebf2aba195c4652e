package ffmpeg

import (
	"context"
	"io"
	"os"

	"github.com/backmassage/m8prep/internal/logging"
)

// Converter runs ffmpeg for one job at a time with the tolerant-decode retry.
// It is safe for concurrent use; each call builds its own command.
type Converter struct {
	Bin     string // ffmpeg binary; "ffmpeg" when empty.
	Strict  bool   // Disable the retry.
	Verbose bool   // Raise ffmpeg's log level and tee its stderr.
	Log     *logging.Logger

	// run executes one command. Tests replace it; nil uses Execute.
	run func(ctx context.Context, args []string, tee io.Writer) ExecResult
}

// Convert converts job.Source to job.Output. On failure the returned error
// is a *ConversionError carrying the classified reason; a cancelled context
// is returned as ctx.Err().
func (c *Converter) Convert(ctx context.Context, job Job) error {
	bin := c.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	run := c.run
	if run == nil {
		run = Execute
	}
	var tee io.Writer
	if c.Verbose {
		tee = os.Stderr
	}

	rs := NewRetryState()
	for {
		args, err := Build(bin, job, rs, c.Verbose)
		if err != nil {
			return err
		}
		if c.Log != nil {
			c.Log.Debug("Command: %v", args)
		}

		result := run(ctx, args, tee)
		if result.Err == nil {
			return nil
		}
		// Stop retrying if the context has been cancelled (e.g. SIGINT).
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fail := &ConversionError{
			Reason:   Reason(result.Stderr, result.Err),
			Stderr:   result.Stderr,
			Attempts: rs.Attempt + 1,
			Err:      result.Err,
		}
		if c.Strict {
			return fail
		}
		action := rs.Advance(result.Stderr)
		if action == RetryNone {
			return fail
		}
		if c.Log != nil {
			c.Log.Warn("Retry %d for %s: %s", rs.Attempt, job.Source, action)
		}
	}
}
