package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/backmassage/m8prep/internal/config"
	"github.com/backmassage/m8prep/internal/display"
	"github.com/backmassage/m8prep/internal/ffmpeg"
	"github.com/backmassage/m8prep/internal/logging"
	"github.com/backmassage/m8prep/internal/naming"
	"github.com/backmassage/m8prep/internal/probe"
)

// partialSuffix marks a conversion in progress; the file is renamed into
// place only after ffmpeg succeeds.
const partialSuffix = ".partial"

// Converter converts one source file to the WAV target.
type Converter interface {
	Convert(ctx context.Context, job ffmpeg.Job) error
}

// Prober inspects a source file before conversion.
type Prober interface {
	Probe(ctx context.Context, path string) (*probe.Result, error)
}

// Deps are the collaborators of a run. Prober is optional.
type Deps struct {
	Source    billy.Filesystem
	Dest      billy.Filesystem
	Converter Converter
	Prober    Prober
	Log       *logging.Logger
}

// runner holds the per-run state shared by the worker goroutines.
type runner struct {
	cfg  *config.Config
	deps Deps
	log  *logging.Logger

	mu  sync.Mutex
	res *Result
}

// Run performs one incremental scan: preflight, discover and plan every
// entry sequentially, then convert what is missing with up to cfg.Jobs
// workers. Per-file failures are recorded in the result and the failure log;
// only setup problems are returned as errors (always a *SetupError).
//
// A cancelled ctx stops dispatching new files; the partial result is
// returned with Interrupted set.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (*Result, error) {
	log := deps.Log
	if log == nil {
		log = logging.Discard()
	}
	if !cfg.DryRun && deps.Converter == nil {
		return nil, &SetupError{Op: "dependencies", Err: errors.New("no converter configured")}
	}
	if err := Preflight(deps.Source, deps.Dest, cfg.DryRun); err != nil {
		return nil, err
	}
	norm, err := naming.NewNormalizer(cfg.NamingOptions())
	if err != nil {
		return nil, &SetupError{Op: "config", Err: err}
	}

	r := &runner{
		cfg:  cfg,
		deps: deps,
		log:  log,
		res:  &Result{RunID: uuid.NewString(), Started: time.Now()},
	}

	logBatchHeader(cfg, log, r.res.RunID)
	todo := r.plan(ctx, norm)
	r.execute(ctx, todo)

	r.res.Elapsed = time.Since(r.res.Started)
	sort.Slice(r.res.Failures, func(i, j int) bool {
		return r.res.Failures[i].Entry.Rel < r.res.Failures[j].Entry.Rel
	})
	if ctx.Err() != nil {
		r.res.Interrupted = true
		log.Warn("Interrupted")
	}

	if !cfg.DryRun {
		if err := appendFailureLog(cfg.ErrorLog, r.res.RunID, time.Now(), r.res.Failures); err != nil {
			log.Error("%v", err)
		} else if len(r.res.Failures) > 0 {
			log.Info("Failures appended to %s", cfg.ErrorLog)
		}
	}
	logSummary(cfg, log, r.res)
	return r.res, nil
}

// plan walks the source tree and assigns every supported entry its final
// destination. It runs on one goroutine so collision numbering follows the
// sorted discovery order.
func (r *runner) plan(ctx context.Context, norm *naming.Normalizer) []SourceEntry {
	resolver := naming.NewCollisionResolver(r.cfg.JoinSep)
	var todo []SourceEntry

	for entry, err := range Discover(r.deps.Source, r.cfg.FileTypes) {
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			r.log.Error("Cannot read %s: %v", entry.Rel, err)
			r.record(Outcome{State: StateFailed, Entry: entry, Reason: "unreadable directory"})
			continue
		}
		r.res.Stats.Found++
		if !entry.Supported {
			r.log.Debug("Ignore (type): %s", entry.Rel)
			r.record(Outcome{State: StateIgnored, Entry: entry})
			continue
		}

		m := norm.Flatten(entry.Rel)
		dest, renamed := resolver.Resolve(entry.Rel, m)
		if renamed {
			r.res.Stats.Collisions++
			r.log.Warn("Name collision: %s -> %s (wanted %s)", entry.Rel, dest, m.Path())
		}
		entry.Dest = dest
		todo = append(todo, entry)
		r.res.Planned = append(r.res.Planned, entry)
	}
	return todo
}

// execute processes the planned entries, sequentially when Jobs is 1.
func (r *runner) execute(ctx context.Context, todo []SourceEntry) {
	var g errgroup.Group
	g.SetLimit(max(r.cfg.Jobs, 1))

	for i, entry := range todo {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r.log.Debug("[%d/%d] %s", i+1, len(todo), entry.Rel)
			r.record(r.process(ctx, entry))
			return nil
		})
	}
	_ = g.Wait()
}

// record folds o into the result. Safe for concurrent use.
func (r *runner) record(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.res.Stats.record(o)
	if o.State == StateFailed {
		r.res.Failures = append(r.res.Failures, o)
	}
}

// process handles one planned entry: skip → plan only → probe → convert.
func (r *runner) process(ctx context.Context, e SourceEntry) Outcome {
	dest := r.deps.Dest

	if r.cfg.SkipExisting {
		if _, err := dest.Stat(e.Dest); err == nil {
			r.log.Skip("Skip (exists): %s", e.Dest)
			return Outcome{State: StateSkipped, Entry: e}
		}
	}

	if r.cfg.DryRun {
		r.log.Info("[DRY] %s -> %s", e.Rel, e.Dest)
		return Outcome{State: StatePlanned, Entry: e}
	}

	if r.deps.Prober != nil {
		pr, err := r.deps.Prober.Probe(ctx, e.Path)
		if err != nil {
			return r.fail(e, "probe failed", err)
		}
		if !pr.HasAudio() {
			return r.fail(e, "no audio stream", nil)
		}
		r.log.Debug("  %s: %s", e.Rel, pr.Summary())
	}

	if dir := path.Dir(filepath.ToSlash(e.Dest)); dir != "." {
		if err := dest.MkdirAll(dir, 0o755); err != nil {
			return r.fail(e, "cannot create destination folder", err)
		}
	}

	partial := e.Dest + partialSuffix
	job := ffmpeg.Job{
		Source:   e.Path,
		Output:   filepath.Join(dest.Root(), partial),
		BitDepth: r.cfg.TargetBitDepth,
	}
	start := time.Now()
	if err := r.deps.Converter.Convert(ctx, job); err != nil {
		_ = dest.Remove(partial)
		var ce *ffmpeg.ConversionError
		switch {
		case errors.As(err, &ce):
			r.log.Debug("ffmpeg stderr for %s:\n%s", e.Rel, ce.Stderr)
			return r.fail(e, ce.Reason, nil)
		case ctx.Err() != nil:
			return r.fail(e, "interrupted", nil)
		default:
			return r.fail(e, "conversion failed", err)
		}
	}

	if !r.cfg.SkipExisting {
		_ = dest.Remove(e.Dest)
	}
	if err := dest.Rename(partial, e.Dest); err != nil {
		_ = dest.Remove(partial)
		return r.fail(e, "cannot move converted file into place", err)
	}

	var size int64
	if fi, err := dest.Stat(e.Dest); err == nil {
		size = fi.Size()
	}
	r.log.Success("%s -> %s (%s, %.1fs)", e.Rel, e.Dest, display.FormatBytes(size), time.Since(start).Seconds())
	return Outcome{State: StateConverted, Entry: e, Bytes: size}
}

// fail logs and builds a Failed outcome. err, when set, is appended to the
// reason.
func (r *runner) fail(e SourceEntry, reason string, err error) Outcome {
	if err != nil {
		reason = fmt.Sprintf("%s: %v", reason, err)
	}
	r.log.Error("%s: %s", e.Rel, reason)
	return Outcome{State: StateFailed, Entry: e, Reason: reason}
}

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, log *logging.Logger, runID string) {
	log.Info("Run %s", runID)
	log.Info("Source: %s", cfg.SourceDir)
	log.Info("Destination: %s", cfg.DestDir)
	log.Info("Target: WAV %d-bit, file types: %v", cfg.TargetBitDepth, cfg.FileTypes)
	log.Info("Limits: file %d, folder %d, path %d", cfg.MaxFileLength, cfg.MaxDirLength, cfg.MaxOutputLength)
	if cfg.Jobs > 1 {
		log.Info("Workers: %d", cfg.Jobs)
	}
	if !cfg.SkipExisting {
		log.Info("Existing destinations will be overwritten")
	}
	if cfg.StrictMode {
		log.Info("Retry policy: strict (no tolerant-decode retry)")
	}
	if cfg.DryRun {
		log.Info("Dry run: nothing will be written")
	}
}

func logSummary(cfg *config.Config, log *logging.Logger, res *Result) {
	s := res.Stats
	log.Info("==============================")
	if cfg.DryRun {
		log.Info("Done (dry run): %d planned, %d skipped, %d ignored", s.Planned, s.Skipped, s.Ignored)
	} else {
		log.Info("Done: %d converted, %d skipped, %d failed, %d ignored", s.Converted, s.Skipped, s.Failed, s.Ignored)
	}
	log.Info("  Files found: %d (%d supported)", s.Found, s.Found-s.Ignored)
	if s.Collisions > 0 {
		log.Warn("  Name collisions resolved: %d", s.Collisions)
	}
	if s.Converted > 0 {
		log.Info("  Written: %s from %s of source audio (%s)",
			display.FormatBytes(s.OutputBytes), display.FormatBytes(s.InputBytes),
			display.FormatRatio(s.InputBytes, s.OutputBytes))
	}
	log.Info("  Elapsed: %s", res.Elapsed.Round(time.Millisecond))
	if s.Failed > 0 {
		log.Error("  %d file(s) failed; see %s", s.Failed, cfg.ErrorLog)
	}
}

// The production collaborators satisfy the contracts.
var (
	_ Converter = (*ffmpeg.Converter)(nil)
	_ Prober    = (*probe.Prober)(nil)
)
