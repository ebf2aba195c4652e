// Package pipeline orchestrates an incremental scan: discover source
// samples, map each to its normalized destination, skip what already
// exists, convert the rest, and record every outcome.
//
// Types:
//   - SourceEntry, Outcome, RunStats, Result
//   - Converter, Prober (collaborator contracts; ffmpeg and probe in
//     production, fakes in tests)
//   - SetupError (fatal preflight failures)
//
// Functions:
//   - Run(ctx, cfg, deps) → *Result
//     Preflight → discover + plan (sequential, so dedup and collision
//     decisions are deterministic) → execute (bounded worker pool) →
//     summary → failure log.
//   - Discover(fs, types) → iter.Seq2[SourceEntry, error]
//     Sorted recursive walk of a billy filesystem, hidden entries skipped.
//   - Analyze(ctx, cfg, deps)
//     Probe-only library report with duration/size outliers.
//
// Runner code lives in runner.go; discovery, stats, preflight, and the
// failure log have their own files.
package pipeline
