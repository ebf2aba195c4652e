package pipeline

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/backmassage/m8prep/internal/config"
	"github.com/backmassage/m8prep/internal/display"
	"github.com/backmassage/m8prep/internal/logging"
	"github.com/backmassage/m8prep/internal/term"
)

// Outlier classes.
const (
	classNormal  = ""
	classOutlier = "outlier"
	classExtreme = "extreme"
)

// AnalysisRow holds the probed data for one source sample.
type AnalysisRow struct {
	Rel        string
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   float64 // Seconds.
	Size       int64
	Flag       string // "", "outlier", or "extreme" (worst of duration and size).
}

// AnalysisReport is what [Analyze] returns.
type AnalysisReport struct {
	Rows      []AnalysisRow
	Skipped   int // Probe failures and files without audio.
	Ignored   int // Unsupported extensions.
	Outliers  int
	Extremes  int
	Durations iqrBounds
	Sizes     iqrBounds
}

// Analyze probes every supported source file and prints a table of codec,
// rate, depth, and duration, flagging samples whose duration or size is a
// statistical outlier for the library (long loops eat the device's sample
// memory). Nothing is converted. deps.Prober is required.
func Analyze(ctx context.Context, cfg *config.Config, deps Deps, out io.Writer) (*AnalysisReport, error) {
	log := deps.Log
	if log == nil {
		log = logging.Discard()
	}
	if deps.Prober == nil {
		return nil, &SetupError{Op: "dependencies", Err: fmt.Errorf("analyze requires ffprobe")}
	}
	if err := Preflight(deps.Source, deps.Dest, true); err != nil {
		return nil, err
	}

	var entries []SourceEntry
	rep := &AnalysisReport{}
	for e, err := range Discover(deps.Source, cfg.FileTypes) {
		if err != nil {
			log.Warn("Cannot read %s: %v", e.Rel, err)
			continue
		}
		if !e.Supported {
			rep.Ignored++
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		log.Warn("No sample files found in %s", cfg.SourceDir)
		return rep, nil
	}

	log.Info("Analyzing %d files in %s", len(entries), cfg.SourceDir)
	tty := isTTY(out)
	var durations, sizes []float64

	for i, e := range entries {
		if ctx.Err() != nil {
			if tty {
				clearProgress(out)
			}
			log.Warn("Interrupted")
			break
		}
		if tty {
			printProgress(out, i+1, len(entries), rep.Skipped, e.Rel)
		}

		pr, err := deps.Prober.Probe(ctx, e.Path)
		if err != nil || !pr.HasAudio() {
			rep.Skipped++
			if tty {
				clearProgress(out)
			}
			if err != nil {
				log.Warn("Skip (probe failed): %s", e.Rel)
			} else {
				log.Warn("Skip (no audio): %s", e.Rel)
			}
			continue
		}

		a := pr.Primary()
		row := AnalysisRow{
			Rel:        e.Rel,
			Codec:      a.Codec,
			SampleRate: a.SampleRate,
			Channels:   a.Channels,
			BitDepth:   a.BitDepth(),
			Duration:   a.Duration,
			Size:       e.Size,
		}
		if row.Duration <= 0 {
			row.Duration = pr.Format.Duration
		}
		rep.Rows = append(rep.Rows, row)
		if row.Duration > 0 {
			durations = append(durations, row.Duration)
		}
		if row.Size > 0 {
			sizes = append(sizes, float64(row.Size))
		}
	}
	if tty {
		clearProgress(out)
	}
	if len(rep.Rows) == 0 {
		log.Warn("No files could be probed")
		return rep, nil
	}

	rep.Durations = computeStats(durations)
	rep.Sizes = computeStats(sizes)
	for i := range rep.Rows {
		r := &rep.Rows[i]
		r.Flag = worstFlag(rep.Durations.classify(r.Duration), rep.Sizes.classify(float64(r.Size)))
		switch r.Flag {
		case classExtreme:
			rep.Extremes++
		case classOutlier:
			rep.Outliers++
		}
	}

	printAnalysisTable(out, rep)
	printAnalysisSummary(log, rep)
	return rep, nil
}

// iqrBounds holds the IQR-based thresholds for outlier classification.
type iqrBounds struct {
	Q1, Q3    float64
	outlierLo float64 // Q1 - 1.5*IQR
	outlierHi float64 // Q3 + 1.5*IQR
	extremeLo float64 // Q1 - 3.0*IQR
	extremeHi float64 // Q3 + 3.0*IQR
	Valid     bool
}

func computeStats(vals []float64) iqrBounds {
	if len(vals) < 4 {
		return iqrBounds{}
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	iqr := q3 - q1

	return iqrBounds{
		Q1:        q1,
		Q3:        q3,
		outlierLo: q1 - 1.5*iqr,
		outlierHi: q3 + 1.5*iqr,
		extremeLo: q1 - 3.0*iqr,
		extremeHi: q3 + 3.0*iqr,
		Valid:     iqr > 0,
	}
}

// classify returns classNormal, classOutlier, or classExtreme for a value.
func (b *iqrBounds) classify(v float64) string {
	if !b.Valid || v <= 0 {
		return classNormal
	}
	if v < b.extremeLo || v > b.extremeHi {
		return classExtreme
	}
	if v < b.outlierLo || v > b.outlierHi {
		return classOutlier
	}
	return classNormal
}

func worstFlag(classes ...string) string {
	worst := classNormal
	for _, c := range classes {
		if c == classExtreme {
			return classExtreme
		}
		if c == classOutlier {
			worst = classOutlier
		}
	}
	return worst
}

func printAnalysisTable(out io.Writer, rep *AnalysisReport) {
	headers := []string{"File", "Codec", "Rate", "Ch", "Depth", "Length", "Size"}
	cells := make([][]string, len(rep.Rows))
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for i, r := range rep.Rows {
		cells[i] = []string{
			r.Rel,
			r.Codec,
			fmt.Sprintf("%d Hz", r.SampleRate),
			fmt.Sprintf("%d", r.Channels),
			fmtDepth(r.BitDepth),
			fmt.Sprintf("%.2fs", r.Duration),
			display.FormatBytes(r.Size),
		}
		for j, c := range cells[i] {
			widths[j] = max(widths[j], lipgloss.Width(c))
		}
	}
	widths[0] = min(widths[0], 50)

	var b strings.Builder
	b.WriteString(" ")
	for i, h := range headers {
		fmt.Fprintf(&b, " %-*s ", widths[i], h)
	}
	header := strings.TrimRight(b.String(), " ")
	fmt.Fprintln(out, term.Header.Render(header))
	fmt.Fprintln(out, "  "+strings.Repeat("─", len(header)-2))

	for i, r := range rep.Rows {
		b.Reset()
		b.WriteString(" ")
		for j, c := range cells[i] {
			if j == 0 && lipgloss.Width(c) > widths[0] {
				c = "…" + string([]rune(c)[len([]rune(c))-widths[0]+1:])
			}
			// Pad the plain text first so escape bytes never count as width.
			padded := fmt.Sprintf(" %-*s ", widths[j], c)
			if j == 5 || j == 6 {
				padded = flagStyle(r.Flag).Render(padded)
			}
			b.WriteString(padded)
		}
		b.WriteString(formatFlag(r.Flag))
		fmt.Fprintln(out, strings.TrimRight(b.String(), " "))
	}
	fmt.Fprintln(out)
}

func printAnalysisSummary(log *logging.Logger, rep *AnalysisReport) {
	log.Info("Analyzed %d files (%d skipped, %d ignored)", len(rep.Rows), rep.Skipped, rep.Ignored)
	if rep.Durations.Valid {
		log.Info("  Length IQR: %.2fs – %.2fs (outlier above %.2fs)",
			rep.Durations.Q1, rep.Durations.Q3, rep.Durations.outlierHi)
	}
	if rep.Sizes.Valid {
		log.Info("  Size IQR: %s – %s",
			display.FormatBytes(int64(rep.Sizes.Q1)), display.FormatBytes(int64(rep.Sizes.Q3)))
	}
	if rep.Outliers > 0 {
		log.Warn("  %d outlier(s) flagged [*]", rep.Outliers)
	}
	if rep.Extremes > 0 {
		log.Error("  %d extreme outlier(s) flagged [!]", rep.Extremes)
	}
	if rep.Outliers == 0 && rep.Extremes == 0 {
		log.Success("  No outliers detected")
	}
}

func fmtDepth(bits int) string {
	if bits <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%d-bit", bits)
}

func flagStyle(flag string) lipgloss.Style {
	switch flag {
	case classExtreme:
		return term.Error
	case classOutlier:
		return term.Warn
	default:
		return lipgloss.NewStyle()
	}
}

func formatFlag(flag string) string {
	switch flag {
	case classExtreme:
		return term.Error.Render("[!]")
	case classOutlier:
		return term.Warn.Render("[*]")
	default:
		return ""
	}
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f)
}

// printProgress shows a live probe counter as an inline \r-overwritten line.
func printProgress(out io.Writer, current, total, skipped int, name string) {
	pct := current * 100 / total
	status := fmt.Sprintf("  Probing [%d/%d] %d%% ", current, total, pct)
	if skipped > 0 {
		status += fmt.Sprintf("(%d skipped) ", skipped)
	}

	const maxName = 40
	if r := []rune(name); len(r) > maxName {
		name = "…" + string(r[len(r)-maxName+1:])
	}
	status += name

	// Pad to 80 columns to overwrite previous longer lines.
	if w := lipgloss.Width(status); w < 80 {
		status += strings.Repeat(" ", 80-w)
	}
	fmt.Fprintf(out, "\r%s", status)
}

// clearProgress erases the inline progress line.
func clearProgress(out io.Writer) {
	fmt.Fprintf(out, "\r%s\r", strings.Repeat(" ", 80))
}

// percentile computes the p-th percentile using linear interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi || hi >= len(sorted) {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
