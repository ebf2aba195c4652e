package pipeline

import "time"

// State is the final disposition of one source file.
type State int

const (
	StateIgnored   State = iota // Extension not in file_types.
	StateSkipped                // Destination already existed.
	StateConverted              // Converted and renamed into place.
	StateFailed                 // Conversion or filesystem error.
	StatePlanned                // Dry run: would be converted.
)

func (s State) String() string {
	switch s {
	case StateIgnored:
		return "ignored"
	case StateSkipped:
		return "skipped"
	case StateConverted:
		return "converted"
	case StateFailed:
		return "failed"
	case StatePlanned:
		return "planned"
	default:
		return "unknown"
	}
}

// Outcome records what happened to one entry.
type Outcome struct {
	State  State
	Entry  SourceEntry
	Reason string // Failure reason; empty otherwise.
	Bytes  int64  // Bytes written for converted entries.
}

// RunStats tracks aggregate counters and byte totals across a run.
type RunStats struct {
	Found       int // Every non-hidden regular file, ignored ones included.
	Ignored     int
	Converted   int
	Skipped     int
	Failed      int
	Planned     int
	Collisions  int // Destinations that needed a "_NN" suffix.
	InputBytes  int64
	OutputBytes int64
}

// record folds one outcome into the counters.
func (s *RunStats) record(o Outcome) {
	switch o.State {
	case StateIgnored:
		s.Ignored++
	case StateSkipped:
		s.Skipped++
	case StateConverted:
		s.Converted++
		s.InputBytes += o.Entry.Size
		s.OutputBytes += o.Bytes
	case StateFailed:
		s.Failed++
	case StatePlanned:
		s.Planned++
	}
}

// Processed returns the number of supported files the run dealt with.
func (s *RunStats) Processed() int {
	return s.Converted + s.Skipped + s.Failed + s.Planned
}

// Result is what [Run] returns for a completed (or interrupted) run.
type Result struct {
	RunID       string
	Started     time.Time
	Elapsed     time.Duration
	Stats       RunStats
	Failures    []Outcome     // Sorted by source path.
	Planned     []SourceEntry // Every entry with its destination, in discovery order.
	Interrupted bool
}
