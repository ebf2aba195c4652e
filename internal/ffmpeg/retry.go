package ffmpeg

// RetryAction identifies which fix was applied (or none).
type RetryAction int

const (
	RetryNone           RetryAction = iota
	RetryTolerantDecode             // Ignore decode errors and drop corrupt packets.
)

// String returns the label used in retry log lines.
func (a RetryAction) String() string {
	switch a {
	case RetryTolerantDecode:
		return "tolerant decode"
	default:
		return "none"
	}
}

const maxAttempts = 2

// RetryState tracks which fallback fixes have been applied across ffmpeg
// attempts for a single file.
type RetryState struct {
	Attempt     int
	MaxAttempts int
	Tolerant    bool
}

// NewRetryState returns the state for a first attempt.
func NewRetryState() *RetryState {
	return &RetryState{MaxAttempts: maxAttempts}
}

// Advance inspects stderr from a failed ffmpeg run and applies the next fix.
// Returns RetryNone when no fixable pattern matches or the attempt limit is
// reached. A missing audio stream is never retried.
func (s *RetryState) Advance(stderr string) RetryAction {
	s.Attempt++
	if s.Attempt >= s.MaxAttempts {
		return RetryNone
	}
	if MatchNoAudio(stderr) {
		return RetryNone
	}
	if !s.Tolerant && MatchCorruptInput(stderr) {
		s.Tolerant = true
		return RetryTolerantDecode
	}
	return RetryNone
}
