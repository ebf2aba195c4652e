package ffmpeg

import (
	"fmt"
	"regexp"
	"strings"
)

// Pre-compiled regexes for classifying ffmpeg stderr output. Checked in order
// by [Reason]; the first match names the failure.
var (
	reNoAudio = regexp.MustCompile(
		`(?i)Stream map '0:a:0' matches no streams|` +
			`Output file #0 does not contain any stream|` +
			`does not contain any stream`)

	reCorruptInput = regexp.MustCompile(
		`(?i)Invalid data found when processing input|` +
			`Error while decoding stream|` +
			`Header missing|` +
			`invalid frame size|` +
			`Packet corrupt|` +
			`Truncating packet|` +
			`Error reading header`)

	reUnsupported = regexp.MustCompile(
		`(?i)Unknown input format|` +
			`Decoder \(codec .*\) not found|` +
			`Could not find codec parameters|` +
			`Unsupported codec`)

	rePermission = regexp.MustCompile(`Permission denied`)
	reNoSpace    = regexp.MustCompile(`No space left on device`)
	reNotFound   = regexp.MustCompile(`No such file or directory`)
)

// reasons pairs each classifier with the text recorded in the failure log.
var reasons = []struct {
	re     *regexp.Regexp
	reason string
}{
	{reNoAudio, "no audio stream"},
	{reUnsupported, "unsupported or unknown format"},
	{reCorruptInput, "corrupt or truncated input"},
	{rePermission, "permission denied"},
	{reNoSpace, "destination full"},
	{reNotFound, "file not found"},
}

// maxReasonLen bounds, in runes, the fallback reason taken from raw stderr.
const maxReasonLen = 160

// MatchCorruptInput reports whether stderr indicates damaged input that a
// tolerant decode may get through.
func MatchCorruptInput(stderr string) bool {
	return reCorruptInput.MatchString(stderr)
}

// MatchNoAudio reports whether stderr says the input has no audio stream.
func MatchNoAudio(stderr string) bool {
	return reNoAudio.MatchString(stderr)
}

// Reason condenses a failed run into a short human-readable reason: a known
// classification, else the last non-empty stderr line, else err itself.
func Reason(stderr string, err error) string {
	for _, r := range reasons {
		if r.re.MatchString(stderr) {
			return r.reason
		}
	}
	if line := lastLine(stderr); line != "" {
		if r := []rune(line); len(r) > maxReasonLen {
			line = string(r[:maxReasonLen]) + "..."
		}
		return line
	}
	if err != nil {
		return err.Error()
	}
	return "unknown ffmpeg failure"
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

// ConversionError is returned by [Converter.Convert] when ffmpeg fails.
type ConversionError struct {
	Reason   string
	Stderr   string
	Attempts int
	Err      error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("ffmpeg: %s", e.Reason)
}

func (e *ConversionError) Unwrap() error { return e.Err }
