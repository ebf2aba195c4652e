package naming

import (
	"errors"
	"fmt"
	"strings"
)

// OutputExt is the extension of every destination file. The conversion
// target is always WAV regardless of the source container.
const OutputExt = ".wav"

// collisionReserve is the smallest stem a destination file must be able to
// hold so a collision suffix ("x_01") still fits within its budget.
const collisionReserve = 4

// MinFileLength and MinOutputLength are the smallest limits for which every
// mapping (including collision suffixes) can honor its bounds.
const (
	MinFileLength   = collisionReserve + len(OutputExt)
	MinOutputLength = MinFileLength + 2
)

// WordFormat selects the case applied to every token of a segment.
type WordFormat string

const (
	FormatLower WordFormat = "lower" // Default.
	FormatUpper WordFormat = "upper"
	FormatTitle WordFormat = "title"
	FormatNone  WordFormat = "none" // Keep source casing.
)

// StrikeMatch selects how strike words are compared against tokens.
type StrikeMatch string

const (
	StrikePrefix StrikeMatch = "prefix" // "sample" strikes "samples" (default).
	StrikeExact  StrikeMatch = "exact"
)

// TruncateMode selects how a single token longer than its limit is cut.
type TruncateMode string

const (
	TruncateEnd    TruncateMode = "end"    // Keep the head (default).
	TruncateMiddle TruncateMode = "middle" // Keep head and tail, drop the middle.
)

// Options is the immutable normalization configuration. It is built once per
// run (see config.Config.NamingOptions) and never mutated afterwards.
type Options struct {
	StrikeWords      []string
	StrikeMatch      StrikeMatch
	Phrases          map[string]string // lowercase phrase -> replacement
	SplitPunctuation string
	FillPunctuation  string
	JoinSep          string
	WordFormat       WordFormat
	MaxFileLength    int // Includes OutputExt.
	MaxDirLength     int
	MaxOutputLength  int // Directory + separator + file.
	DedupePath       bool
	Truncate         TruncateMode
	Placeholder      string
	ASCIIOnly        bool
}

// Validate checks the options for values the engine cannot honor. It is
// called at the configuration boundary so the engine itself can assume a
// consistent Options value.
func (o Options) Validate() error {
	switch o.WordFormat {
	case FormatLower, FormatUpper, FormatTitle, FormatNone:
	default:
		return fmt.Errorf("invalid word format %q (use lower, upper, title or none)", o.WordFormat)
	}
	switch o.StrikeMatch {
	case StrikePrefix, StrikeExact:
	default:
		return fmt.Errorf("invalid strike match %q (use prefix or exact)", o.StrikeMatch)
	}
	switch o.Truncate {
	case TruncateEnd, TruncateMiddle:
	default:
		return fmt.Errorf("invalid truncate mode %q (use end or middle)", o.Truncate)
	}

	if o.MaxFileLength < MinFileLength {
		return fmt.Errorf("max file length must be at least %d (got %d)", MinFileLength, o.MaxFileLength)
	}
	if o.MaxDirLength < 1 {
		return fmt.Errorf("max dir length must be positive (got %d)", o.MaxDirLength)
	}
	if o.MaxOutputLength < MinOutputLength {
		return fmt.Errorf("max output length must be at least %d (got %d)", MinOutputLength, o.MaxOutputLength)
	}

	for _, r := range o.FillPunctuation {
		if strings.ContainsRune(o.SplitPunctuation, r) {
			return fmt.Errorf("character %q is both split and fill punctuation", r)
		}
		if strings.ContainsRune(o.JoinSep, r) {
			return fmt.Errorf("join separator %q contains fill punctuation %q", o.JoinSep, r)
		}
	}
	if o.JoinSep == "" && o.WordFormat == FormatTitle {
		return errors.New("title word format needs a non-empty join separator")
	}

	if strings.TrimSpace(o.Placeholder) == "" {
		return errors.New("placeholder must not be empty")
	}
	if strings.ContainsAny(o.Placeholder, o.SplitPunctuation+o.FillPunctuation+o.JoinSep+" \t") {
		return fmt.Errorf("placeholder %q must be a single word without punctuation", o.Placeholder)
	}
	return nil
}
