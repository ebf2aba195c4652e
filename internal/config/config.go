// Package config holds runtime configuration: defaults, loading from file,
// environment and flags, and validation. Defaults match the original
// organizer's config.yml.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/backmassage/m8prep/internal/naming"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Charset is a set of punctuation characters. In config files it may be
// written either as one string ("_-. ") or as a list of single characters.
type Charset string

// Config holds all runtime settings. It is populated by [DefaultConfig],
// overlaid by [Load] (file, environment, flags) and then passed by pointer to
// packages that need it. Keys match the original config.yml, so its
// upper-case keys load unchanged.
type Config struct {
	// Paths.
	SourceDir string `mapstructure:"src_folder"`
	DestDir   string `mapstructure:"dest_folder"`

	// Conversion.
	FFmpegPath     string   `mapstructure:"ffmpeg_path"`  // Default: "ffmpeg" (looked up on PATH).
	FFprobePath    string   `mapstructure:"ffprobe_path"` // Default: "ffprobe".
	FileTypes      []string `mapstructure:"file_types"`   // Lowercase extensions without dot.
	TargetBitDepth int      `mapstructure:"target_bit_depth"`
	Probe          bool     `mapstructure:"probe"` // Inspect sources with ffprobe before converting.
	Jobs           int      `mapstructure:"jobs"`  // Default: 1 (sequential).

	// Behavior.
	SkipExisting bool   `mapstructure:"skip_existing"` // Default: true. Cleared by --force.
	DryRun       bool   `mapstructure:"dry_run"`
	StrictMode   bool   `mapstructure:"strict"` // Disable the tolerant-decode retry.
	ErrorLog     string `mapstructure:"error_log"`

	// Naming.
	StrikeWords        []string            `mapstructure:"strike_words"`
	StrikeMatch        naming.StrikeMatch  `mapstructure:"strike_match"`
	PhraseReplacements map[string]string   `mapstructure:"phrase_replacements"`
	SplitPunctuation   Charset             `mapstructure:"split_punctuation"`
	FillPunctuation    Charset             `mapstructure:"fill_punctuation"`
	JoinSep            string              `mapstructure:"join_sep"`
	WordFormat         naming.WordFormat   `mapstructure:"word_format"`
	DupesEliminatePath bool                `mapstructure:"dupes_eliminate_path"`
	MaxFileLength      int                 `mapstructure:"max_file_length"`
	MaxDirLength       int                 `mapstructure:"max_dir_length"`
	MaxOutputLength    int                 `mapstructure:"max_output_length"`
	Truncate           naming.TruncateMode `mapstructure:"truncate"`
	Placeholder        string              `mapstructure:"placeholder"`
	ASCIIOnly          bool                `mapstructure:"ascii_only"`

	// Display and logging.
	Verbose   bool      `mapstructure:"verbose"`
	ColorMode ColorMode `mapstructure:"color"`
	LogFile   string    `mapstructure:"log_file"` // Optional log file path.
}

// DefaultConfig returns a Config with the defaults of the original
// organizer. Used as the base before [Load] applies overrides.
func DefaultConfig() Config {
	return Config{
		FFmpegPath:         "ffmpeg",
		FFprobePath:        "ffprobe",
		FileTypes:          []string{"wav", "aif", "aiff", "flac", "mp3", "ogg"},
		TargetBitDepth:     16,
		Probe:              false,
		Jobs:               1,
		SkipExisting:       true,
		ErrorLog:           "error.log",
		StrikeMatch:        naming.StrikePrefix,
		PhraseReplacements: map[string]string{},
		SplitPunctuation:   " _-.,()[]{}",
		FillPunctuation:    "'!&#",
		JoinSep:            "-",
		WordFormat:         naming.FormatLower,
		DupesEliminatePath: true,
		MaxFileLength:      32,
		MaxDirLength:       24,
		MaxOutputLength:    127,
		Truncate:           naming.TruncateEnd,
		Placeholder:        "untitled",
		ColorMode:          ColorAuto,
	}
}

// bitDepths are the PCM bit depths the converter knows a codec for.
var bitDepths = map[int]bool{16: true, 24: true, 32: true}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// NamingOptions derives the immutable normalization options.
func (c *Config) NamingOptions() naming.Options {
	phrases := make(map[string]string, len(c.PhraseReplacements))
	for k, v := range c.PhraseReplacements {
		phrases[strings.ToLower(k)] = v
	}
	return naming.Options{
		StrikeWords:      c.StrikeWords,
		StrikeMatch:      c.StrikeMatch,
		Phrases:          phrases,
		SplitPunctuation: string(c.SplitPunctuation),
		FillPunctuation:  string(c.FillPunctuation),
		JoinSep:          c.JoinSep,
		WordFormat:       c.WordFormat,
		MaxFileLength:    c.MaxFileLength,
		MaxDirLength:     c.MaxDirLength,
		MaxOutputLength:  c.MaxOutputLength,
		DedupePath:       c.DupesEliminatePath,
		Truncate:         c.Truncate,
		Placeholder:      c.Placeholder,
		ASCIIOnly:        c.ASCIIOnly,
	}
}

// Validate checks enum and numeric fields, normalizes file types, and
// validates the naming options. requirePaths demands both source and
// destination (false for diagnostics and preview).
func (c *Config) Validate(requirePaths bool) error {
	if !bitDepths[c.TargetBitDepth] {
		return fmt.Errorf("invalid target bit depth %d (use 16, 24 or 32)", c.TargetBitDepth)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1 (got %d)", c.Jobs)
	}
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	types, err := normalizeFileTypes(c.FileTypes)
	if err != nil {
		return err
	}
	c.FileTypes = types

	if err := c.NamingOptions().Validate(); err != nil {
		return fmt.Errorf("naming: %w", err)
	}

	if !requirePaths {
		return nil
	}
	if c.SourceDir == "" || c.DestDir == "" {
		return errors.New("need both src_folder and dest_folder")
	}
	return nil
}

// normalizeFileTypes lowercases extensions and strips leading dots.
// Accepted forms: "wav", ".WAV", "*.wav".
func normalizeFileTypes(raw []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		t = strings.TrimLeft(t, "*.")
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, errors.New("file_types must list at least one extension")
	}
	return out, nil
}

// ValidatePaths ensures the resolved destination directory is not inside (or
// equal to) the resolved source directory. This prevents the pipeline from
// discovering its own output files. Both arguments must be absolute,
// symlink-resolved paths.
func (c *Config) ValidatePaths(sourceAbs, destAbs string) error {
	sep := string(filepath.Separator)
	if destAbs == sourceAbs || strings.HasPrefix(destAbs+sep, sourceAbs+sep) {
		return errors.New("destination directory must not be inside source directory")
	}
	return nil
}
