package config

// This file registers the command-line flags that overlay the config file.
// Flags are grouped into behavior, conversion, and display. Negated flags
// (--force, --no-color) are applied after unmarshalling so file and
// environment values hold unless the flag is set.

import (
	"github.com/spf13/pflag"
)

// Version is shown by --version; override at build time with
// -ldflags "-X github.com/backmassage/m8prep/internal/config.Version=...".
var Version = "0.1.0-dev"

// flagKeys maps flag names to the config keys they override.
var flagKeys = map[string]string{
	"dry-run": "dry_run",
	"strict":  "strict",
	"jobs":    "jobs",
	"probe":   "probe",
	"ffmpeg":  "ffmpeg_path",
	"ffprobe": "ffprobe_path",
	"verbose": "verbose",
	"color":   "color",
	"log":     "log_file",
}

// RegisterFlags defines the run flags on fs. Defaults are taken from
// [DefaultConfig] so --help shows them.
func RegisterFlags(fs *pflag.FlagSet) {
	def := DefaultConfig()
	fs.StringP("config", "c", "", "Config file (default: ./config.yml or the user config dir)")
	fs.String("env-file", "", "Load environment overrides from this file (default: ./.env)")

	// Behavior.
	fs.BoolP("dry-run", "d", false, "Print the planned mapping; do not convert")
	fs.BoolP("force", "f", false, "Convert even when the destination already exists")
	fs.Bool("strict", false, "Disable the tolerant-decode retry")
	fs.IntP("jobs", "j", def.Jobs, "Number of concurrent conversions")

	// Conversion.
	fs.Bool("probe", def.Probe, "Inspect sources with ffprobe before converting")
	fs.String("ffmpeg", def.FFmpegPath, "ffmpeg binary")
	fs.String("ffprobe", def.FFprobePath, "ffprobe binary")

	// Display.
	fs.BoolP("verbose", "v", false, "Verbose output")
	fs.String("color", string(def.ColorMode), "Color output: auto | always | never")
	fs.Bool("no-color", false, "Disable colored logs")
	fs.StringP("log", "l", "", "Append logs to file")
}

// applyNegatedFlags copies negated flag values into cfg (e.g. force -> SkipExisting=false).
func applyNegatedFlags(cfg *Config, fs *pflag.FlagSet) {
	if fs == nil {
		return
	}
	if set(fs, "force") {
		cfg.SkipExisting = false
	}
	if set(fs, "no-color") {
		cfg.ColorMode = ColorNever
	}
}

// set reports whether a boolean flag was given on the command line as true.
func set(fs *pflag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	return f != nil && f.Changed && f.Value.String() == "true"
}
