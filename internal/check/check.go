// Package check provides system diagnostics (the check command) and
// pre-run dependency validation (CheckDeps) for ffmpeg, ffprobe, and the PCM
// encoders.
package check

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/backmassage/m8prep/internal/config"
	"github.com/backmassage/m8prep/internal/ffmpeg"
)

// Sentinel errors returned by CheckDeps when a required tool or encoder is missing.
var (
	ErrFFmpegNotFound   = errors.New("ffmpeg not found")
	ErrFFprobeNotFound  = errors.New("ffprobe not found (required when probe is enabled)")
	ErrPCMEncodeFailed  = errors.New("ffmpeg found but PCM test encode failed")
	ErrUnsupportedDepth = errors.New("no PCM encoder for the target bit depth")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...any)
	Success(string, ...any)
	Warn(string, ...any)
	Error(string, ...any)
}

// Indirection for tests.
var (
	lookPath  = exec.LookPath
	runSilent = func(name string, args ...string) bool {
		cmd := exec.Command(name, args...)
		cmd.Stdout = nil
		cmd.Stderr = nil
		return cmd.Run() == nil
	}
	versionLine = func(name string) (string, error) {
		out, err := exec.Command(name, "-version").Output()
		if err != nil {
			return "", err
		}
		first := strings.TrimSpace(string(out))
		if idx := strings.Index(first, "\n"); idx > 0 {
			first = first[:idx]
		}
		return first, nil
	}
)

// RunCheck runs the interactive diagnostics: prints availability of ffmpeg,
// ffprobe, the PCM encoders, and the configured folders. This is
// informational only; it does not stop on failure.
func RunCheck(cfg *config.Config, log Logger) {
	log.Info("=== System Check ===")

	checkTool(log, "ffmpeg", cfg.FFmpegPath)
	checkTool(log, "ffprobe", cfg.FFprobePath)
	checkPCMEncoders(log, cfg)
	checkFolders(log, cfg)
}

// checkTool verifies a binary resolves and logs its version string.
func checkTool(log Logger, label, bin string) {
	path, err := lookPath(bin)
	if err != nil {
		log.Error("%s not found (%s)", label, bin)
		return
	}
	line, err := versionLine(path)
	if err != nil {
		log.Warn("%s found but -version failed: %v", label, err)
		return
	}
	log.Success("%s: %s", label, line)
}

// checkPCMEncoders runs a minimal encode for every supported bit depth and
// marks the configured target.
func checkPCMEncoders(log Logger, cfg *config.Config) {
	if _, err := lookPath(cfg.FFmpegPath); err != nil {
		return
	}
	log.Info("PCM encoders:")
	for _, depth := range []int{16, 24, 32} {
		codec, _ := ffmpeg.CodecForBitDepth(depth)
		marker := ""
		if depth == cfg.TargetBitDepth {
			marker = " (target)"
		}
		if runSilent(cfg.FFmpegPath, pcmTestArgs(codec)...) {
			log.Success("  %s works%s", codec, marker)
		} else {
			log.Error("  %s test encode failed%s", codec, marker)
		}
	}
}

// checkFolders reports whether the configured source and destination exist.
func checkFolders(log Logger, cfg *config.Config) {
	for _, dir := range []struct{ label, path string }{
		{"Source", cfg.SourceDir},
		{"Destination", cfg.DestDir},
	} {
		if dir.path == "" {
			log.Warn("%s folder not configured", dir.label)
			continue
		}
		fi, err := os.Stat(dir.path)
		switch {
		case err != nil:
			log.Warn("%s folder %s: %v", dir.label, dir.path, err)
		case !fi.IsDir():
			log.Error("%s folder %s is not a directory", dir.label, dir.path)
		default:
			log.Success("%s folder: %s", dir.label, dir.path)
		}
	}
}

// CheckDeps is the pre-run validation: it verifies that ffmpeg resolves and
// can encode the target PCM format, and that ffprobe resolves when probing
// is enabled. Returns a sentinel error (wrapped with detail) on failure.
func CheckDeps(cfg *config.Config) error {
	bin, err := lookPath(cfg.FFmpegPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, cfg.FFmpegPath)
	}
	if cfg.Probe {
		if _, err := lookPath(cfg.FFprobePath); err != nil {
			return fmt.Errorf("%w: %s", ErrFFprobeNotFound, cfg.FFprobePath)
		}
	}

	codec, err := ffmpeg.CodecForBitDepth(cfg.TargetBitDepth)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedDepth, err)
	}
	if !runSilent(bin, pcmTestArgs(codec)...) {
		return fmt.Errorf("%w: %s", ErrPCMEncodeFailed, codec)
	}
	return nil
}

// CheckProber verifies that ffprobe resolves, for commands that only inspect
// sources.
func CheckProber(cfg *config.Config) error {
	if _, err := lookPath(cfg.FFprobePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFprobeNotFound, cfg.FFprobePath)
	}
	return nil
}

// pcmTestArgs returns the ffmpeg arguments for a minimal PCM test encode.
// Shared by checkPCMEncoders and CheckDeps to avoid duplicating the argument list.
func pcmTestArgs(codec string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=1000:duration=0.1",
		"-acodec", codec,
		"-f", "wav", "-",
	}
}
