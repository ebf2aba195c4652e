// Package cli contains the cobra command tree for m8prep.
//
// The root command runs the incremental scan; subcommands run diagnostics
// (check), print the normalized destination for sample paths (preview), and
// report on a source library without converting it (analyze).
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/backmassage/m8prep/internal/check"
	"github.com/backmassage/m8prep/internal/config"
	"github.com/backmassage/m8prep/internal/display"
	"github.com/backmassage/m8prep/internal/ffmpeg"
	"github.com/backmassage/m8prep/internal/logging"
	"github.com/backmassage/m8prep/internal/pipeline"
	"github.com/backmassage/m8prep/internal/probe"
)

// ErrInterrupted is returned when a run stops early on SIGINT/SIGTERM.
var ErrInterrupted = errors.New("interrupted")

// NewRootCmd builds the command tree. Each call returns a fresh tree so
// tests can execute it repeatedly.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "m8prep [SRC [DEST]]",
		Short: "Flatten and convert a sample library for the M8 tracker",
		Long: `m8prep walks a folder of audio samples, shortens every folder and file
name to fit the M8's limits, flattens deep trees, and converts each sample
to WAV at the configured bit depth.

Runs are incremental: destinations that already exist are skipped unless
--force is given. SRC and DEST override src_folder and dest_folder from the
config file.`,
		Args:          cobra.MaximumNArgs(2),
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runConvert,
	}
	config.RegisterFlags(root.PersistentFlags())
	root.AddCommand(newCheckCmd(), newPreviewCmd(), newAnalyzeCmd())
	return root
}

// loadConfig reads config file, environment, and flags, then applies the
// positional SRC/DEST overrides.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	fs := cmd.Flags()
	file, _ := fs.GetString("config")
	envFile, _ := fs.GetString("env-file")

	cfg, err := config.Load(config.LoadOptions{ConfigFile: file, EnvFile: envFile, Flags: fs})
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.SourceDir = config.NormalizeDirArg(args[0])
	}
	if len(args) > 1 {
		cfg.DestDir = config.NormalizeDirArg(args[1])
	}
	return cfg, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(true); err != nil {
		return &pipeline.SetupError{Op: "config", Err: err}
	}

	log, err := logging.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	display.PrintBanner(cmd.OutOrStdout(), config.Version)

	srcAbs, destAbs, err := resolvePaths(cfg)
	if err != nil {
		return err
	}

	// Fail fast if ffmpeg (or ffprobe when probing) is unusable.
	if !cfg.DryRun {
		if err := check.CheckDeps(cfg); err != nil {
			return &pipeline.SetupError{Op: "dependencies", Err: err}
		}
	}

	deps := pipeline.Deps{
		Source: osfs.New(srcAbs),
		Dest:   osfs.New(destAbs),
		Converter: &ffmpeg.Converter{
			Bin:     cfg.FFmpegPath,
			Strict:  cfg.StrictMode,
			Verbose: cfg.Verbose,
			Log:     log,
		},
		Log: log,
	}
	if cfg.Probe {
		deps.Prober = &probe.Prober{Bin: cfg.FFprobePath}
	}

	res, err := pipeline.Run(cmd.Context(), cfg, deps)
	if err != nil {
		return err
	}
	if res.Interrupted {
		return ErrInterrupted
	}
	return nil
}

// resolvePaths returns absolute, symlink-resolved source and destination
// directories and rejects a destination inside the source. The destination
// may not exist yet.
func resolvePaths(cfg *config.Config) (string, string, error) {
	srcAbs, err := filepath.Abs(cfg.SourceDir)
	if err == nil {
		srcAbs, err = filepath.EvalSymlinks(srcAbs)
	}
	if err != nil {
		return "", "", &pipeline.SetupError{
			Op: "source", Path: cfg.SourceDir,
			Err: fmt.Errorf("%w: %v", pipeline.ErrSourceUnreadable, err),
		}
	}

	destAbs, err := filepath.Abs(cfg.DestDir)
	if err == nil {
		destAbs, err = resolveMissing(destAbs)
	}
	if err != nil {
		return "", "", &pipeline.SetupError{
			Op: "destination", Path: cfg.DestDir,
			Err: fmt.Errorf("%w: %v", pipeline.ErrDestUnwritable, err),
		}
	}

	if err := cfg.ValidatePaths(srcAbs, destAbs); err != nil {
		return "", "", &pipeline.SetupError{Op: "destination", Path: cfg.DestDir, Err: err}
	}
	return srcAbs, destAbs, nil
}

// resolveMissing resolves symlinks in the longest existing prefix of path
// and appends the components that do not exist yet.
func resolveMissing(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}
	dir, err := resolveMissing(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(path)), nil
}
