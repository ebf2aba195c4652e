package cli

import (
	"fmt"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/backmassage/m8prep/internal/check"
	"github.com/backmassage/m8prep/internal/config"
	"github.com/backmassage/m8prep/internal/logging"
	"github.com/backmassage/m8prep/internal/naming"
	"github.com/backmassage/m8prep/internal/pipeline"
	"github.com/backmassage/m8prep/internal/probe"
	"github.com/backmassage/m8prep/internal/term"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check ffmpeg, ffprobe, PCM encoders, and the configured folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			if err := cfg.Validate(false); err != nil {
				return err
			}
			log, err := logging.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			file, _ := cmd.Flags().GetString("config")
			envFile, _ := cmd.Flags().GetString("env-file")
			if used := config.UsedFile(config.LoadOptions{ConfigFile: file, EnvFile: envFile}); used != "" {
				log.Info("Config file: %s", used)
			} else {
				log.Info("Config file: none (defaults and environment only)")
			}
			check.RunCheck(cfg, log)
			return nil
		},
	}
}

func newPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview PATH...",
		Short: "Print the normalized destination for sample paths",
		Long: `preview maps each PATH (relative to the source folder, existing or not)
to its destination with the configured naming rules. Paths are resolved in
order, so later duplicates show the collision suffix they would receive.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			if err := cfg.Validate(false); err != nil {
				return err
			}
			norm, err := naming.NewNormalizer(cfg.NamingOptions())
			if err != nil {
				return err
			}
			term.Configure(cfg.ColorMode)

			resolver := naming.NewCollisionResolver(cfg.JoinSep)
			out := cmd.OutOrStdout()
			for _, rel := range args {
				dest, renamed := resolver.Resolve(rel, norm.Flatten(rel))
				note := ""
				if renamed {
					note = term.Warn.Render(" (collision)")
				}
				fmt.Fprintf(out, "%s -> %s%s\n", term.Muted.Render(rel), term.Success.Render(dest), note)
			}
			return nil
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [SRC]",
		Short: "Probe every source sample and flag unusually long or large ones",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}
			if err := cfg.Validate(false); err != nil {
				return err
			}
			if cfg.SourceDir == "" {
				return &pipeline.SetupError{Op: "source", Err: fmt.Errorf("%w: src_folder not configured", pipeline.ErrSourceUnreadable)}
			}
			if err := check.CheckProber(cfg); err != nil {
				return &pipeline.SetupError{Op: "dependencies", Err: err}
			}
			log, err := logging.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			deps := pipeline.Deps{
				Source: osfs.New(cfg.SourceDir),
				Prober: &probe.Prober{Bin: cfg.FFprobePath},
				Log:    log,
			}
			_, err = pipeline.Analyze(cmd.Context(), cfg, deps, cmd.OutOrStdout())
			return err
		},
	}
}
