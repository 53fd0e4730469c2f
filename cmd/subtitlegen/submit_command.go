package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"subtitlegen/internal/clockid"
	"subtitlegen/internal/langtag"
	"subtitlegen/internal/scheduler"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var targetFlags []string
	var sourceLanguage string

	cmd := &cobra.Command{
		Use:   "submit <source-video>",
		Short: "Queue a video for subtitle generation",
		Long: "Queue a video for subtitle generation. Each --target is a BCP-47 language\n" +
			"code, optionally suffixed with :sdh for the accessibility variant, e.g.\n" +
			"--target es-419 --target fr:sdh.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourcePath := args[0]
			if _, err := os.Stat(sourcePath); err != nil {
				return fmt.Errorf("inspect source: %w", err)
			}

			targets, err := parseTargetFlags(targetFlags)
			if err != nil {
				return err
			}

			cfg, store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			sched := scheduler.New(cfg, store, scheduler.Options{IDGen: clockid.NewGenerator()})
			job, err := sched.Submit(cmd.Context(), sourcePath, targets, sourceLanguage)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Queued job %s (%s)\n", job.ID, job.SourcePath)
			fmt.Fprintln(out, "Run `subtitlegen daemon` to dispatch it, or `subtitlegen queue status "+job.ID+"` to check its progress.")
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&targetFlags, "target", nil, "Target language, optionally suffixed with :sdh (repeatable)")
	cmd.Flags().StringVar(&sourceLanguage, "source-language", "", "Source audio language (BCP-47); omit if unknown")
	return cmd
}

func parseTargetFlags(flags []string) ([]langtag.Target, error) {
	if len(flags) == 0 {
		return nil, fmt.Errorf("at least one --target is required")
	}
	targets := make([]langtag.Target, 0, len(flags))
	for _, raw := range flags {
		language, modeRaw, _ := strings.Cut(raw, ":")
		mode, err := langtag.ParseMode(modeRaw)
		if err != nil {
			return nil, err
		}
		targets = append(targets, langtag.Target{Language: language, Mode: mode})
	}
	return targets, nil
}
