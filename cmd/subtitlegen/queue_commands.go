package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"subtitlegen/internal/jobstore"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage queued jobs",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueAbandonCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jobs that have not yet reached a terminal stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			jobs, err := store.ListActive(cmd.Context())
			if err != nil {
				return fmt.Errorf("list active jobs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No active jobs")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					job.ID,
					job.SourcePath,
					string(job.Stage),
					fmt.Sprintf("%d", len(job.Targets)),
					job.CreatedAt.Format(time.RFC3339),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "SOURCE", "STAGE", "TARGETS", "CREATED"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the full state of one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			job, recovered, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load job: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job:       %s\n", job.ID)
			fmt.Fprintf(out, "Source:    %s\n", job.SourcePath)
			fmt.Fprintf(out, "Stage:     %s\n", job.Stage)
			fmt.Fprintf(out, "Created:   %s\n", job.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "Updated:   %s\n", job.UpdatedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "Recovered: %s\n", yesNo(recovered))
			if job.LastError != nil {
				fmt.Fprintf(out, "Last error: [%s] %s\n", job.LastError.Kind, job.LastError.Message)
			}

			rows := make([][]string, 0, len(job.Targets))
			for _, target := range job.Targets {
				key := target.Key()
				output := job.Outputs[key]
				accepted := job.AcceptedTargets[key]
				rows = append(rows, []string{
					key,
					yesNo(accepted),
					output.SRTPath,
					output.VTTPath,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"TARGET", "ACCEPTED", "SRT", "VTT"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newQueueAbandonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "abandon <job-id>",
		Short: "Mark a job Abandoned directly in the store",
		Long: "Mark a job Abandoned directly in the store. A daemon actively\n" +
			"running this job will keep working its in-flight stage step and only\n" +
			"notice the terminal stage on its next load; this does not send a\n" +
			"live cancellation signal to another process.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			return abandonJob(cmd.Context(), store, args[0])
		},
	}
}

func abandonJob(ctx context.Context, store *jobstore.Store, jobID string) error {
	job, _, err := store.Load(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job.Stage.Terminal() {
		return fmt.Errorf("job %s is already %s", job.ID, job.Stage)
	}
	job.Stage = jobstore.StageAbandoned
	job.CleanupPending = true
	job.Touch(time.Now().UTC())
	return store.Save(ctx, job)
}
