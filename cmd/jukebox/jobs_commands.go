package main

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"jukebox/internal/jobstore"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage ingestion jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))
	jobsCmd.AddCommand(newJobsResetCommand(ctx))
	jobsCmd.AddCommand(newJobsAddCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ingestion jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				var statuses []jobstore.Status
				for _, raw := range statusFilters {
					status, ok := jobstore.ParseStatus(raw)
					if !ok {
						return fmt.Errorf("unknown status %q", raw)
					}
					statuses = append(statuses, status)
				}

				jobs, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
					return nil
				}

				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						job.Reference,
						string(job.Status),
						fmt.Sprintf("%d", job.RetryCount),
						formatTime(job.UpdatedAt),
						truncate(job.ErrorMessage, 60),
					})
				}
				out := renderTable(
					[]string{"Reference", "Status", "Retries", "Updated", "Error"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by status (pending, processing, completed, failed)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <reference>",
		Short: "Show one ingestion job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				job, err := store.GetByReference(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("no job for reference %q", args[0])
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Reference: %s\n", job.Reference)
				fmt.Fprintf(out, "Status:    %s\n", job.Status)
				fmt.Fprintf(out, "Retries:   %d of %d\n", job.RetryCount, jobstore.MaxRetries)
				fmt.Fprintf(out, "Created:   %s\n", formatTime(job.CreatedAt))
				fmt.Fprintf(out, "Updated:   %s\n", formatTime(job.UpdatedAt))
				if job.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:     %s\n", job.ErrorMessage)
				}
				return nil
			})
		},
	}
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [reference...]",
		Short: "Requeue failed jobs with a fresh retry budget",
		Long:  "Moves failed jobs back to pending and resets their retry count. With no arguments, every failed job is requeued.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				moved, err := store.RetryFailed(cmd.Context(), args...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d failed job(s)\n", moved)
				return nil
			})
		},
	}
}

func newJobsResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Return stranded processing jobs to pending",
		Long:  "Returns every processing job to pending. Use after a crash left jobs claimed by a worker that no longer exists. Do not run while the daemon is ingesting.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				moved, err := store.ResetProcessing(cmd.Context(), "manually reset by operator")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d processing job(s) to pending\n", moved)
				return nil
			})
		},
	}
}

func newJobsAddCommand(ctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "add <reference>",
		Short: "Register a track for ingestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				if err := store.SeedTrack(cmd.Context(), title, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Track %s registered; the worker will pick it up on its next poll\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Track title (defaults to the reference)")
	return cmd
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	// Back up to a rune boundary so a multibyte character is never split.
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
