package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jukebox/internal/jobstore"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize job counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Pending:    %d\n", health.Pending)
				fmt.Fprintf(out, "Processing: %d\n", health.Processing)
				fmt.Fprintf(out, "Completed:  %d\n", health.Completed)
				fmt.Fprintf(out, "Failed:     %d\n", health.Failed)
				fmt.Fprintf(out, "Total:      %d\n", health.Total)
				return nil
			})
		},
	}
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run job database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database path:   %s\n", health.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(health.DatabaseExists))
				fmt.Fprintf(out, "Readable:        %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "Jobs table:      %s\n", yesNo(health.TableExists))
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "Total jobs:      %d\n", health.TotalJobs)
				if health.Error != "" {
					fmt.Fprintf(out, "Last error:      %s\n", health.Error)
				}
				if err != nil {
					return err
				}
				return nil
			})
		},
	}
}
