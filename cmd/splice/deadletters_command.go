package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"splice/internal/api"
)

func newDeadLettersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "deadletters",
		Aliases: []string{"dl"},
		Short:   "List files the daemon could not dispatch or record",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				letters, err := client.DeadLetters(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.DeadLettersResponse{DeadLetters: letters})
				}
				out := cmd.OutOrStdout()
				if len(letters) == 0 {
					fmt.Fprintln(out, "Dead-letter queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(letters))
				for _, dl := range letters {
					rows = append(rows, []string{
						dl.Queue,
						dl.Status,
						strconv.Itoa(dl.Attempts),
						firstNonEmpty(dl.ProjectID, "-"),
						dl.Path,
						dl.Reason,
						dl.UpdatedAt.Local().Format(time.DateTime),
					})
				}
				headers := []string{"Queue", "Status", "Attempts", "Project", "Path", "Reason", "Updated"}
				fmt.Fprintln(out, renderTable(out, headers, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
				return nil
			})
		},
	}
}
