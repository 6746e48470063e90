package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"splice/internal/api"
	"splice/internal/preflight"
)

type statusOutput struct {
	Daemon    *api.StatusResponse `json:"daemon,omitempty"`
	DaemonErr string              `json:"daemonError,omitempty"`
	Checks    []preflight.Result  `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and local readiness checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result := statusOutput{Checks: preflight.RunAll(cfg)}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if status, err := client.Status(cmd.Context()); err != nil {
				result.DaemonErr = wrapDialError(err, ctx.serverAddress()).Error()
			} else {
				result.Daemon = &status
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			printStatus(cmd, result)
			return nil
		},
	}
}

func printStatus(cmd *cobra.Command, result statusOutput) {
	out := cmd.OutOrStdout()
	if result.Daemon == nil {
		fmt.Fprintf(out, "Daemon: not reachable (%s)\n", result.DaemonErr)
	} else {
		d := result.Daemon
		fmt.Fprintf(out, "Daemon: running (pid %d, up %s)\n", d.PID, time.Since(d.StartedAt).Round(time.Second))
		fmt.Fprintf(out, "Data directory: %s\n", d.DataDir)
		fmt.Fprintf(out, "Completion mode: %s\n", d.Completion)
		fmt.Fprintf(out, "Pending dead letters: %d\n", d.DeadLetters)

		if len(d.Jobs) > 0 {
			ids := make([]string, 0, len(d.Jobs))
			for id := range d.Jobs {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				job := d.Jobs[id]
				rows = append(rows, []string{id, string(job.Status), firstNonEmpty(job.LatestFile, "-")})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Project", "Render", "Latest output"}, rows, nil))
		}
	}

	rows := make([][]string, 0, len(result.Checks))
	for _, c := range result.Checks {
		rows = append(rows, []string{c.Name, yesNo(c.Passed), c.Detail})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Check", "OK", "Detail"}, rows, nil))
}
