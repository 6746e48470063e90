package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"splice/internal/api"
	"splice/internal/command"
	"splice/internal/fileutil"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Create, inspect and edit projects",
	}
	projectCmd.AddCommand(newProjectCreateCommand(ctx))
	projectCmd.AddCommand(newProjectGetCommand(ctx))
	projectCmd.AddCommand(newProjectEditCommand(ctx))
	projectCmd.AddCommand(newProjectVersionsCommand(ctx))
	projectCmd.AddCommand(newProjectEventsCommand(ctx))
	return projectCmd
}

func newProjectCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a project from the template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.CreateProject(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (version %d)\n", resp.ProjectID, resp.VersionID)
				return nil
			})
		},
	}
}

func newProjectGetCommand(ctx *commandContext) *cobra.Command {
	var version string
	var output string

	cmd := &cobra.Command{
		Use:   "get <project-id>",
		Short: "Print a project document",
		Long:  "Print a project document. Without --version the latest version is shown, or the original when none exists.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				doc, err := client.GetProject(cmd.Context(), args[0], version)
				if err != nil {
					return err
				}
				if output != "" {
					if err := fileutil.WriteFileAtomic(output, []byte(doc), 0o644); err != nil {
						return fmt.Errorf("write %s: %w", output, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
					return nil
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.ProjectResponse{Project: doc})
				}
				fmt.Fprint(cmd.OutOrStdout(), doc)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&version, "version", "", `Version id or "original"`)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the document to a file")
	return cmd
}

func newProjectEditCommand(ctx *commandContext) *cobra.Command {
	var version string
	var cmdSpec command.Command

	cmd := &cobra.Command{
		Use:   "edit <project-id>",
		Short: "Apply a replace or translate command",
		Example: `  splice project edit demo --action replace --type text --time 12 --value "Hello"
  splice project edit demo --action replace --type video --time 3 --value 42
  splice project edit demo --action translate --type text --time 12 --value de`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.RunCommand(cmd.Context(), args[0], version, cmdSpec)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if !resp.Success {
					fmt.Fprintf(out, "No slot matched %s; no version created\n", cmdSpec)
					return nil
				}
				fmt.Fprintf(out, "Applied %s; created version %d\n", cmdSpec, resp.VersionID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&version, "version", "", `Base version id or "original" (defaults to latest)`)
	cmd.Flags().StringVar((*string)(&cmdSpec.Action), "action", string(command.ActionReplace), "replace or translate")
	cmd.Flags().StringVar((*string)(&cmdSpec.Type), "type", string(command.TypeText), "text, video, image or audio")
	cmd.Flags().Float64Var(&cmdSpec.Time, "time", 0, "Timeline position in seconds")
	cmd.Flags().StringVar(&cmdSpec.Value, "value", "", "Replacement text, asset id, or target language")
	_ = cmd.MarkFlagRequired("time")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func newProjectVersionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <project-id>",
		Short: "List stored versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Versions(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Versions) == 0 {
					fmt.Fprintf(out, "%s has no versions; only the original exists\n", resp.ProjectID)
					return nil
				}
				rows := make([][]string, 0, len(resp.Versions))
				for _, v := range resp.Versions {
					rows = append(rows, []string{strconv.FormatInt(v.ID, 10), v.Label, v.CreatedAt.Local().Format(time.DateTime)})
				}
				fmt.Fprintln(out, renderTable(out, []string{"Version", "Label", "Created"}, rows, []columnAlignment{alignRight}))
				return nil
			})
		},
	}
}

func newProjectEventsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events <project-id>",
		Short: "Show the render journal of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				events, err := client.Events(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.EventsResponse{ProjectID: args[0], Events: events})
				}
				out := cmd.OutOrStdout()
				if len(events) == 0 {
					fmt.Fprintln(out, "No events recorded")
					return nil
				}
				rows := make([][]string, 0, len(events))
				for _, ev := range events {
					version := ""
					if ev.VersionID != 0 {
						version = strconv.FormatInt(ev.VersionID, 10)
					}
					rows = append(rows, []string{
						ev.CreatedAt.Local().Format(time.DateTime),
						string(ev.Kind),
						version,
						firstNonEmpty(ev.Detail, ev.Path),
					})
				}
				fmt.Fprintln(out, renderTable(out, []string{"Time", "Event", "Version", "Detail"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of events")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
