package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"splice/internal/api"
	"splice/internal/render"
)

func newVideoCommand(ctx *commandContext) *cobra.Command {
	var download string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "video <project-id>",
		Short: "Show render status or download the latest render",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := args[0]
			return ctx.withClient(func(client *api.Client) error {
				if download != "" {
					return downloadVideo(cmd, client, projectID, download, overwrite)
				}
				job, err := client.Video(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, job)
				}
				printJob(cmd, projectID, job)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&download, "download", "d", "", "Save the latest render to this path")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing download target")
	return cmd
}

func printJob(cmd *cobra.Command, projectID string, job render.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project: %s\n", projectID)
	fmt.Fprintf(out, "Status:  %s\n", job.Status)
	latest := job.LatestFile
	if latest == "" {
		latest = "(none)"
	}
	fmt.Fprintf(out, "Latest:  %s\n", latest)
	if older := len(job.PreviousFiles) - 1; older > 0 {
		fmt.Fprintf(out, "Earlier renders: %d\n", older)
	}
}

func downloadVideo(cmd *cobra.Command, client *api.Client, projectID, target string, overwrite bool) error {
	if fileExists(target) && !overwrite {
		return fmt.Errorf("%s already exists (use --overwrite to replace it)", target)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.part")
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := client.DownloadVideo(cmd.Context(), projectID, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("finalize download: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d bytes to %s\n", n, target)
	return nil
}
