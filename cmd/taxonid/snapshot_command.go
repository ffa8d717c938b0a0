package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"taxonid/internal/logging"
	"taxonid/internal/store"
)

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	var (
		projectKey int
		releaseKey int
		attempt    int
		title      string
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Publish the project as a release using its stable id map",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, st, err := ctx.session()
			if err != nil {
				return err
			}
			defer st.Close()

			runCtx := cmd.Context()
			project, err := st.GetDataset(runCtx, projectKey)
			if err != nil {
				return err
			}
			if project == nil {
				return fmt.Errorf("project %d not found", projectKey)
			}
			if attempt <= 0 {
				next, err := st.NextAttempt(runCtx, projectKey)
				if err != nil {
					return err
				}
				attempt = next
			}
			if title == "" {
				title = fmt.Sprintf("%s (release %d)", project.Title, attempt)
			}

			copied, err := st.SnapshotRelease(runCtx, projectKey, store.Dataset{
				Key:     releaseKey,
				Title:   title,
				Attempt: &attempt,
				Created: time.Now(),
			})
			if err != nil {
				return err
			}
			logger.Info("release published", logging.Args(
				logging.Int(logging.FieldProjectKey, projectKey),
				logging.Int(logging.FieldDatasetKey, releaseKey),
				logging.Int(logging.FieldAttempt, attempt),
				logging.Int("usages", copied),
			)...)
			fmt.Fprintf(cmd.OutOrStdout(), "Released project %d as dataset %d (attempt %d, %d usages)\n",
				projectKey, releaseKey, attempt, copied)
			return nil
		},
	}

	cmd.Flags().IntVarP(&projectKey, "project", "p", 0, "Project dataset key")
	cmd.Flags().IntVarP(&releaseKey, "release", "r", 0, "Dataset key of the new release")
	cmd.Flags().IntVarP(&attempt, "attempt", "a", 0, "Release attempt (default: one after the latest release)")
	cmd.Flags().StringVar(&title, "title", "", "Title of the release dataset")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("release")
	return cmd
}
