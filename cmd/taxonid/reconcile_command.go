package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"taxonid/internal/idcodec"
	"taxonid/internal/idprovider"
	"taxonid/internal/report"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var (
		projectKey int
		attempt    int
		releaseKey int
		restart    bool
		since      string
		start      uint32
		dedupe     bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Assign stable identifiers to the usages of a project",
		Long: "Matches the current usages of a project against every identifier published by its\n" +
			"earlier releases, writes the usage to stable id map and the audit reports of the attempt.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, st, err := ctx.session()
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
			if project.IsRelease() {
				return fmt.Errorf("dataset %d is a release of project %d, not a project", projectKey, *project.SourceKey)
			}
			if attempt <= 0 {
				next, err := st.NextAttempt(runCtx, projectKey)
				if err != nil {
					return err
				}
				attempt = next
			}

			runCfg := *cfg
			flags := cmd.Flags()
			if flags.Changed("restart") {
				runCfg.Release.Restart = restart
			}
			if flags.Changed("since") {
				runCfg.Release.Since = since
			}
			if flags.Changed("start") {
				runCfg.Release.Start = start
			}
			if flags.Changed("nidx-dedupe") {
				runCfg.Release.NidxDeduplication = dedupe
			}
			if err := runCfg.Validate(); err != nil {
				return err
			}

			opts, err := idprovider.OptionsFromConfig(&runCfg, projectKey, attempt)
			if err != nil {
				return err
			}
			opts.ReleaseKey = releaseKey

			reportDir := runCfg.ReportDir(projectKey, attempt)
			rep := report.New(reportDir, projectKey, attempt, st, logger)
			provider, err := idprovider.New(opts, storeBackend{st}, rep, logger)
			if err != nil {
				return err
			}
			out, err := provider.Run(runCtx)
			if err != nil {
				if errors.Is(err, idprovider.ErrRunInProgress) {
					return fmt.Errorf("%w; wait for the other run to finish", err)
				}
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, renderOutcome(out, runCfg.Release.Restart))
			fmt.Fprintf(w, "Reports written to %s\n", reportDir)
			return nil
		},
	}

	cmd.Flags().IntVarP(&projectKey, "project", "p", 0, "Project dataset key")
	cmd.Flags().IntVarP(&attempt, "attempt", "a", 0, "Release attempt (default: one after the latest release)")
	cmd.Flags().IntVar(&releaseKey, "release-key", 0, "Dataset key the release will be published as, used in reports")
	cmd.Flags().BoolVar(&restart, "restart", false, "Ignore all previously released identifiers")
	cmd.Flags().StringVar(&since, "since", "", "Ignore releases created before this date (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().Uint32Var(&start, "start", 0, "Lowest value of the id sequence")
	cmd.Flags().BoolVar(&dedupe, "nidx-dedupe", false, "Collapse duplicate names index entries before matching")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func renderOutcome(out idprovider.Outcome, restart bool) string {
	previous := "none"
	if out.PreviousAttempt > 0 {
		previous = strconv.Itoa(out.PreviousAttempt)
	}
	return renderKeyValues([][2]string{
		{"Run", out.RunID},
		{"Project", strconv.Itoa(out.ProjectKey)},
		{"Attempt", strconv.Itoa(out.Attempt)},
		{"Previous attempt", previous},
		{"Restart", yesNo(restart)},
		{"Reused", strconv.Itoa(out.Reused)},
		{"Resurrected", strconv.Itoa(len(out.Resurrected))},
		{"Created", strconv.Itoa(len(out.Created))},
		{"Deleted", strconv.Itoa(len(out.Deleted))},
		{"No match", strconv.Itoa(out.NoMatch)},
		{"Mapped usages", strconv.Itoa(out.Mapped)},
		{"Last id", idcodec.Encode(out.LastID)},
	})
}
