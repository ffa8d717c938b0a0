package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

type runJSON struct {
	ID          string    `json:"id"`
	ProjectKey  int       `json:"project_key"`
	Attempt     int       `json:"attempt"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Created     int       `json:"created"`
	Deleted     int       `json:"deleted"`
	Resurrected int       `json:"resurrected"`
	Reused      int       `json:"reused"`
	NoMatch     int       `json:"no_match"`
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var (
		projectKey int
		limit      int
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List finished reconciliation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, st, err := ctx.session()
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), projectKey, limit)
			if err != nil {
				return err
			}

			if asJSON {
				items := make([]runJSON, 0, len(runs))
				for _, r := range runs {
					items = append(items, runJSON(r))
				}
				return writeJSON(cmd, items)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.ID,
					strconv.Itoa(r.ProjectKey),
					strconv.Itoa(r.Attempt),
					r.FinishedAt.Local().Format("2006-01-02 15:04:05"),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
					strconv.Itoa(r.Reused),
					strconv.Itoa(r.Resurrected),
					strconv.Itoa(r.Created),
					strconv.Itoa(r.Deleted),
					strconv.Itoa(r.NoMatch),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Project", "Attempt", "Finished", "Took", "Reused", "Resurrected", "Created", "Deleted", "No match"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&projectKey, "project", "p", 0, "Only list runs of this project")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 lists all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
