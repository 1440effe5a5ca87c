package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/theapemachine/qturing"
	"github.com/theapemachine/qturing/store"
)

func newReportCommand() *cobra.Command {
	var (
		accept []string
		dbPath string
		runID  string
	)

	cmd := &cobra.Command{
		Use:   "report [log_amplitudes.json]",
		Short: "Summarize an amplitude log",
		Long: `Report reads an amplitude log written by run, either from its JSON file or
from a run stored in a SQLite database, and prints per step budget the number
of live configurations, their total and accepting probability and the
dominant configuration.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := loadReportLog(cmd, args, dbPath, runID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p := newPrinter(out)
			p.title(fmt.Sprintf("Amplitude log: %d snapshots", len(log)))

			summaries := qturing.Analyze(log, accept...)
			if len(summaries) == 0 {
				p.failure("Every snapshot is empty: no configuration survived any budget.")
				return nil
			}

			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf(
				"%5s | %7s | %8s | %8s | %s", "Step", "Configs", "Total", "Accept", "Dominant",
			)))

			for _, summary := range summaries {
				fmt.Fprintf(
					out,
					"%5d | %7d | %8.4f | %8.4f | %s (%.4f)\n",
					summary.Step,
					summary.Configurations,
					summary.TotalProbability,
					summary.AcceptProbability,
					summary.Dominant.Configuration(),
					summary.Dominant.Probability,
				)
			}

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&accept, "accept", []string{"qf"}, "accept states")
	cmd.Flags().StringVar(&dbPath, "db", "", "read the log of a stored run from this SQLite database")
	cmd.Flags().StringVar(&runID, "run", "", "stored run id (defaults to the latest run)")

	return cmd
}

func loadReportLog(cmd *cobra.Command, args []string, dbPath, runID string) (qturing.Log, error) {
	if dbPath == "" {
		path := "log_amplitudes.json"
		if len(args) == 1 {
			path = args[0]
		}

		return qturing.LoadLog(path)
	}

	ctx := cmd.Context()

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}

	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}

	if runID == "" {
		runs, err := s.ListRuns(ctx)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, store.ErrRunNotFound
		}

		return s.LoadLog(ctx, runs[0].ID)
	}

	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}

	return s.LoadLog(ctx, id)
}
