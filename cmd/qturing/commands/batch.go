package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"github.com/theapemachine/qturing"
	"github.com/theapemachine/qturing/store"
)

func newBatchCommand() *cobra.Command {
	var (
		machinePath string
		workers     int
		steps       int
		seed        uint64
		timeout     time.Duration
		dbPath      string
	)

	cmd := &cobra.Command{
		Use:   "batch [input...]",
		Short: "Search several inputs in parallel",
		Long: `Batch runs the adaptive search on every input, each on its own machine,
with a fixed number of workers. Results are printed in input order and can
be stored in a SQLite database.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadMachine(machinePath)
			if err != nil {
				return err
			}

			config := qturing.NewConfig()
			config.StepLimit = steps

			metrics := qturing.NewMetrics()

			batch := qturing.NewBatch(
				def,
				qturing.WithWorkers(workers),
				qturing.WithBatchSeed(seed),
				qturing.WithJobTimeout(timeout),
				qturing.WithBatchSearchOptions(
					qturing.WithSearchConfig(config),
					qturing.WithMetrics(metrics),
				),
			)

			results, runErr := batch.Run(cmd.Context(), args)

			out := cmd.OutOrStdout()
			p := newPrinter(out)
			p.title(fmt.Sprintf("Batch of %d inputs", len(args)))

			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf(
				"%-12s | %-5s | %5s | %8s | %s", "Input", "Found", "Steps", "Attempts", "Final",
			)))

			for _, result := range results {
				if result.Result == nil {
					fmt.Fprintf(out, "%-12s | %s\n", result.Job.Input, failureStyle.Render(result.Err.Error()))
					continue
				}

				final := result.Result.Final.String()
				if result.Result.FinalErr != nil {
					final = result.Result.FinalErr.Error()
				}

				fmt.Fprintf(
					out,
					"%-12s | %-5t | %5d | %8d | %s\n",
					result.Job.Input,
					result.Result.Found,
					result.Result.Steps,
					len(result.Result.Attempts),
					final,
				)
			}

			if verbose {
				spew.Fdump(cmd.ErrOrStderr(), metrics.ExportMetrics())
			}

			if dbPath != "" {
				if err := saveBatch(context.WithoutCancel(cmd.Context()), dbPath, results); err != nil {
					return err
				}
				p.success(fmt.Sprintf("Stored %d runs in %s", len(results), dbPath))
			}

			return runErr
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&machinePath, "machine", "", "machine definition file (defaults to the bundled reference machine)")
	flags.IntVar(&workers, "workers", 4, "inputs searched at once")
	flags.IntVar(&steps, "steps", 20, "step limit of every search")
	flags.Uint64Var(&seed, "seed", 0, "base random seed, job i uses seed+i (0 seeds from the clock)")
	flags.DurationVar(&timeout, "timeout", 0, "time limit of a single search (0 for none)")
	flags.StringVar(&dbPath, "db", "", "SQLite database to store the runs in")

	return cmd
}

func saveBatch(ctx context.Context, path string, results []qturing.BatchResult) error {
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return err
	}

	if err := s.Init(ctx); err != nil {
		return err
	}
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		return err
	}

	for _, result := range results {
		if result.Result == nil {
			continue
		}

		if err := s.SaveSearch(ctx, result.Result); err != nil {
			return err
		}
	}

	return nil
}
