package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/theapemachine/errnie"
	"github.com/theapemachine/qturing"
	"github.com/theapemachine/qturing/store"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search for an accept state with growing step budgets",
		Long: `Run resets the machine and evolves it with budgets of 2, 3, 4, ... steps
until a live configuration reaches an accept state or the step limit is
reached. Every attempt is printed and appended to the amplitude log.

Missing input and step settings are asked for interactively.`,
		RunE: runSearch,
	}

	flags := cmd.Flags()
	flags.String("machine", "", "machine definition file (defaults to the bundled reference machine)")
	flags.String("input", "", "input tape")
	flags.Bool("auto", false, "estimate the step limit as k*len(input)+b")
	flags.Int("steps", 0, "step limit of the search")
	flags.Int("start-steps", 2, "first step budget")
	flags.Int("auto-factor", 4, "k of the automatic estimate")
	flags.Int("auto-offset", 10, "b of the automatic estimate")
	flags.Float64("decoherence", 0, "per-configuration phase erasure probability on every step")
	flags.Bool("diffusion", false, "reflect amplitudes about their mean before every step")
	flags.Bool("oracle-accept", false, "flip the phase of accepting configurations before every step")
	flags.Uint64("seed", 0, "random seed (0 seeds from the clock)")
	flags.Float64("threshold", 0.001, "hide configurations at or below this probability")
	flags.String("log", "log_amplitudes.json", "amplitude log output file (empty to skip)")
	flags.String("db", "", "SQLite database to store the run in")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while searching")

	for _, name := range []string{
		"machine", "input", "auto", "steps", "start-steps", "auto-factor", "auto-offset",
		"decoherence", "diffusion", "oracle-accept", "seed", "threshold", "log", "db", "metrics-addr",
	} {
		_ = settings.BindPFlag(name, flags.Lookup(name))
	}

	return cmd
}

func runSearch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())
	p := newPrinter(out)

	def, err := loadMachine(settings.GetString("machine"))
	if err != nil {
		return err
	}

	p.title("Starting quantum execution...")

	input := settings.GetString("input")
	if input == "" {
		if input, err = prompt(in, out, "Enter an input string for the machine (e.g. 0ababt): "); err != nil {
			return err
		}
	}

	config := qturing.NewConfig()
	config.StartSteps = settings.GetInt("start-steps")
	config.AutoFactor = settings.GetInt("auto-factor")
	config.AutoOffset = settings.GetInt("auto-offset")
	config.DisplayThreshold = settings.GetFloat64("threshold")

	if config.StepLimit, err = stepLimit(in, out, input, config); err != nil {
		return err
	}

	opts := []qturing.MachineOption{qturing.WithConfig(config)}
	if seed := settings.GetUint64("seed"); seed != 0 {
		opts = append(opts, qturing.WithSeed(seed))
	}

	var runOpts []qturing.RunOption
	if settings.GetBool("oracle-accept") {
		runOpts = append(runOpts, qturing.WithOracle(qturing.AcceptOracle(def.Accept...)))
	}
	if settings.GetBool("diffusion") {
		runOpts = append(runOpts, qturing.WithDiffusion())
	}
	if probability := settings.GetFloat64("decoherence"); probability > 0 {
		config.DecoherenceProbability = probability
		runOpts = append(runOpts, qturing.WithDecoherentSteps())
	}

	machine, err := def.Machine(input, opts...)
	if err != nil {
		return err
	}

	metrics := qturing.NewMetrics()
	if addr := settings.GetString("metrics-addr"); addr != "" {
		stop := serveMetrics(addr, metrics)
		defer stop()
	}

	searcher := qturing.NewSearcher(
		qturing.WithSearchConfig(config),
		qturing.WithRunOptions(runOpts...),
		qturing.WithMetrics(metrics),
		qturing.WithObserver(func(attempt qturing.Attempt) {
			p.attempt(attempt, config.DisplayThreshold)
		}),
	)

	p.title("Starting adaptive search for an accept state...")

	result, log, err := searcher.Run(ctx, machine, nil)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	p.outcome(result, config.StepLimit)
	p.evolution(result, config.DisplayThreshold)
	p.measurement(result)

	if verbose {
		spew.Fdump(cmd.ErrOrStderr(), metrics.ExportMetrics())
	}

	if path := settings.GetString("log"); path != "" {
		if err := log.SaveJSON(path); err != nil {
			return err
		}
		p.success(fmt.Sprintf("Amplitude log saved to: %s", path))
	}

	if path := settings.GetString("db"); path != "" {
		if err := saveRun(context.WithoutCancel(ctx), path, result); err != nil {
			return err
		}
		p.success(fmt.Sprintf("Run %s stored in %s", result.ID, path))
	}

	return err
}

func loadMachine(path string) (*qturing.Definition, error) {
	if path == "" {
		return qturing.ReferenceDefinition(), nil
	}

	return qturing.LoadDefinition(path)
}

/*
stepLimit resolves the search cap: an explicit --steps wins, then --auto,
otherwise the user is asked whether to estimate it or type it in.
*/
func stepLimit(in *bufio.Reader, out io.Writer, input string, config *qturing.Config) (int, error) {
	if steps := settings.GetInt("steps"); steps > 0 {
		return steps, nil
	}

	auto := settings.GetBool("auto")
	if !auto {
		answer, err := prompt(in, out, "Estimate the number of steps automatically? (y/n): ")
		if err != nil {
			return 0, err
		}

		answer = strings.ToLower(answer)
		auto = answer == "y" || answer == "yes"
	}

	if auto {
		steps := qturing.EstimateSteps(input, config.AutoFactor, config.AutoOffset)
		fmt.Fprintf(out, "max_steps estimated automatically: %d\n", steps)
		return steps, nil
	}

	answer, err := prompt(in, out, "Enter the number of steps (max_steps): ")
	if err != nil {
		return 0, err
	}

	steps, err := strconv.Atoi(answer)
	if err != nil || steps < 0 {
		return 0, fmt.Errorf("invalid value for the number of steps: %q", answer)
	}

	return steps, nil
}

func prompt(in *bufio.Reader, out io.Writer, question string) (string, error) {
	fmt.Fprint(out, question)

	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}

	return strings.TrimSpace(line), nil
}

func serveMetrics(addr string, metrics *qturing.Metrics) func() {
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errnie.Info("metrics server stopped: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

func saveRun(ctx context.Context, path string, result *qturing.SearchResult) error {
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

	return s.SaveSearch(ctx, result)
}
