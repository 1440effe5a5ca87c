package qturing

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

// fixedBudget always proposes the same budget.
type fixedBudget int

func (fb fixedBudget) Budget(int) int {
	return int(fb)
}

func searchMachine(t *testing.T, input string) *Machine {
	t.Helper()

	machine, err := ReferenceDefinition().Machine(input, WithSeed(3))
	if err != nil {
		t.Fatalf("Machine: %v", err)
	}

	return machine
}

func limitConfig(limit int) *Config {
	config := NewConfig()
	config.StepLimit = limit
	return config
}

func TestSearcher(t *testing.T) {
	Convey("Given the shortest accepted input", t, func() {
		machine := searchMachine(t, "0t")
		var observed []Attempt

		searcher := NewSearcher(
			WithSearchConfig(limitConfig(10)),
			WithObserver(func(attempt Attempt) {
				observed = append(observed, attempt)
			}),
		)

		result, log, err := searcher.Run(context.Background(), machine, nil)

		Convey("The first budget should already accept", func() {
			So(err, ShouldBeNil)
			So(result.Found, ShouldBeTrue)
			So(result.Steps, ShouldEqual, 2)
			So(len(result.Attempts), ShouldEqual, 1)
			So(result.Attempts[0].Outcome, ShouldEqual, OutcomeAccepted)
			So(result.Attempts[0].AcceptProbability, ShouldAlmostEqual, 1, tolerance)
		})

		Convey("The log should hold the accepting snapshot", func() {
			So(len(log), ShouldEqual, 1)
			So(log[0], ShouldResemble, []Record{{
				Step:          2,
				State:         "qf",
				Head:          0,
				Tape:          "0t",
				AmplitudeReal: 1,
				Probability:   1,
			}})
		})

		Convey("The final measurement should land in the accept state", func() {
			So(result.FinalErr, ShouldBeNil)
			So(result.Final, ShouldResemble, Configuration{Tape: "0t", Head: 0, State: "qf"})
			So(result.Tapes, ShouldResemble, []string{"0t"})
			So(result.FinishedAt.Before(result.StartedAt), ShouldBeFalse)
		})

		Convey("The observer should see every attempt", func() {
			So(len(observed), ShouldEqual, 1)
			So(observed[0].Budget, ShouldEqual, 2)
		})
	})

	Convey("Given an input without any applicable rule", t, func() {
		machine := searchMachine(t, "1")
		metrics := NewMetrics()

		searcher := NewSearcher(WithSearchConfig(limitConfig(4)), WithMetrics(metrics))
		result, log, err := searcher.Run(context.Background(), machine, nil)

		Convey("Every budget should die out without aborting the search", func() {
			So(err, ShouldBeNil)
			So(result.Found, ShouldBeFalse)
			So(len(result.Attempts), ShouldEqual, 3)

			for i, attempt := range result.Attempts {
				So(attempt.Budget, ShouldEqual, i+2)
				So(attempt.Outcome, ShouldEqual, OutcomeEmpty)
				So(attempt.Err, ShouldEqual, ErrEmptyRegister)
			}
		})

		Convey("The log should hold one empty snapshot per budget", func() {
			So(len(log), ShouldEqual, 3)
			for _, snapshot := range log {
				So(snapshot, ShouldNotBeNil)
				So(len(snapshot), ShouldEqual, 0)
			}
		})

		Convey("The final measurement should report the empty register", func() {
			So(result.FinalErr, ShouldEqual, ErrEmptyRegister)
		})

		Convey("Metrics should count every empty attempt", func() {
			exported := metrics.ExportMetrics()

			So(exported["attempts"], ShouldEqual, int64(3))
			So(exported["empty_registers"], ShouldEqual, int64(3))
			So(exported["accepted"], ShouldEqual, int64(0))
			So(exported["steps_evolved"], ShouldEqual, int64(9))
			So(testutil.ToFloat64(metrics.attempts.WithLabelValues(string(OutcomeEmpty))), ShouldEqual, 3.0)
			So(testutil.ToFloat64(metrics.steps), ShouldEqual, 9.0)
			So(testutil.ToFloat64(metrics.liveConfigurations), ShouldEqual, 0.0)
		})
	})

	Convey("Given a log that already holds snapshots", t, func() {
		machine := searchMachine(t, "0t")
		previous := Log{{}}

		_, log, err := NewSearcher(WithSearchConfig(limitConfig(10))).Run(context.Background(), machine, previous)

		Convey("New snapshots should be appended", func() {
			So(err, ShouldBeNil)
			So(len(log), ShouldEqual, 2)
			So(len(log[0]), ShouldEqual, 0)
			So(log[1][0].State, ShouldEqual, "qf")
		})
	})

	Convey("Given an exponential budget schedule", t, func() {
		machine := searchMachine(t, "0t")

		result, _, err := NewSearcher(
			WithSearchConfig(limitConfig(10)),
			WithStrategy(&ExponentialBudget{Initial: 1}),
		).Run(context.Background(), machine, nil)

		Convey("The budget of one step should be rejected before two accepts", func() {
			So(err, ShouldBeNil)
			So(len(result.Attempts), ShouldEqual, 2)
			So(result.Attempts[0].Budget, ShouldEqual, 1)
			So(result.Attempts[0].Outcome, ShouldEqual, OutcomeRejected)
			So(result.Attempts[1].Outcome, ShouldEqual, OutcomeAccepted)
			So(result.Steps, ShouldEqual, 2)
		})
	})

	Convey("Given a schedule that never grows", t, func() {
		machine := searchMachine(t, "1")

		result, _, err := NewSearcher(
			WithSearchConfig(limitConfig(5)),
			WithStrategy(fixedBudget(2)),
		).Run(context.Background(), machine, nil)

		Convey("Budgets should still increase by one until the limit", func() {
			So(err, ShouldBeNil)

			budgets := make([]int, 0, len(result.Attempts))
			for _, attempt := range result.Attempts {
				budgets = append(budgets, attempt.Budget)
			}

			So(budgets, ShouldResemble, []int{2, 3, 4, 5})
		})
	})

	Convey("Given a cancelled context", t, func() {
		machine := searchMachine(t, "0t")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, log, err := NewSearcher(WithSearchConfig(limitConfig(10))).Run(ctx, machine, nil)

		Convey("The search should stop before the first budget", func() {
			So(err, ShouldEqual, context.Canceled)
			So(result, ShouldNotBeNil)
			So(len(result.Attempts), ShouldEqual, 0)
			So(len(log), ShouldEqual, 0)
		})
	})

	Convey("Given a limit below the first budget", t, func() {
		machine := searchMachine(t, "0t")

		result, log, err := NewSearcher(WithSearchConfig(limitConfig(1))).Run(context.Background(), machine, nil)

		Convey("No attempt should be made and the seed should be measured", func() {
			So(err, ShouldBeNil)
			So(len(result.Attempts), ShouldEqual, 0)
			So(log, ShouldBeNil)
			So(result.Final.State, ShouldEqual, "q0")
		})
	})
}

func TestEstimateSteps(t *testing.T) {
	Convey("The automatic budget should count symbols", t, func() {
		So(EstimateSteps("0abt", 4, 10), ShouldEqual, 26)
		So(EstimateSteps("0λt", 4, 10), ShouldEqual, 22)
		So(EstimateSteps("", 4, 10), ShouldEqual, 10)
	})
}
