package qturing

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAnalyze(t *testing.T) {
	Convey("Given a log from a search", t, func() {
		log := Log{
			{},
			{
				{Step: 3, State: "q4", Tape: "0XYa", Head: 1, Probability: 0.5},
				{Step: 3, State: "q2", Tape: "0Xaa", Head: 3, Probability: 0.5},
			},
			{
				{Step: 4, State: "q5", Tape: "0XYa", Head: 2, Probability: 0.3},
				{Step: 4, State: "qf", Tape: "0XYt", Head: 2, Probability: 0.6},
				{Step: 4, State: "q2", Tape: "0Xaa", Head: 3, Probability: 0.1},
			},
		}

		summaries := Analyze(log, "qf")

		Convey("Empty snapshots should be skipped", func() {
			So(len(summaries), ShouldEqual, 2)
			So(summaries[0].Step, ShouldEqual, 3)
			So(summaries[1].Step, ShouldEqual, 4)
		})

		Convey("Each step should be condensed", func() {
			So(summaries[0].Configurations, ShouldEqual, 2)
			So(summaries[0].TotalProbability, ShouldAlmostEqual, 1, tolerance)
			So(summaries[0].AcceptProbability, ShouldEqual, 0.0)
			So(summaries[0].Dominant.State, ShouldEqual, "q4")

			So(summaries[1].Configurations, ShouldEqual, 3)
			So(summaries[1].AcceptProbability, ShouldAlmostEqual, 0.6, tolerance)
			So(summaries[1].Dominant.State, ShouldEqual, "qf")
		})
	})

	Convey("Given a log with nothing in it", t, func() {
		So(Analyze(nil), ShouldBeEmpty)
		So(Analyze(Log{{}, {}}, "qf"), ShouldBeEmpty)
	})
}
