package qturing

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBudgetStrategies(t *testing.T) {
	Convey("Given a linear budget", t, func() {
		lb := &LinearBudget{Start: 2, Increment: 1}

		Convey("It should grow by the increment", func() {
			So(lb.Budget(0), ShouldEqual, 2)
			So(lb.Budget(1), ShouldEqual, 3)
			So(lb.Budget(10), ShouldEqual, 12)
		})

		Convey("A non-positive increment should be treated as one", func() {
			lb.Increment = 0
			So(lb.Budget(3), ShouldEqual, 5)
		})
	})

	Convey("Given an exponential budget", t, func() {
		eb := &ExponentialBudget{Initial: 3}

		Convey("It should double on every attempt", func() {
			So(eb.Budget(0), ShouldEqual, 3)
			So(eb.Budget(1), ShouldEqual, 6)
			So(eb.Budget(4), ShouldEqual, 48)
		})

		Convey("A non-positive start should be treated as one", func() {
			eb.Initial = 0
			So(eb.Budget(0), ShouldEqual, 1)
			So(eb.Budget(3), ShouldEqual, 8)
		})
	})
}
