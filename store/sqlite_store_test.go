package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/qturing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	return s
}

func referenceSearch(t *testing.T, input string, limit int) (*qturing.SearchResult, qturing.Log) {
	t.Helper()

	machine, err := qturing.ReferenceDefinition().Machine(input, qturing.WithSeed(3))
	if err != nil {
		t.Fatalf("Machine: %v", err)
	}

	config := qturing.NewConfig()
	config.StepLimit = limit

	result, log, err := qturing.NewSearcher(qturing.WithSearchConfig(config)).Run(context.Background(), machine, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	return result, log
}

func TestNewSQLiteStore(t *testing.T) {
	Convey("Given an empty database path", t, func() {
		s, err := NewSQLiteStore("")

		Convey("It should be rejected", func() {
			So(s, ShouldBeNil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSaveAndLoadSearch(t *testing.T) {
	Convey("Given a migrated store", t, func() {
		s := newTestStore(t)
		ctx := context.Background()

		Reset(func() {
			_ = s.Close()
		})

		Convey("Migrating twice should be a no-op", func() {
			So(s.Migrate(ctx), ShouldBeNil)
		})

		Convey("When saving an accepting search", func() {
			result, log := referenceSearch(t, "0t", 10)
			So(s.SaveSearch(ctx, result), ShouldBeNil)

			Convey("The log should round-trip in order", func() {
				loaded, err := s.LoadLog(ctx, result.ID)
				So(err, ShouldBeNil)
				So(loaded, ShouldResemble, log)
			})

			Convey("The run should be listed", func() {
				runs, err := s.ListRuns(ctx)
				So(err, ShouldBeNil)
				So(len(runs), ShouldEqual, 1)
				So(runs[0].ID, ShouldEqual, result.ID)
				So(runs[0].Found, ShouldBeTrue)
				So(runs[0].Steps, ShouldEqual, 2)
				So(runs[0].Tapes, ShouldResemble, []string{"0t"})
				So(runs[0].Attempts, ShouldEqual, len(result.Attempts))
			})
		})

		Convey("When saving a search whose budgets all die out", func() {
			result, log := referenceSearch(t, "1", 4)
			So(s.SaveSearch(ctx, result), ShouldBeNil)

			Convey("Every snapshot should come back empty", func() {
				loaded, err := s.LoadLog(ctx, result.ID)
				So(err, ShouldBeNil)
				So(len(loaded), ShouldEqual, 3)
				So(loaded, ShouldResemble, log)
			})
		})

		Convey("When loading an unknown run", func() {
			_, err := s.LoadLog(ctx, uuid.New())

			Convey("It should report the run as missing", func() {
				So(err, ShouldEqual, ErrRunNotFound)
			})
		})
	})
}
