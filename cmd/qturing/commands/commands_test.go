package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer

	cmd := newRootCommand("test", "none", "now")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	Convey("Given the bundled reference machine", t, func() {
		out, err := execute("validate")

		Convey("It should be reported as valid", func() {
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "reference is valid: 32 rules over 30")
		})
	})

	Convey("Given a missing machine file", t, func() {
		_, err := execute("validate", filepath.Join(t.TempDir(), "missing.yaml"))
		So(err, ShouldNotBeNil)
	})
}

func TestRunAndReportCommands(t *testing.T) {
	Convey("Given a search on the shortest accepted input", t, func() {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "log_amplitudes.json")
		dbPath := filepath.Join(dir, "runs.db")

		out, err := execute(
			"run",
			"--input", "0t",
			"--steps", "10",
			"--seed", "3",
			"--log", logPath,
			"--db", dbPath,
		)

		Convey("It should find the accept state and store the run", func() {
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "Trying with 2 steps...")
			So(out, ShouldContainSubstring, "Accept state reached with 2 steps.")
			So(out, ShouldContainSubstring, "Final state: qf")
			So(out, ShouldContainSubstring, "Amplitude log saved to: "+logPath)
		})

		Convey("The report should summarize the JSON log", func() {
			report, err := execute("report", logPath)

			So(err, ShouldBeNil)
			So(report, ShouldContainSubstring, "Amplitude log: 1 snapshots")
			So(report, ShouldContainSubstring, "(0t, 0, qf)")
		})

		Convey("The report should read the stored run", func() {
			report, err := execute("report", "--db", dbPath)

			So(err, ShouldBeNil)
			So(report, ShouldContainSubstring, "(0t, 0, qf)")
		})
	})

	Convey("Given a search where every branch dies", t, func() {
		logPath := filepath.Join(t.TempDir(), "log_amplitudes.json")

		out, err := execute("run", "--input", "1", "--steps", "3", "--seed", "3", "--log", logPath)

		So(err, ShouldBeNil)
		So(out, ShouldContainSubstring, "No accept state found within 3 steps.")
		So(out, ShouldContainSubstring, "Execution failed at 2 steps")

		Convey("The report should say nothing survived", func() {
			report, err := execute("report", logPath)

			So(err, ShouldBeNil)
			So(report, ShouldContainSubstring, "Every snapshot is empty")
		})
	})
}

func TestBatchCommand(t *testing.T) {
	Convey("Given a batch of accepted and dead inputs", t, func() {
		dbPath := filepath.Join(t.TempDir(), "runs.db")

		out, err := execute("batch", "--workers", "2", "--steps", "4", "--seed", "3", "--db", dbPath, "0t", "1")

		Convey("Every input should get a row", func() {
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "Batch of 2 inputs")
			So(out, ShouldContainSubstring, "(0t, 0, qf)")
			So(out, ShouldContainSubstring, "register holds no configurations")
			So(out, ShouldContainSubstring, "Stored 2 runs in "+dbPath)
		})
	})
}
