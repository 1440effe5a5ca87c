package qturing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestReferenceDefinition(t *testing.T) {
	Convey("Given the bundled reference machine", t, func() {
		def := ReferenceDefinition()

		So(def.Name, ShouldEqual, "reference")
		So(def.Initial, ShouldEqual, "q0")
		So(def.Accept, ShouldResemble, []string{"qf"})
		So(len(def.Rules), ShouldEqual, 32)

		Convey("Its table should validate against the alphabet", func() {
			table, err := def.Table()

			So(err, ShouldBeNil)
			So(table.Len(), ShouldEqual, 30)
		})

		Convey("Nondeterministic rules should share a key in file order", func() {
			table, _ := def.Table()
			actions := table.Actions("q2", 'a')

			So(len(actions), ShouldEqual, 2)
			So(actions[0], ShouldResemble, Action{Next: "q2", Write: 'a', Move: Forward, Phase: 1})
			So(actions[1], ShouldResemble, Action{Next: "q4", Write: 'Y', Move: Backward, Phase: 1})
		})
	})
}

func TestParseDefinition(t *testing.T) {
	Convey("Given a definition with explicit phases", t, func() {
		def, err := ParseDefinition([]byte(`
name: phased
initial: s
accept: [f]
rules:
  - {state: s, read: a, next: f, write: b, move: ">", phase: {re: 0, im: -1}}
  - {state: s, read: a, next: g, write: a, move: "<"}
`))
		So(err, ShouldBeNil)

		Convey("Explicit phases should override the default", func() {
			actions, err := def.Actions(1)
			So(err, ShouldBeNil)

			key := Key{State: "s", Symbol: 'a'}
			So(actions[key][0].Phase, ShouldEqual, complex(0, -1))
			So(actions[key][1].Phase, ShouldEqual, complex(1, 0))
			So(actions[key][1].Move, ShouldEqual, Backward)
		})

		Convey("A missing alphabet should accept any symbol", func() {
			table, err := def.Table()
			So(err, ShouldBeNil)
			So(table.Len(), ShouldEqual, 1)
		})
	})

	Convey("Given broken definitions", t, func() {
		for _, raw := range []string{
			"initial: [unclosed",
			"accept: [f]\nrules: []",
			"initial: s\nrules: []",
		} {
			_, err := ParseDefinition([]byte(raw))
			So(errors.Is(err, ErrInvalidDefinition), ShouldBeTrue)
		}
	})

	Convey("Given rules that cannot become actions", t, func() {
		for _, rule := range []Rule{
			{State: "s", Read: "ab", Next: "f", Write: "a", Move: "R"},
			{State: "s", Read: "a", Next: "f", Write: "", Move: "R"},
			{State: "s", Read: "a", Next: "f", Write: "a", Move: "up"},
		} {
			def := &Definition{Initial: "s", Accept: []string{"f"}, Rules: []Rule{rule}}

			_, err := def.Table()
			So(errors.Is(err, ErrInvalidTransitionTable), ShouldBeTrue)
		}
	})

	Convey("Given a rule writing outside the declared alphabet", t, func() {
		def := &Definition{
			Initial:  "s",
			Accept:   []string{"f"},
			Alphabet: "ab",
			Rules:    []Rule{{State: "s", Read: "a", Next: "f", Write: "c", Move: "R"}},
		}

		_, err := def.Machine("ab")
		So(errors.Is(err, ErrInvalidTransitionTable), ShouldBeTrue)
	})
}

func TestLoadDefinition(t *testing.T) {
	Convey("Given a machine file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "machine.yaml")
		So(os.WriteFile(path, referenceDefinition, 0o644), ShouldBeNil)

		def, err := LoadDefinition(path)

		Convey("It should decode like the bundled copy", func() {
			So(err, ShouldBeNil)
			So(def, ShouldResemble, ReferenceDefinition())
		})
	})

	Convey("Given a missing file", t, func() {
		_, err := LoadDefinition(filepath.Join(t.TempDir(), "missing.yaml"))
		So(err, ShouldNotBeNil)
	})
}
