package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [machine.yaml]",
		Short: "Validate a machine definition",
		Long: `Validate parses a machine definition and builds its transition table,
reporting unknown directions, multi-symbol cells, phases off the unit circle
and symbols outside the declared alphabet. Without an argument the bundled
reference machine is checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			def, err := loadMachine(path)
			if err != nil {
				return err
			}

			table, err := def.Table()
			if err != nil {
				return err
			}

			name := def.Name
			if name == "" {
				name = path
			}

			p := newPrinter(cmd.OutOrStdout())
			p.success(fmt.Sprintf(
				"%s is valid: %d rules over %d (state, symbol) keys, initial %s, accept %v",
				name, len(def.Rules), table.Len(), def.Initial, def.Accept,
			))

			if verbose {
				for _, key := range table.Keys() {
					for _, action := range table.Actions(key.State, key.Symbol) {
						fmt.Fprintf(
							cmd.OutOrStdout(),
							"  (%s, %c) -> (%s, %c, %s, %v)\n",
							key.State, key.Symbol, action.Next, action.Write, action.Move, action.Phase,
						)
					}
				}
			}

			return nil
		},
	}
}
