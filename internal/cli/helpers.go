package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/dmb/internal/core"
)

var helpersInit bool

var helpersCmd = &cobra.Command{
	Use:   "helpers",
	Short: "List the helper programs bound to chat commands",
	Long: `List every helper binding as "alias|alias -> path". Bindings that may
schedule follow-up runs with /timer directives are marked [timers].

With --init, write the built-in helper table to the helpers file so it can
be edited. An existing file is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initialize(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if helpersInit {
			if HelperStore == nil {
				return fmt.Errorf("helper store not initialized")
			}
			path := HelperStore.Path()
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := HelperStore.Save(core.DefaultHelpers()); err != nil {
				return fmt.Errorf("writing helper table: %w", err)
			}
			fmt.Fprintf(out, "Wrote %d helpers to %s\n", len(core.DefaultHelpers()), path)
			return nil
		}

		if Helpers == nil {
			return fmt.Errorf("helper registry not initialized")
		}
		lines := Helpers.Describe()
		if len(lines) == 0 {
			fmt.Fprintln(out, "No helpers registered.")
			return nil
		}
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	helpersCmd.Flags().BoolVar(&helpersInit, "init", false, "Write the built-in helper table to the helpers file")
	rootCmd.AddCommand(helpersCmd)
}
