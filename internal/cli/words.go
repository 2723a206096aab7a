package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var wordsCount bool

var wordsCmd = &cobra.Command{
	Use:   "words",
	Short: "Show the queued words of the day",
	Long: `Print the words still waiting in the word-of-the-day queue, next word
first. With --count, print only how many remain.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initialize(); err != nil {
			return err
		}
		if Words == nil {
			return fmt.Errorf("word of the day is not configured")
		}
		words, err := Words.Remaining()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if wordsCount {
			fmt.Fprintln(out, len(words))
			return nil
		}
		if len(words) == 0 {
			fmt.Fprintln(out, "The word queue is empty.")
			return nil
		}
		for _, w := range words {
			fmt.Fprintln(out, w)
		}
		return nil
	},
}

func init() {
	wordsCmd.Flags().BoolVar(&wordsCount, "count", false, "Print only the number of queued words")
	rootCmd.AddCommand(wordsCmd)
}
