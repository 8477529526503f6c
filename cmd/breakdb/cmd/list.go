package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List key-value pairs",
	Long: `List key-value pairs as key=value lines, sorted by key.

Examples:
  breakdb list
  breakdb list user:`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer kv.Close()

		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}

		lines, err := listEntries(kv, prefix)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
