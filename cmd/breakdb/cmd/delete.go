package cmd

import (
	"github.com/spf13/cobra"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a key-value pair",
	Long: `Delete a key-value pair from the BreakDB store and save it.

Example:
  breakdb delete mykey`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer kv.Close()

		if err := deleteValue(kv, args[0]); err != nil {
			return err
		}

		cmd.Printf("Successfully deleted key '%s'\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
