package cmd

import (
	"github.com/spf13/cobra"
)

// putCmd represents the put command
var putCmd = &cobra.Command{
	Use:   "put <key> <value>",
	Short: "Put a key-value pair",
	Long: `Put a key-value pair into the BreakDB store and save it.

With the memory and mmap backends nothing outlives the command.

Example:
  breakdb put mykey myvalue`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer kv.Close()

		if err := putValue(kv, args[0], args[1]); err != nil {
			return err
		}

		cmd.Printf("Successfully put key '%s' with value '%s'\n", args[0], args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}
