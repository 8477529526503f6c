/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/breakdb/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file and an empty database",
	Long: `Create a BreakDB configuration with a generated API key and an empty
database at the configured path.

This command will:
- Write the config file (0600) unless it exists, or --force is given
- Create the database if it does not exist yet

Examples:
  breakdb init
  breakdb init --config ./breakdb.yaml --path ./data/db.json --codec yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		printKey, _ := cmd.Flags().GetBool("print-key")

		cfg, created, err := initializeConfig(s.configPath, s.config, force)
		if err != nil {
			return err
		}
		if created {
			cmd.Printf("✅ Configuration created at %s\n", s.configPath)
		} else {
			cmd.Printf("Configuration already exists at %s. Use --force to recreate it.\n", s.configPath)
		}

		s.config = cfg
		kv, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		if err := kv.Close(); err != nil {
			return err
		}

		cmd.Printf("Database: %s (%s, %s)\n", cfg.Path, cfg.Backend, cfg.CodecName())
		if printKey && created {
			cmd.Printf("API key: %s\n", cfg.Server.APIKey)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key")
}

// initializeConfig writes a bootstrap config derived from cfg unless one
// already exists at configPath. It reports whether a file was written.
func initializeConfig(configPath string, cfg *config.Config, force bool) (*config.Config, bool, error) {
	if config.ConfigExists(configPath) && !force {
		return cfg, false, nil
	}

	bootstrapped, err := config.BootstrapConfig(configPath, cfg.Path)
	if err != nil {
		return nil, false, err
	}

	// Keep the storage settings chosen with flags
	bootstrapped.Backend = cfg.Backend
	bootstrapped.Codec = cfg.Codec
	bootstrapped.Checksum = cfg.Checksum
	bootstrapped.MmapSize = cfg.MmapSize
	if err := config.SaveConfig(bootstrapped, configPath); err != nil {
		return nil, false, fmt.Errorf("failed to save config: %w", err)
	}
	return bootstrapped, true, nil
}
