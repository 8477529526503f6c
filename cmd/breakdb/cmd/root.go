/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/breakdb/pkg/api"
	"github.com/ssargent/breakdb/pkg/config"
	"github.com/ssargent/breakdb/pkg/di"
	"github.com/ssargent/breakdb/pkg/store"
)

type settingsKey struct{}

type settings struct {
	config     *config.Config
	configPath string
	logger     *slog.Logger
}

var container *di.Container

// SetContainer injects the dependencies used by the commands
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "breakdb",
	Short: "BreakDB - persisted-object store",
	Long: `BreakDB keeps one value in memory and mirrors it to a file, an
anonymous memory map or a pebble database through a pluggable codec.

The CLI works on a string map. Settings come from the config file and can
be overridden with flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSettings(cmd)
		if err != nil {
			return err
		}
		cmd.SetContext(context.WithValue(cmd.Context(), settingsKey{}, s))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: OS-specific location)")
	rootCmd.PersistentFlags().StringP("path", "p", "", "Database path (overrides config)")
	rootCmd.PersistentFlags().StringP("backend", "b", "", "Backend: path, file, mmap, memory or pebble (overrides config)")
	rootCmd.PersistentFlags().StringP("codec", "c", "", "Codec: json, yaml or gob, optionally with +crc (overrides config)")
	rootCmd.PersistentFlags().Bool("checksum", false, "Wrap the codec in a CRC32 frame (overrides config)")
}

// resolveSettings reads the config file if there is one and applies the
// persistent flags on top of it.
func resolveSettings(cmd *cobra.Command) (*settings, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("path") {
		cfg.Path, _ = flags.GetString("path")
	}
	if flags.Changed("backend") {
		cfg.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("codec") {
		cfg.Codec, _ = flags.GetString("codec")
	}
	if flags.Changed("checksum") {
		cfg.Checksum, _ = flags.GetBool("checksum")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	return &settings{config: cfg, configPath: configPath, logger: logger}, nil
}

func settingsFrom(cmd *cobra.Command) (*settings, error) {
	if cmd.Context() == nil {
		return nil, fmt.Errorf("settings not resolved")
	}
	s, ok := cmd.Context().Value(settingsKey{}).(*settings)
	if !ok {
		return nil, fmt.Errorf("settings not resolved")
	}
	return s, nil
}

// openStore opens the configured store through the container's opener
func openStore(cmd *cobra.Command, opts ...store.Option) (*api.KVStore, *settings, error) {
	s, err := settingsFrom(cmd)
	if err != nil {
		return nil, nil, err
	}
	if container == nil {
		return nil, nil, fmt.Errorf("dependency container not initialized")
	}

	opts = append([]store.Option{store.WithLogger(s.logger)}, opts...)
	kv, err := container.GetStoreOpener().OpenStore(s.config, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return kv, s, nil
}
