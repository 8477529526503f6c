/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ssargent/breakdb/pkg/api"
	"github.com/ssargent/breakdb/pkg/store"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Serve the configured store over the BreakDB REST API.

Requests need the X-API-Key header. Writes stay in memory until POST
/api/v1/save or a write with ?save=true, unless --save-on-write is set.

Examples:
  breakdb serve
  breakdb serve --port 9200 --api-key mysecretkey --save-on-write`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}
		applyServerFlags(cmd, s)

		if s.config.Server.APIKey == "" || s.config.Server.APIKey == "auto" {
			return fmt.Errorf("no API key configured: run 'breakdb init' or pass --api-key")
		}

		metrics := api.NewMetrics(prometheus.DefaultRegisterer)
		kv, _, err := openStore(cmd, store.WithObserver(metrics))
		if err != nil {
			return err
		}
		defer kv.Close()

		saveOnWrite, _ := cmd.Flags().GetBool("save-on-write")
		saveOnExit, _ := cmd.Flags().GetBool("save-on-exit")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if container == nil {
			return fmt.Errorf("dependency container not initialized")
		}
		starter := container.GetServerFactory().CreateServerStarter()

		cmd.Printf("🚀 Starting BreakDB server on %s:%d\n", s.config.Server.Bind, s.config.Server.Port)
		cmd.Printf("📁 Database: %s (%s, %s)\n", s.config.Path, s.config.Backend, s.config.CodecName())

		err = starter.StartServer(ctx, kv, api.ServerConfig{
			Bind:        s.config.Server.Bind,
			Port:        s.config.Server.Port,
			APIKey:      s.config.Server.APIKey,
			SaveOnWrite: saveOnWrite,
			Metrics:     metrics,
			Logger:      s.logger,
		})
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}

		if saveOnExit {
			if err := kv.Save(); err != nil {
				return fmt.Errorf("failed to save on exit: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().String("bind", "", "Address to bind to (overrides config)")
	serveCmd.Flags().String("api-key", "", "API key clients must send (overrides config)")
	serveCmd.Flags().Bool("save-on-write", false, "Save after every successful put or delete")
	serveCmd.Flags().Bool("save-on-exit", false, "Save once more after the server stops")
}

func applyServerFlags(cmd *cobra.Command, s *settings) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		s.config.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("bind") {
		s.config.Server.Bind, _ = flags.GetString("bind")
	}
	if flags.Changed("api-key") {
		s.config.Server.APIKey, _ = flags.GetString("api-key")
	}
}
