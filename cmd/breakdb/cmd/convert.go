package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/breakdb/pkg/api"
	"github.com/ssargent/breakdb/pkg/backend"
	"github.com/ssargent/breakdb/pkg/codec"
	"github.com/ssargent/breakdb/pkg/config"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Copy the database to another path, backend or codec",
	Long: `Load the configured database and save its value through another
backend and codec. The source is left as it is.

Examples:
  breakdb convert --to ./db.yaml --to-codec yaml
  breakdb convert --to ./db.pebble --to-backend pebble --to-codec gob+crc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		to, _ := cmd.Flags().GetString("to")
		toBackend, _ := cmd.Flags().GetString("to-backend")
		toCodec, _ := cmd.Flags().GetString("to-codec")

		kv, s, err := openStore(cmd)
		if err != nil {
			return err
		}

		if toCodec == "" {
			toCodec = s.config.CodecName()
		}
		if err := convertStore(kv, toBackend, to, toCodec); err != nil {
			return err
		}

		cmd.Printf("Converted %s to %s (%s, %s)\n", s.config.Path, to, toBackend, toCodec)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().String("to", "", "Destination path (required)")
	convertCmd.Flags().String("to-backend", config.BackendPath, "Destination backend: path, file or pebble")
	convertCmd.Flags().String("to-codec", "", "Destination codec (default: the source codec)")
	if err := convertCmd.MarkFlagRequired("to"); err != nil {
		panic(err)
	}
}

// convertStore consumes kv, re-encodes its value with codecName and saves it
// to a new backend at path. The result is closed before returning.
func convertStore(kv *api.KVStore, backendName, path, codecName string) error {
	c, err := codec.ByName[map[string]string](codecName)
	if err != nil {
		_ = kv.Close()
		return err
	}

	b, err := openTarget(backendName, path)
	if err != nil {
		_ = kv.Close()
		return err
	}

	converted := kv.WithCodec(c).WithBackend(b)
	defer converted.Close()

	if err := converted.Save(); err != nil {
		return fmt.Errorf("failed to save converted store: %w", err)
	}
	return nil
}

func openTarget(name, path string) (backend.Backend, error) {
	if path == "" {
		return nil, fmt.Errorf("destination path is required")
	}

	switch name {
	case config.BackendPebble:
		b, err := backend.OpenPebble(path)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendPath, config.BackendFile:
	default:
		return nil, fmt.Errorf("cannot convert to backend %q", name)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}
	if name == config.BackendFile {
		b, err := backend.OpenFile(path)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return backend.NewPath(path), nil
}
