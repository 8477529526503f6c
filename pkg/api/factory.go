// Package api provides factory implementations for dependency injection
package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ssargent/breakdb/pkg/backend"
	"github.com/ssargent/breakdb/pkg/codec"
	"github.com/ssargent/breakdb/pkg/config"
	"github.com/ssargent/breakdb/pkg/store"
)

// DefaultStoreOpener is the default implementation of StoreOpener
type DefaultStoreOpener struct{}

// NewStoreOpener creates a new store opener
func NewStoreOpener() StoreOpener {
	return &DefaultStoreOpener{}
}

// OpenStore loads the configured store, creating it empty when it does not
// exist yet.
func (o *DefaultStoreOpener) OpenStore(cfg *config.Config, opts ...store.Option) (*KVStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c, err := codec.ByName[map[string]string](cfg.CodecName())
	if err != nil {
		return nil, err
	}

	empty := func() map[string]string { return map[string]string{} }

	switch cfg.Backend {
	case config.BackendMemory:
		return store.Memory(empty(), c, opts...)
	case config.BackendMmap:
		size := cfg.MmapSize
		if size == 0 {
			size = backend.DefaultMmapSize
		}
		return store.MmapWithSize(empty(), size, c, opts...)
	case config.BackendPebble:
		return store.OpenPebble(cfg.Path, empty, c, opts...)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if cfg.Backend == config.BackendFile {
		return store.LoadFileOrElse(cfg.Path, empty, c, opts...)
	}
	return store.LoadPathOrElse(cfg.Path, empty, c, opts...)
}

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct{}

// StartServer starts the API server with the given configuration
func (s *DefaultServerStarter) StartServer(ctx context.Context, kv *KVStore, config ServerConfig) error {
	return StartServer(ctx, kv, config)
}
