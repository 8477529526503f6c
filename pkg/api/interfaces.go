// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/ssargent/breakdb/pkg/config"
	"github.com/ssargent/breakdb/pkg/store"
)

// StoreOpener opens the store described by a configuration
type StoreOpener interface {
	// OpenStore creates or loads the store at cfg.Path
	OpenStore(cfg *config.Config, opts ...store.Option) (*KVStore, error)
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves kv until ctx is cancelled
	StartServer(ctx context.Context, kv *KVStore, config ServerConfig) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
