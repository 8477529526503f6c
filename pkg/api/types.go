package api

import (
	"log/slog"

	"github.com/ssargent/breakdb/pkg/store"
)

// KVStore is the store shape served over HTTP
type KVStore = store.Store[map[string]string]

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// KeyValue is returned by the get handler
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// StatsResponse describes the served store
type StatsResponse struct {
	Keys    int    `json:"keys"`
	Backend string `json:"backend"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind   string
	Port   int
	APIKey string

	// SaveOnWrite persists after every successful put or delete, as if
	// each request carried ?save=true.
	SaveOnWrite bool

	// Metrics defaults to a set registered with the default registry.
	// Pass the same value to store.WithObserver to see loads and saves.
	Metrics *Metrics
	Logger  *slog.Logger
}
