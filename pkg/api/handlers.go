package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/ssargent/breakdb/pkg/store"
)

var errKeyNotFound = errors.New("key not found")

// Server holds the API server state
type Server struct {
	store   *KVStore
	config  ServerConfig
	metrics *Metrics
}

// NewServer creates a new API server. A nil metrics gets a private registry.
func NewServer(kv *KVStore, config ServerConfig, metrics *Metrics) *Server {
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &Server{
		store:   kv,
		config:  config,
		metrics: metrics,
	}
}

// handleHealth reports whether the store is still usable
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	err := s.store.View(func(*map[string]string) error { return nil })
	if err != nil {
		s.metrics.RecordHealthCheck(false)
		sendError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handlePut stores the request body under key
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, ok := s.keyParam(w, r, "put", start)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.metrics.RecordOperation("put", false, time.Since(start), 0)
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			sendStoreError(w, "Value too large", err)
			return
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var keys int
	err = s.store.WriteSafe(func(m *map[string]string) error {
		if *m == nil {
			*m = make(map[string]string)
		}
		(*m)[key] = string(body)
		keys = len(*m)
		return nil
	})
	if err != nil {
		s.metrics.RecordOperation("put", false, time.Since(start), 0)
		sendStoreError(w, "Failed to put key-value", err)
		return
	}
	s.metrics.UpdateKeys(keys)

	if err := s.persist(r); err != nil {
		s.metrics.RecordOperation("put", false, time.Since(start), 0)
		sendStoreError(w, "Stored but failed to save", err)
		return
	}

	s.metrics.RecordOperation("put", true, time.Since(start), len(body))
	sendSuccess(w, map[string]string{"message": "Key-value pair stored successfully"})
}

// handleGet returns the value for key
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, ok := s.keyParam(w, r, "get", start)
	if !ok {
		return
	}

	var value string
	err := s.store.Read(func(m map[string]string) error {
		v, found := m[key]
		if !found {
			return errKeyNotFound
		}
		value = v
		return nil
	})
	if err != nil {
		s.metrics.RecordOperation("get", false, time.Since(start), 0)
		sendStoreError(w, "Failed to get value", err)
		return
	}

	s.metrics.RecordOperation("get", true, time.Since(start), 0)
	sendSuccess(w, KeyValue{Key: key, Value: value})
}

// handleDelete removes key
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, ok := s.keyParam(w, r, "delete", start)
	if !ok {
		return
	}

	var keys int
	err := s.store.WriteSafe(func(m *map[string]string) error {
		if _, found := (*m)[key]; !found {
			return errKeyNotFound
		}
		delete(*m, key)
		keys = len(*m)
		return nil
	})
	if err != nil {
		s.metrics.RecordOperation("delete", false, time.Since(start), 0)
		sendStoreError(w, "Failed to delete key", err)
		return
	}
	s.metrics.UpdateKeys(keys)

	if err := s.persist(r); err != nil {
		s.metrics.RecordOperation("delete", false, time.Since(start), 0)
		sendStoreError(w, "Deleted but failed to save", err)
		return
	}

	s.metrics.RecordOperation("delete", true, time.Since(start), 0)
	sendSuccess(w, map[string]string{"message": "Key deleted successfully"})
}

// handleListKeys returns the sorted keys that start with ?prefix=
func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")

	keys, err := store.ReadValue(s.store, func(m map[string]string) []string {
		return matchingKeys(m, prefix)
	})
	if err != nil {
		sendStoreError(w, "Failed to list keys", err)
		return
	}

	sendSuccess(w, map[string]interface{}{"keys": keys})
}

// handleSave persists the current value
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Save(); err != nil {
		sendStoreError(w, "Failed to save", err)
		return
	}
	sendSuccess(w, map[string]string{"message": "Saved"})
}

// handleLoad replaces the value with the persisted one
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Load(); err != nil {
		sendStoreError(w, "Failed to load", err)
		return
	}

	keys, err := store.ReadValue(s.store, func(m map[string]string) int { return len(m) })
	if err == nil {
		s.metrics.UpdateKeys(keys)
	}
	sendSuccess(w, map[string]string{"message": "Loaded"})
}

// handleStats describes the served store
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	keys, err := store.ReadValue(s.store, func(m map[string]string) int { return len(m) })
	if err != nil {
		sendStoreError(w, "Failed to read stats", err)
		return
	}

	s.metrics.UpdateKeys(keys)
	sendSuccess(w, StatsResponse{
		Keys:    keys,
		Backend: fmt.Sprintf("%T", s.store.Backend()),
	})
}

// keyParam extracts and unescapes the {key} URL parameter, writing the
// error response itself when it is missing or malformed.
func (s *Server) keyParam(w http.ResponseWriter, r *http.Request, op string, start time.Time) (string, bool) {
	raw := chi.URLParam(r, "key")
	if raw == "" {
		s.metrics.RecordOperation(op, false, time.Since(start), 0)
		sendError(w, "Key is required", http.StatusBadRequest)
		return "", false
	}

	key, err := url.QueryUnescape(raw)
	if err != nil {
		s.metrics.RecordOperation(op, false, time.Since(start), 0)
		sendError(w, "Invalid key encoding", http.StatusBadRequest)
		return "", false
	}
	return key, true
}

// persist saves when the server or the request asks for it
func (s *Server) persist(r *http.Request) error {
	if !s.config.SaveOnWrite && r.URL.Query().Get("save") != "true" {
		return nil
	}
	return s.store.Save()
}

func matchingKeys(m map[string]string, prefix string) []string {
	keys := maps.Keys(m)
	if prefix != "" {
		matched := keys[:0]
		for _, k := range keys {
			if strings.HasPrefix(k, prefix) {
				matched = append(matched, k)
			}
		}
		keys = matched
	}
	slices.Sort(keys)
	return keys
}
