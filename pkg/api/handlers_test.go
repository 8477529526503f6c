package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/breakdb/pkg/codec"
	"github.com/ssargent/breakdb/pkg/store"
)

type testEnv struct {
	server  *Server
	store   *KVStore
	metrics *Metrics
	path    string
}

func setupTestServer(t *testing.T, config ServerConfig) *testEnv {
	t.Helper()

	path := filepath.Join(t.TempDir(), "db.json")
	metrics := NewMetrics(prometheus.NewRegistry())

	kv, err := store.CreatePath(path, map[string]string{}, codec.Codec[map[string]string](codec.JSON[map[string]string]{}),
		store.WithObserver(metrics))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	return &testEnv{
		server:  NewServer(kv, config, metrics),
		store:   kv,
		metrics: metrics,
		path:    path,
	}
}

// withKey sets the chi {key} URL parameter on req
func withKey(req *http.Request, key string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("key", key)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var response APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func (e *testEnv) put(t *testing.T, key, value string) {
	t.Helper()
	req := withKey(httptest.NewRequest("PUT", "/kv/"+key, strings.NewReader(value)), key)
	w := httptest.NewRecorder()
	e.server.handlePut(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestServer_handleHealth(t *testing.T) {
	env := setupTestServer(t, ServerConfig{})

	w := httptest.NewRecorder()
	env.server.handleHealth(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.True(t, response.Success)
	assert.Equal(t, map[string]interface{}{"status": "healthy"}, response.Data)
}

func TestServer_handlePut(t *testing.T) {
	env := setupTestServer(t, ServerConfig{})

	tests := []struct {
		name           string
		key            string
		value          string
		expectedStatus int
	}{
		{name: "valid put", key: "testkey", value: "testvalue", expectedStatus: http.StatusOK},
		{name: "empty key", key: "", value: "testvalue", expectedStatus: http.StatusBadRequest},
		{name: "empty value", key: "empty", value: "", expectedStatus: http.StatusOK},
		{name: "escaped key", key: "user%2F1", value: "ada", expectedStatus: http.StatusOK},
		{name: "bad escape", key: "bad%zz", value: "x", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withKey(httptest.NewRequest("PUT", "/kv/x", strings.NewReader(tt.value)), tt.key)
			w := httptest.NewRecorder()

			env.server.handlePut(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			response := decode(t, w)
			assert.Equal(t, tt.expectedStatus == http.StatusOK, response.Success)
		})
	}

	got, err := env.store.GetData(false)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"testkey": "testvalue", "empty": "", "user/1": "ada"}, got)

	// Nothing was saved: the file still holds the empty map
	data, err := os.ReadFile(env.path)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestServer_handlePutSave(t *testing.T) {
	t.Run("query parameter", func(t *testing.T) {
		env := setupTestServer(t, ServerConfig{})

		req := withKey(httptest.NewRequest("PUT", "/kv/a?save=true", strings.NewReader("1")), "a")
		w := httptest.NewRecorder()
		env.server.handlePut(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		data, err := os.ReadFile(env.path)
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":"1"}`, string(data))
	})

	t.Run("save on write", func(t *testing.T) {
		env := setupTestServer(t, ServerConfig{SaveOnWrite: true})
		env.put(t, "b", "2")

		data, err := os.ReadFile(env.path)
		require.NoError(t, err)
		assert.JSONEq(t, `{"b":"2"}`, string(data))
	})
}

func TestServer_handleGet(t *testing.T) {
	env := setupTestServer(t, ServerConfig{})
	env.put(t, "name", "ada")

	t.Run("existing key", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.server.handleGet(w, withKey(httptest.NewRequest("GET", "/kv/name", nil), "name"))

		assert.Equal(t, http.StatusOK, w.Code)
		response := decode(t, w)
		assert.Equal(t, map[string]interface{}{"key": "name", "value": "ada"}, response.Data)
	})

	t.Run("missing key", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.server.handleGet(w, withKey(httptest.NewRequest("GET", "/kv/nope", nil), "nope"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, decode(t, w).Error, "key not found")
	})

	t.Run("empty key", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.server.handleGet(w, withKey(httptest.NewRequest("GET", "/kv/", nil), ""))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_handleDelete(t *testing.T) {
	env := setupTestServer(t, ServerConfig{})
	env.put(t, "gone", "soon")

	w := httptest.NewRecorder()
	env.server.handleDelete(w, withKey(httptest.NewRequest("DELETE", "/kv/gone", nil), "gone"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	env.server.handleDelete(w, withKey(httptest.NewRequest("DELETE", "/kv/gone", nil), "gone"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	got, err := env.store.GetData(false)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestServer_handleListKeys(t *testing.T) {
	env := setupTestServer(t, ServerConfig{})
	for _, k := range []string{"user:2", "order:1", "user:1"} {
		env.put(t, k, "v")
	}

	tests := []struct {
		name     string
		query    string
		expected []interface{}
	}{
		{name: "all keys sorted", query: "", expected: []interface{}{"order:1", "user:1", "user:2"}},
		{name: "prefix", query: "?prefix=user:", expected: []interface{}{"user:1", "user:2"}},
		{name: "no match", query: "?prefix=zzz", expected: []interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.server.handleListKeys(w, httptest.NewRequest("GET", "/kv"+tt.query, nil))

			require.Equal(t, http.StatusOK, w.Code)
			data, ok := decode(t, w).Data.(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.expected, data["keys"])
		})
	}
}

func TestServer_handleSaveAndLoad(t *testing.T) {
	env := setupTestServer(t, ServerConfig{})
	env.put(t, "kept", "yes")

	w := httptest.NewRecorder()
	env.server.handleSave(w, httptest.NewRequest("POST", "/save", nil))
	require.Equal(t, http.StatusOK, w.Code)

	env.put(t, "dropped", "yes")

	w = httptest.NewRecorder()
	env.server.handleLoad(w, httptest.NewRequest("POST", "/load", nil))
	require.Equal(t, http.StatusOK, w.Code)

	got, err := env.store.GetData(false)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"kept": "yes"}, got)
}

func TestServer_handleStats(t *testing.T) {
	env := setupTestServer(t, ServerConfig{})
	env.put(t, "a", "1")
	env.put(t, "b", "2")

	w := httptest.NewRecorder()
	env.server.handleStats(w, httptest.NewRequest("GET", "/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	data, ok := decode(t, w).Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), data["keys"])
	assert.Equal(t, "*backend.PathBackend", data["backend"])
}

func TestServer_PoisonedStore(t *testing.T) {
	env := setupTestServer(t, ServerConfig{})

	func() {
		defer func() { _ = recover() }()
		_ = env.store.Write(func(*map[string]string) error { panic("boom") })
	}()

	w := httptest.NewRecorder()
	env.server.handleHealth(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	env.server.handlePut(w, withKey(httptest.NewRequest("PUT", "/kv/a", strings.NewReader("1")), "a"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_handlePutTooLarge(t *testing.T) {
	env := setupTestServer(t, ServerConfig{})

	body := strings.NewReader(strings.Repeat("x", 16))
	req := withKey(httptest.NewRequest("PUT", "/kv/big", body), "big")
	w := httptest.NewRecorder()
	limitBody(8)(http.HandlerFunc(env.server.handlePut)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.False(t, decode(t, w).Success)

	n, err := store.ReadValue(env.store, func(m map[string]string) int { return len(m) })
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestServer_putKeepsOtherValuesBytewise(t *testing.T) {
	env := setupTestServer(t, ServerConfig{})
	env.put(t, "raw", "\xff\xfe")
	env.put(t, "other", "x")

	got, err := store.ReadValue(env.store, func(m map[string]string) string { return m["raw"] })
	require.NoError(t, err)
	assert.Equal(t, "\xff\xfe", got)
}
