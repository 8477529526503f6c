package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/breakdb/pkg/codec"
	"github.com/ssargent/breakdb/pkg/config"
	"github.com/ssargent/breakdb/pkg/di"
	"github.com/ssargent/breakdb/pkg/store"
)

// run executes the root command with every persistent flag set, so values
// from an earlier run cannot leak in.
func run(t *testing.T, configPath, dbPath, backendName, codecName string, args ...string) (string, error) {
	t.Helper()
	SetContainer(di.NewContainer())

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{
		"--config", configPath,
		"--path", dbPath,
		"--backend", backendName,
		"--codec", codecName,
		"--checksum=false",
	}, args...))

	err := rootCmd.Execute()
	return stdout.String(), err
}

func TestCLI_PutGetListDelete(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	dbPath := filepath.Join(dir, "data", "db.json")

	_, err := run(t, configPath, dbPath, "path", "json", "put", "user:1", "ada")
	require.NoError(t, err)
	_, err = run(t, configPath, dbPath, "path", "json", "put", "user:2", "grace")
	require.NoError(t, err)
	_, err = run(t, configPath, dbPath, "path", "json", "put", "order:1", "book")
	require.NoError(t, err)

	out, err := run(t, configPath, dbPath, "path", "json", "get", "user:1")
	require.NoError(t, err)
	assert.Equal(t, "ada\n", out)

	out, err = run(t, configPath, dbPath, "path", "json", "list", "user:")
	require.NoError(t, err)
	assert.Equal(t, "user:1=ada\nuser:2=grace\n", out)

	_, err = run(t, configPath, dbPath, "path", "json", "delete", "user:1")
	require.NoError(t, err)

	_, err = run(t, configPath, dbPath, "path", "json", "get", "user:1")
	assert.ErrorIs(t, err, errKeyNotFound)

	_, err = run(t, configPath, dbPath, "path", "json", "delete", "user:1")
	assert.ErrorIs(t, err, errKeyNotFound)

	data, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user:2":"grace","order:1":"book"}`, string(data))
}

func TestCLI_InitWritesConfigAndDatabase(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	dbPath := filepath.Join(dir, "db.yaml")

	_, err := run(t, configPath, dbPath, "file", "yaml", "init", "--force=false", "--print-key=false")
	require.NoError(t, err)

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, dbPath, cfg.Path)
	assert.Equal(t, config.BackendFile, cfg.Backend)
	assert.Equal(t, "yaml", cfg.Codec)
	assert.NotEqual(t, "auto", cfg.Server.APIKey)
	assert.FileExists(t, dbPath)

	// Settings now come from the file
	SetContainer(di.NewContainer())
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"--config", configPath, "--path", dbPath, "--backend", "file", "--codec", "yaml", "--checksum=false", "put", "a", "b"})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, "a: b\n", string(data))
}

func TestInitializeConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	base := config.DefaultConfig()
	base.Backend = config.BackendPebble
	base.Path = "/tmp/db"

	cfg, created, err := initializeConfig(configPath, base, false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, config.BackendPebble, cfg.Backend)
	key := cfg.Server.APIKey

	_, created, err = initializeConfig(configPath, base, false)
	require.NoError(t, err)
	assert.False(t, created)

	cfg, created, err = initializeConfig(configPath, base, true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, key, cfg.Server.APIKey)
}

func TestConvertStore(t *testing.T) {
	dir := t.TempDir()
	jsonCodec := codec.Codec[map[string]string](codec.JSON[map[string]string]{})

	tests := []struct {
		name    string
		backend string
		codec   string
		load    func(t *testing.T, path string) map[string]string
	}{
		{
			name:    "path yaml",
			backend: config.BackendPath,
			codec:   "yaml",
			load: func(t *testing.T, path string) map[string]string {
				s, err := store.LoadPath(path, codec.Codec[map[string]string](codec.YAML[map[string]string]{}))
				require.NoError(t, err)
				got, err := s.GetData(false)
				require.NoError(t, err)
				return got
			},
		},
		{
			name:    "file gob with checksum",
			backend: config.BackendFile,
			codec:   "gob+crc",
			load: func(t *testing.T, path string) map[string]string {
				c, err := codec.ByName[map[string]string]("gob+crc")
				require.NoError(t, err)
				s, err := store.LoadFile(path, c)
				require.NoError(t, err)
				defer s.Close()
				got, err := s.GetData(false)
				require.NoError(t, err)
				return got
			},
		},
		{
			name:    "pebble json",
			backend: config.BackendPebble,
			codec:   "json",
			load: func(t *testing.T, path string) map[string]string {
				s, err := store.OpenPebble(path, func() map[string]string { return nil }, jsonCodec)
				require.NoError(t, err)
				defer s.Close()
				got, err := s.GetData(false)
				require.NoError(t, err)
				return got
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, err := store.Memory(map[string]string{"k": "v"}, jsonCodec)
			require.NoError(t, err)

			target := filepath.Join(dir, tt.name, "out")
			require.NoError(t, convertStore(kv, tt.backend, target, tt.codec))

			assert.Equal(t, map[string]string{"k": "v"}, tt.load(t, target))

			// kv was consumed
			_, err = kv.GetData(false)
			assert.ErrorIs(t, err, store.ErrClosed)
		})
	}
}

func TestConvertStore_Errors(t *testing.T) {
	jsonCodec := codec.Codec[map[string]string](codec.JSON[map[string]string]{})

	kv, err := store.Memory(map[string]string{}, jsonCodec)
	require.NoError(t, err)
	assert.ErrorIs(t, convertStore(kv, config.BackendPath, filepath.Join(t.TempDir(), "x"), "toml"), codec.ErrUnknownFormat)

	kv, err = store.Memory(map[string]string{}, jsonCodec)
	require.NoError(t, err)
	assert.Error(t, convertStore(kv, config.BackendMmap, filepath.Join(t.TempDir(), "x"), "json"))

	kv, err = store.Memory(map[string]string{}, jsonCodec)
	require.NoError(t, err)
	assert.Error(t, convertStore(kv, config.BackendPath, "", "json"))
}

func TestKVHelpers_MemoryStore(t *testing.T) {
	kv, err := store.Memory(map[string]string{}, codec.Codec[map[string]string](codec.JSON[map[string]string]{}))
	require.NoError(t, err)

	require.NoError(t, putValue(kv, "b", "2"))
	require.NoError(t, putValue(kv, "a", "1"))

	v, err := getValue(kv, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	lines, err := listEntries(kv, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a=1", "b=2"}, lines)

	require.NoError(t, deleteValue(kv, "a"))
	lines, err = listEntries(kv, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b=2"}, lines)
}

func TestOpenStore_RequiresContainer(t *testing.T) {
	dir := t.TempDir()
	SetContainer(nil)
	defer SetContainer(di.NewContainer())

	rootCmd.SetArgs([]string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--path", filepath.Join(dir, "db.json"),
		"--backend", "path",
		"--codec", "json",
		"--checksum=false",
		"get", "x",
	})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency container not initialized")
}

func TestCLI_InvalidFlags(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, filepath.Join(dir, "config.yaml"), filepath.Join(dir, "db"), "tape", "json", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}
