package cmd

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/ssargent/breakdb/pkg/api"
	"github.com/ssargent/breakdb/pkg/store"
)

var errKeyNotFound = errors.New("key not found")

func getValue(kv *api.KVStore, key string) (string, error) {
	var value string
	err := kv.Read(func(m map[string]string) error {
		v, ok := m[key]
		if !ok {
			return fmt.Errorf("%w: %s", errKeyNotFound, key)
		}
		value = v
		return nil
	})
	return value, err
}

// putValue sets key and saves
func putValue(kv *api.KVStore, key, value string) error {
	err := kv.WriteSafe(func(m *map[string]string) error {
		if *m == nil {
			*m = make(map[string]string)
		}
		(*m)[key] = value
		return nil
	})
	if err != nil {
		return err
	}
	return kv.Save()
}

// deleteValue removes key and saves. A missing key is an error and nothing
// is written.
func deleteValue(kv *api.KVStore, key string) error {
	err := kv.WriteSafe(func(m *map[string]string) error {
		if _, ok := (*m)[key]; !ok {
			return fmt.Errorf("%w: %s", errKeyNotFound, key)
		}
		delete(*m, key)
		return nil
	})
	if err != nil {
		return err
	}
	return kv.Save()
}

// listEntries returns key=value lines for keys starting with prefix, sorted
// by key.
func listEntries(kv *api.KVStore, prefix string) ([]string, error) {
	return store.ReadValue(kv, func(m map[string]string) []string {
		keys := maps.Keys(m)
		slices.Sort(keys)

		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			if strings.HasPrefix(k, prefix) {
				lines = append(lines, k+"="+m[k])
			}
		}
		return lines
	})
}
