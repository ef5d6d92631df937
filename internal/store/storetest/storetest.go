// Package storetest opens throwaway stores for tests.
package storetest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/abhisek/brigade/internal/store"
)

// Open returns a migrated in-memory SQLite store private to the test.
func Open(t testing.TB) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	s, err := store.Open(store.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
