package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

// WriteTempFile writes content to name inside a fresh temporary directory and returns its path.
func WriteTempFile(tb testing.TB, name, content string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	test.That(tb, os.WriteFile(path, []byte(content), 0o600), test.ShouldBeNil)
	return path
}
