package fsutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coblang/cob/internal/fsutil"
)

func TestFindFilesByExtension(t *testing.T) {
	dir := t.TempDir()
	mk := func(rel string) string {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
		return path
	}
	b := mk("b.cob")
	a := mk("sub/a.cob")
	mk("readme.md")
	mk(".hidden/secret.cob")

	files, err := fsutil.FindFilesByExtension(dir, ".cob")
	require.NoError(t, err)
	assert.Equal(t, []string{b, a}, files, "sorted, dot-directories skipped")
}

func TestFindFilesByExtension_MissingRoot(t *testing.T) {
	_, err := fsutil.FindFilesByExtension(filepath.Join(t.TempDir(), "nope"), ".cob")
	assert.Error(t, err)
}
