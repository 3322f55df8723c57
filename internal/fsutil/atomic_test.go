package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "sudoers.d", "rule")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0o640))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestUnder(t *testing.T) {
	assert.Equal(t, "/etc/hosts", Under("", "/etc/hosts"))
	assert.Equal(t, "/tmp/x/etc/hosts", Under("/tmp/x", "/etc/hosts"))
}
