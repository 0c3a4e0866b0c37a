package seedfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunthaler/mediatester/internal/prng"
	"github.com/brunthaler/mediatester/internal/seedfile"
)

func writeSeed(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, n), 0o600))
	return path
}

func TestLoadRejectsEmptyFile(t *testing.T) {
	_, err := seedfile.Load(writeSeed(t, 0))
	require.Error(t, err)
}

func TestLoadRejectsOversizedFile(t *testing.T) {
	_, err := seedfile.Load(writeSeed(t, prng.MaxKeyLen+1))
	require.Error(t, err)
}

func TestLoadAcceptsBoundaries(t *testing.T) {
	key, err := seedfile.Load(writeSeed(t, 1))
	require.NoError(t, err)
	assert.Len(t, key, 1)

	key, err = seedfile.Load(writeSeed(t, prng.MaxKeyLen))
	require.NoError(t, err)
	assert.Len(t, key, prng.MaxKeyLen)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := seedfile.Load(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}
