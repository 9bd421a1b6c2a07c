package platform

import (
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, key)
	require.NoError(t, err)
	return key
}

func TestNewFileAdapterRequires32ByteKey(t *testing.T) {
	_, err := NewFileAdapter("/tmp/secure.json", []byte("short"))
	assert.ErrorIs(t, err, ErrInvalidSecureKey)

	_, err = NewFileAdapter("/tmp/secure.json", nil)
	assert.ErrorIs(t, err, ErrInvalidSecureKey)
}

func TestFileAdapterFileOperations(t *testing.T) {
	dir := t.TempDir()
	fa, err := NewFileAdapter(filepath.Join(dir, "secure.json"), testKey(t))
	require.NoError(t, err)

	path := filepath.Join(dir, "nested", "model.bin")
	assert.False(t, fa.FileExists(path))

	require.True(t, fa.FileWrite(path, []byte("weights")))
	assert.True(t, fa.FileExists(path))

	data, err := fa.FileRead(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("weights"), data)

	assert.True(t, fa.FileDelete(path))
	assert.False(t, fa.FileExists(path))
	assert.False(t, fa.FileDelete(path), "deleting a missing file reports failure")
}

func TestFileAdapterSecureStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "secure.json")
	key := testKey(t)

	fa, err := NewFileAdapter(storePath, key)
	require.NoError(t, err)

	require.True(t, fa.SecureSet("api_token", "tok_12345"))
	value, err := fa.SecureGet("api_token")
	require.NoError(t, err)
	assert.Equal(t, "tok_12345", value)

	// Values are sealed at rest, never stored in the clear.
	raw, err := os.ReadFile(storePath)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "tok_12345")

	// A second adapter with the same key opens the persisted value.
	fa2, err := NewFileAdapter(storePath, key)
	require.NoError(t, err)
	value, err = fa2.SecureGet("api_token")
	require.NoError(t, err)
	assert.Equal(t, "tok_12345", value)

	// The wrong key cannot open it.
	fa3, err := NewFileAdapter(storePath, testKey(t))
	require.NoError(t, err)
	_, err = fa3.SecureGet("api_token")
	assert.Error(t, err)
}

func TestFileAdapterSecureDelete(t *testing.T) {
	dir := t.TempDir()
	fa, err := NewFileAdapter(filepath.Join(dir, "secure.json"), testKey(t))
	require.NoError(t, err)

	require.True(t, fa.SecureSet("k", "v"))
	assert.True(t, fa.SecureDelete("k"))

	_, err = fa.SecureGet("k")
	assert.ErrorIs(t, err, ErrSecureKeyNotFound)

	assert.False(t, fa.SecureDelete("k"), "deleting a missing key reports failure")
}

func TestFileAdapterCorruptStoreStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "secure.json")
	require.NoError(t, os.WriteFile(storePath, []byte("{not json"), 0o600))

	fa, err := NewFileAdapter(storePath, testKey(t))
	require.NoError(t, err)

	_, err = fa.SecureGet("anything")
	assert.ErrorIs(t, err, ErrSecureKeyNotFound)
}
