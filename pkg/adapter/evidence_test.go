package adapter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upperMasker struct{}

func (upperMasker) MaskEvidence(content, _ string) string {
	return strings.ToUpper(content)
}

func TestEvidenceWriterWrite(t *testing.T) {
	dir := t.TempDir()
	w := NewEvidenceWriter(dir, nil)

	path, err := w.Write("nmap", "192.168.1.50", "txt", []byte("PORT   STATE SERVICE\n22/tcp open  ssh\n"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, filepath.Join(dir, "nmap")))
	assert.Contains(t, filepath.Base(path), "192.168.1.50")
	assert.True(t, strings.HasSuffix(path, ".txt"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PORT   STATE SERVICE\n22/tcp open  ssh\n", string(content))
}

func TestEvidenceWriterUniquePaths(t *testing.T) {
	w := NewEvidenceWriter(t.TempDir(), nil)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		path, err := w.Write("whois", "example.com", "txt", []byte("data"))
		require.NoError(t, err)
		assert.False(t, seen[path], "evidence path must be unique: %s", path)
		seen[path] = true
	}
}

func TestEvidenceWriterSanitizesTarget(t *testing.T) {
	w := NewEvidenceWriter(t.TempDir(), nil)

	path, err := w.Write("http_probe", "https://example.com/a?b=c", "json", []byte("{}"))
	require.NoError(t, err)

	base := filepath.Base(path)
	assert.NotContains(t, base, "/")
	assert.NotContains(t, base, "?")
	assert.NotContains(t, base, ":")
}

func TestEvidenceWriterAppliesMasking(t *testing.T) {
	w := NewEvidenceWriter(t.TempDir(), upperMasker{})

	path, err := w.Write("dig", "example.com", "txt", []byte("secret"))
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "SECRET", string(content))
}

func TestEvidenceWriterEmptyTarget(t *testing.T) {
	w := NewEvidenceWriter(t.TempDir(), nil)

	path, err := w.Write("public_ip", "", "txt", []byte("1.2.3.4"))
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "unknown")
}
