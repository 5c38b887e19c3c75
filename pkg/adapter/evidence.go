package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// evidenceFileMode keeps captured tool output readable by the operator only.
const evidenceFileMode = 0o600

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// EvidenceMasker redacts secrets from evidence before it touches disk.
type EvidenceMasker interface {
	MaskEvidence(content, adapterName string) string
}

// EvidenceWriter persists verbatim tool output under
// <dir>/<adapter>/<safe-target>_<unix-ts>.<ext>. Timestamps are
// nanosecond-resolution so two invocations never collide.
type EvidenceWriter struct {
	dir    string
	masker EvidenceMasker
}

// NewEvidenceWriter creates a writer rooted at dir. masker may be nil
// (masking disabled).
func NewEvidenceWriter(dir string, masker EvidenceMasker) *EvidenceWriter {
	if dir == "" {
		dir = "evidence"
	}
	return &EvidenceWriter{dir: dir, masker: masker}
}

// Dir returns the evidence root directory.
func (w *EvidenceWriter) Dir() string {
	return w.dir
}

// Write persists one piece of evidence and returns its path. The bytes are
// exact apart from configured secret masking.
func (w *EvidenceWriter) Write(adapterName, target, ext string, content []byte) (string, error) {
	if w.masker != nil {
		content = []byte(w.masker.MaskEvidence(string(content), adapterName))
	}

	adapterDir := filepath.Join(w.dir, sanitizePathComponent(adapterName))
	if err := os.MkdirAll(adapterDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create evidence directory: %w", err)
	}

	if ext == "" {
		ext = "txt"
	}
	name := fmt.Sprintf("%s_%d.%s",
		sanitizePathComponent(target),
		time.Now().UnixNano(),
		strings.TrimPrefix(ext, "."))

	path := filepath.Join(adapterDir, name)
	if err := os.WriteFile(path, content, evidenceFileMode); err != nil {
		return "", fmt.Errorf("failed to write evidence file: %w", err)
	}
	return path, nil
}

// sanitizePathComponent reduces a target identifier to filesystem-safe
// characters.
func sanitizePathComponent(s string) string {
	s = unsafePathChars.ReplaceAllString(s, "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "unknown"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
