// Package output writes build artifacts. Every file is replaced atomically so
// the development server never serves a half-written page or stylesheet.
package output

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	folioerrors "github.com/conneroisu/folio/internal/errors"
)

// WriteFile atomically replaces path with data, creating parent directories.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return folioerrors.NewIOError(folioerrors.ErrCodeWriteFailed, "cannot create output directory", err).
			WithFile(path)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return folioerrors.NewIOError(folioerrors.ErrCodeWriteFailed, "cannot write output file", err).
			WithFile(path)
	}

	return nil
}

// WriteString is WriteFile for string content.
func WriteString(path, data string) error {
	return WriteFile(path, []byte(data))
}
