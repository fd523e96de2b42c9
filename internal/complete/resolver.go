package complete

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// VirtualRoot is the reserved name of the synthetic root file handed to the
// engine. Its contents always come from Cache.Install, never from storage.
const VirtualRoot = "lib.rs"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrInvalidEncoding is returned when a source file is not valid UTF-8.
var ErrInvalidEncoding = errors.New("source is not valid UTF-8")

// FileLoader resolves a file path to its text.
type FileLoader interface {
	LoadFile(path string) (string, error)
}

// FileLoaderFunc adapts a function to FileLoader.
type FileLoaderFunc func(path string) (string, error)

func (f FileLoaderFunc) LoadFile(path string) (string, error) { return f(path) }

// Resolver loads source files from the local filesystem.
type Resolver struct{}

// LoadFile returns empty text for VirtualRoot without touching storage and
// otherwise reads and decodes the file.
func (Resolver) LoadFile(path string) (string, error) {
	if IsVirtualRoot(path) {
		return "", nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", path, err)
	}
	text, err := DecodeSource(raw)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", path, err)
	}
	return text, nil
}

// IsVirtualRoot reports whether path names the synthetic root file.
func IsVirtualRoot(path string) bool {
	return filepath.Clean(path) == VirtualRoot
}

// DecodeSource drops a leading UTF-8 byte-order mark and validates the rest
// as UTF-8.
func DecodeSource(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return "", ErrInvalidEncoding
	}
	return string(raw), nil
}
