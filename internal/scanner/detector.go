package scanner

import (
	"bytes"
	"os"
	"path/filepath"
)

// Debian packages start with "!<arch>\ndebian"
var debMagic = []byte("!<arch>\ndebian")

// IsDebArtifact reports whether a file is a Debian package, based on magic
// bytes with the file extension as fallback
func IsDebArtifact(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	header := make([]byte, len(debMagic))
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return filepath.Ext(path) == ".deb", nil
	}
	header = header[:n]

	if bytes.HasPrefix(header, debMagic) {
		return true, nil
	}

	return filepath.Ext(path) == ".deb", nil
}
