package release

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/debrepo/debrepo/internal/config"
	"github.com/debrepo/debrepo/internal/index"
	"github.com/debrepo/debrepo/internal/models"
	"github.com/debrepo/debrepo/internal/utils"
)

// fileEntry is one row of the release checksum table
type fileEntry struct {
	path     string
	checksum *utils.Checksum
}

// Builder produces the suite's Release descriptor
type Builder struct {
	cfg *config.Config
}

// NewBuilder creates a release builder
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// Build checksums every expected index file from its final on-disk bytes
// and writes the Release file. It returns the path of the written file.
func (b *Builder) Build(now time.Time) (string, error) {
	logrus.Info("Generating Release file...")

	entries, err := b.checksumIndexFiles()
	if err != nil {
		return "", err
	}

	releasePath := filepath.Join(b.cfg.DistsDir(), "Release")
	data := b.render(entries, now)
	if err := utils.WriteFile(releasePath, data, 0644); err != nil {
		return "", &models.RepoError{Kind: models.ErrFileOp, Err: fmt.Errorf("failed to write Release: %w", err)}
	}

	return releasePath, nil
}

// checksumIndexFiles builds the checksum table over the index artifacts,
// in their canonical order. A missing file means the metadata tree does
// not match what the index stage should have produced.
func (b *Builder) checksumIndexFiles() ([]fileEntry, error) {
	var entries []fileEntry

	for _, rel := range index.ArtifactPaths(b.cfg) {
		full := filepath.Join(b.cfg.DistsDir(), filepath.FromSlash(rel))
		checksum, err := utils.CalculateChecksums(full)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &models.RepoError{
					Kind:     models.ErrIndexInconsistent,
					Artifact: rel,
					Err:      fmt.Errorf("expected index file is missing"),
				}
			}
			return nil, &models.RepoError{
				Kind:     models.ErrIndexInconsistent,
				Artifact: rel,
				Err:      err,
			}
		}

		entries = append(entries, fileEntry{path: rel, checksum: checksum})
	}

	return entries, nil
}

// render serializes the release descriptor with its three checksum
// sections
func (b *Builder) render(entries []fileEntry, now time.Time) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Origin: %s\n", b.cfg.Origin)
	fmt.Fprintf(&buf, "Label: %s\n", b.cfg.Label)
	fmt.Fprintf(&buf, "Suite: %s\n", b.cfg.Suite)
	fmt.Fprintf(&buf, "Codename: %s\n", b.cfg.Codename)
	if b.cfg.Version != "" {
		fmt.Fprintf(&buf, "Version: %s\n", b.cfg.Version)
	}
	fmt.Fprintf(&buf, "Date: %s\n", now.UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Architectures: %s\n", strings.Join(index.EmittedArches(b.cfg), " "))
	fmt.Fprintf(&buf, "Components: %s\n", strings.Join(b.cfg.Components, " "))
	if b.cfg.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", b.cfg.Description)
	}

	buf.WriteString("MD5Sum:\n")
	for _, entry := range entries {
		fmt.Fprintf(&buf, " %s %d %s\n", entry.checksum.MD5, entry.checksum.Size, entry.path)
	}

	buf.WriteString("SHA1:\n")
	for _, entry := range entries {
		fmt.Fprintf(&buf, " %s %d %s\n", entry.checksum.SHA1, entry.checksum.Size, entry.path)
	}

	buf.WriteString("SHA256:\n")
	for _, entry := range entries {
		fmt.Fprintf(&buf, " %s %d %s\n", entry.checksum.SHA256, entry.checksum.Size, entry.path)
	}

	return buf.Bytes()
}
