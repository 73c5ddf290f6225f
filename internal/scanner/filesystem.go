package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// PoolScanner implements Scanner for a flat pool directory on disk
type PoolScanner struct{}

// NewPoolScanner creates a new pool scanner
func NewPoolScanner() *PoolScanner {
	return &PoolScanner{}
}

// Scan lists the package artifacts in a pool directory. The pool is flat:
// subdirectories are not descended into. Detached signatures and files that
// are not Debian packages are skipped. Results are ordered by file name so
// downstream work never depends on directory enumeration order.
func (s *PoolScanner) Scan(ctx context.Context, dir string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool directory: %w", err)
	}

	var artifacts []Artifact
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, ".asc") {
			continue
		}

		path := filepath.Join(dir, name)
		ok, err := IsDebArtifact(path)
		if err != nil {
			logrus.Warnf("Failed to inspect %s: %v", path, err)
			continue
		}
		if !ok {
			logrus.Debugf("Skipping non-package file: %s", name)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, err
		}

		logrus.Debugf("Found package: %s", name)

		artifacts = append(artifacts, Artifact{
			Path: path,
			Name: name,
			Size: info.Size(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name < artifacts[j].Name
	})

	logrus.Infof("Found %d packages in %s", len(artifacts), dir)
	return artifacts, nil
}
