package index

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/debrepo/debrepo/internal/config"
	"github.com/debrepo/debrepo/internal/extractor"
	"github.com/debrepo/debrepo/internal/models"
	"github.com/debrepo/debrepo/internal/scanner"
	"github.com/debrepo/debrepo/internal/utils"
)

// Builder produces the per-architecture package indexes
type Builder struct {
	cfg *config.Config
	ex  extractor.Extractor
}

// NewBuilder creates an index builder
func NewBuilder(cfg *config.Config, ex extractor.Extractor) *Builder {
	return &Builder{cfg: cfg, ex: ex}
}

// Encodings returns the compressed encodings written next to each Packages
// file. Gzip is always present; bzip2 only while its toggle is on.
func Encodings(cfg *config.Config) []utils.Encoding {
	encodings := []utils.Encoding{utils.EncodingGzip}
	if cfg.Bzip2 {
		encodings = append(encodings, utils.EncodingBzip2)
	}
	return encodings
}

// EmittedArches returns the architectures that get an index: the declared
// concrete set in order, then the architecture-independent one
func EmittedArches(cfg *config.Config) []string {
	arches := make([]string, 0, len(cfg.Architectures)+1)
	arches = append(arches, cfg.Architectures...)
	arches = append(arches, config.ArchAll)
	return arches
}

// ArtifactPaths returns every index file a build emits, relative to the
// suite directory, in canonical order. The release descriptor checksums
// exactly this list.
func ArtifactPaths(cfg *config.Config) []string {
	var paths []string
	for _, comp := range cfg.Components {
		for _, arch := range EmittedArches(cfg) {
			base := path.Join(comp, "binary-"+arch, "Packages")
			paths = append(paths, base)
			for _, enc := range Encodings(cfg) {
				paths = append(paths, base+enc.Extension())
			}
		}
	}
	return paths
}

// Build extracts metadata from the pool artifacts and writes the index
// files for every emitted architecture. It returns the extracted packages
// in index order.
func (b *Builder) Build(ctx context.Context, artifacts []scanner.Artifact) ([]models.Package, error) {
	logrus.Info("Building package indexes...")

	packages, err := b.extract(ctx, artifacts)
	if err != nil {
		return nil, err
	}

	for _, identity := range DuplicateIdentities(packages) {
		logrus.Warnf("Duplicate package %s: multiple pool files share one index slot", identity)
	}

	byArch, err := b.groupByArch(packages)
	if err != nil {
		return nil, err
	}

	// Render each architecture once, then fan the writes out
	rendered := make(map[string][]byte)
	counts := make(map[string]int)
	for _, arch := range EmittedArches(b.cfg) {
		pkgs := append([]models.Package(nil), byArch[arch]...)
		rendered[arch] = RenderPackages(pkgs)
		counts[arch] = len(pkgs)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Concurrency)

	for _, comp := range b.cfg.Components {
		if err := utils.ClearDir(filepath.Join(b.cfg.DistsDir(), comp)); err != nil {
			return nil, &models.RepoError{Kind: models.ErrFileOp, Err: err}
		}
		for _, arch := range EmittedArches(b.cfg) {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := b.writeArchIndex(comp, arch, rendered[arch]); err != nil {
					return err
				}
				logrus.Infof("Generated %s/binary-%s index (%d packages)", comp, arch, counts[arch])
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	SortPackages(packages)
	return packages, nil
}

// extract runs metadata extraction over the pool with a bounded worker
// group. Results land in a slice slot per artifact, so the merge does not
// depend on completion order.
func (b *Builder) extract(ctx context.Context, artifacts []scanner.Artifact) ([]models.Package, error) {
	packages := make([]models.Package, len(artifacts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Concurrency)

	for i, artifact := range artifacts {
		g.Go(func() error {
			logrus.Debugf("Extracting metadata: %s", artifact.Name)
			pkg, err := b.ex.Extract(gctx, artifact.Path)
			if err != nil {
				return &models.RepoError{
					Kind:     models.ErrMetadataExtract,
					Artifact: artifact.Name,
					Err:      err,
				}
			}
			pkg.Filename = path.Join("pool", artifact.Name)
			packages[i] = *pkg
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return packages, nil
}

// groupByArch buckets packages per emitted architecture. Packages marked
// architecture-independent are carried by the default concrete
// architecture and by their own index, and by no other.
func (b *Builder) groupByArch(packages []models.Package) (map[string][]models.Package, error) {
	declared := make(map[string]bool, len(b.cfg.Architectures))
	for _, arch := range b.cfg.Architectures {
		declared[arch] = true
	}

	byArch := make(map[string][]models.Package)
	for _, pkg := range packages {
		arch := pkg.Architecture
		if arch != config.ArchAll && !declared[arch] {
			return nil, &models.RepoError{
				Kind:     models.ErrMetadataExtract,
				Artifact: pkg.Filename,
				Err:      fmt.Errorf("architecture %q is not in the declared set", arch),
			}
		}
		byArch[arch] = append(byArch[arch], pkg)
	}

	byArch[b.cfg.DefaultArch()] = append(byArch[b.cfg.DefaultArch()], byArch[config.ArchAll]...)

	return byArch, nil
}

// writeArchIndex writes Packages and its compressed copies for one
// component and architecture
func (b *Builder) writeArchIndex(comp, arch string, data []byte) error {
	dir := filepath.Join(b.cfg.DistsDir(), comp, "binary-"+arch)

	if err := utils.WriteFile(filepath.Join(dir, "Packages"), data, 0644); err != nil {
		return &models.RepoError{Kind: models.ErrFileOp, Err: fmt.Errorf("failed to write Packages: %w", err)}
	}

	for _, enc := range Encodings(b.cfg) {
		compressed, err := enc.Compress(data)
		if err != nil {
			return &models.RepoError{Kind: models.ErrFileOp, Err: fmt.Errorf("failed to compress Packages%s: %w", enc.Extension(), err)}
		}
		if err := utils.WriteFile(filepath.Join(dir, "Packages"+enc.Extension()), compressed, 0644); err != nil {
			return &models.RepoError{Kind: models.ErrFileOp, Err: fmt.Errorf("failed to write Packages%s: %w", enc.Extension(), err)}
		}
	}

	return nil
}
