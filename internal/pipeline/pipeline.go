package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/debrepo/debrepo/internal/config"
	"github.com/debrepo/debrepo/internal/extractor"
	"github.com/debrepo/debrepo/internal/index"
	"github.com/debrepo/debrepo/internal/models"
	"github.com/debrepo/debrepo/internal/release"
	"github.com/debrepo/debrepo/internal/scanner"
	"github.com/debrepo/debrepo/internal/signer"
)

// ErrNotConfirmed is returned when the operator declines the signing
// confirmation. The tree is left untouched by the signing stage.
var ErrNotConfirmed = errors.New("signing not confirmed")

// Pipeline runs the four build stages over one repository tree:
// index, release, sign, verify. A failed stage stops the run.
type Pipeline struct {
	cfg *config.Config

	Scanner   scanner.Scanner
	Extractor extractor.Extractor
	Signer    signer.Signer

	// Verifier overrides the default verifier built from the signer's
	// public key
	Verifier signer.Verifier

	// Confirm supplies the pre-flight signing decision
	Confirm Confirmer

	// Now provides the release timestamp
	Now func() time.Time
}

// New creates a pipeline with the real scanner and extractor wired in
func New(cfg *config.Config, s signer.Signer, confirm Confirmer) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		Scanner:   scanner.NewPoolScanner(),
		Extractor: extractor.NewDebExtractor(),
		Signer:    s,
		Confirm:   confirm,
		Now:       time.Now,
	}
}

// Run executes all stages in order and returns the signing summary
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	// Stage 1: package indexes
	artifacts, err := p.Scanner.Scan(ctx, p.cfg.PoolDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &models.RepoError{Kind: models.ErrEmptyPool, Err: err}
		}
		return nil, &models.RepoError{Kind: models.ErrFileOp, Err: err}
	}
	if len(artifacts) == 0 {
		return nil, &models.RepoError{
			Kind: models.ErrEmptyPool,
			Err:  fmt.Errorf("no package artifacts in %s", p.cfg.PoolDir()),
		}
	}

	packages, err := index.NewBuilder(p.cfg, p.Extractor).Build(ctx, artifacts)
	if err != nil {
		return nil, err
	}
	logrus.Infof("Indexed %d packages", len(packages))

	// Stage 2: release descriptor
	releasePath, err := release.NewBuilder(p.cfg).Build(p.Now())
	if err != nil {
		return nil, err
	}

	// Stage 3: signatures
	summary, err := p.runSign(ctx, artifacts, releasePath)
	if err != nil {
		return nil, err
	}

	// Stage 4: verification
	if err := p.runVerify(ctx); err != nil {
		return nil, err
	}

	logrus.Info("Repository build completed successfully")
	return summary, nil
}
