package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/debrepo/debrepo/internal/models"
	"github.com/debrepo/debrepo/internal/scanner"
	"github.com/debrepo/debrepo/internal/utils"
)

const (
	// SummaryFile is where the machine-readable signing record lands,
	// relative to the repository root
	SummaryFile = "signing-summary.json"

	// PublicKeyFile is the exported armored public key, relative to the
	// repository root
	PublicKeyFile = "public.key"
)

// TargetResult records the signing outcome for a single target file
type TargetResult struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Summary is the machine-readable record of one signing run
type Summary struct {
	Identity    string         `json:"identity"`
	KeyID       string         `json:"key_id"`
	Fingerprint string         `json:"fingerprint"`
	Date        time.Time      `json:"date"`
	Release     []TargetResult `json:"release"`
	Packages    []TargetResult `json:"packages,omitempty"`
	Attempted   int            `json:"attempted"`
	Signed      int            `json:"signed"`
}

func (p *Pipeline) runSign(ctx context.Context, artifacts []scanner.Artifact, releasePath string) (*Summary, error) {
	if p.Signer == nil {
		return nil, &models.RepoError{
			Kind: models.ErrSigningUnavailable,
			Err:  fmt.Errorf("no signing capability configured"),
		}
	}
	ident := p.Signer.Identity()

	if p.cfg.Confirm {
		ok, err := p.askConfirmation(ctx, ident)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotConfirmed
		}
	}

	logrus.Infof("Signing as %s (%s)", ident.Name, ident.KeyID)

	if err := p.removeStaleSignatures(); err != nil {
		return nil, err
	}

	summary := &Summary{
		Identity:    ident.Name,
		KeyID:       ident.KeyID,
		Fingerprint: ident.Fingerprint,
		Date:        p.Now().UTC(),
	}

	// The release signatures are mandatory; any failure here aborts the run
	releaseData, err := os.ReadFile(releasePath)
	if err != nil {
		return nil, &models.RepoError{Kind: models.ErrSigningFailed, Artifact: "Release", Err: err}
	}

	distsDir := p.cfg.DistsDir()
	relBase := path.Join("dists", p.cfg.Suite)

	detached, err := p.Signer.SignDetached(releaseData)
	if err != nil {
		return nil, &models.RepoError{Kind: models.ErrSigningFailed, Artifact: "Release.gpg", Err: err}
	}
	if err := utils.WriteFile(filepath.Join(distsDir, "Release.gpg"), detached, 0644); err != nil {
		return nil, &models.RepoError{Kind: models.ErrSigningFailed, Artifact: "Release.gpg", Err: err}
	}
	summary.Release = append(summary.Release, TargetResult{
		Path: path.Join(relBase, "Release.gpg"), Kind: "detached", OK: true,
	})
	logrus.Debug("Wrote Release.gpg")

	inline, err := p.Signer.SignCleartext(releaseData)
	if err != nil {
		return nil, &models.RepoError{Kind: models.ErrSigningFailed, Artifact: "InRelease", Err: err}
	}
	if err := utils.WriteFile(filepath.Join(distsDir, "InRelease"), inline, 0644); err != nil {
		return nil, &models.RepoError{Kind: models.ErrSigningFailed, Artifact: "InRelease", Err: err}
	}
	summary.Release = append(summary.Release, TargetResult{
		Path: path.Join(relBase, "InRelease"), Kind: "inline", OK: true,
	})
	logrus.Debug("Wrote InRelease")

	// Package signatures are advisory; failures are recorded and skipped
	if p.cfg.SignPackages {
		results, err := p.signPackages(ctx, artifacts)
		if err != nil {
			return nil, err
		}
		summary.Packages = results
		summary.Attempted = len(results)
		for _, r := range results {
			if r.OK {
				summary.Signed++
			}
		}
		logrus.Infof("Signed %d/%d packages", summary.Signed, summary.Attempted)
	}

	if err := p.writeSummary(summary); err != nil {
		return nil, err
	}
	if err := p.exportPublicKey(); err != nil {
		return nil, err
	}

	return summary, nil
}

// removeStaleSignatures deletes every signature a previous run may have
// left behind, including orphaned pool signatures whose package is gone
func (p *Pipeline) removeStaleSignatures() error {
	distsDir := p.cfg.DistsDir()
	for _, name := range []string{"InRelease", "Release.gpg"} {
		if err := utils.RemoveIfExists(filepath.Join(distsDir, name)); err != nil {
			return &models.RepoError{Kind: models.ErrFileOp, Artifact: name, Err: err}
		}
	}

	matches, err := filepath.Glob(filepath.Join(p.cfg.PoolDir(), "*.asc"))
	if err != nil {
		return &models.RepoError{Kind: models.ErrFileOp, Err: err}
	}
	for _, match := range matches {
		if err := utils.RemoveIfExists(match); err != nil {
			return &models.RepoError{Kind: models.ErrFileOp, Artifact: filepath.Base(match), Err: err}
		}
	}
	return nil
}

func (p *Pipeline) signPackages(ctx context.Context, artifacts []scanner.Artifact) ([]TargetResult, error) {
	results := make([]TargetResult, len(artifacts))

	var bar *pb.ProgressBar
	if !p.cfg.Quiet {
		bar = pb.New(len(artifacts))
		bar.SetWriter(os.Stderr)
		bar.Start()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i, artifact := range artifacts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result := TargetResult{Path: path.Join("pool", artifact.Name), Kind: "detached"}
			if err := p.signArtifact(artifact); err != nil {
				logrus.Warnf("Failed to sign %s: %v", artifact.Name, err)
				result.Error = err.Error()
			} else {
				result.OK = true
			}
			results[i] = result
			if bar != nil {
				bar.Increment()
			}
			return nil
		})
	}

	err := g.Wait()
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) signArtifact(artifact scanner.Artifact) error {
	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		return err
	}
	sig, err := p.Signer.SignDetached(data)
	if err != nil {
		return err
	}
	return utils.WriteFile(artifact.Path+".asc", sig, 0644)
}

func (p *Pipeline) writeSummary(summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return &models.RepoError{Kind: models.ErrFileOp, Artifact: SummaryFile, Err: err}
	}
	data = append(data, '\n')
	if err := utils.WriteFile(filepath.Join(p.cfg.Dir, SummaryFile), data, 0644); err != nil {
		return &models.RepoError{Kind: models.ErrFileOp, Artifact: SummaryFile, Err: err}
	}
	return nil
}

func (p *Pipeline) exportPublicKey() error {
	pub, err := p.Signer.GetPublicKey()
	if err != nil {
		return &models.RepoError{Kind: models.ErrFileOp, Artifact: PublicKeyFile, Err: err}
	}
	if err := utils.WriteFile(filepath.Join(p.cfg.Dir, PublicKeyFile), pub, 0644); err != nil {
		return &models.RepoError{Kind: models.ErrFileOp, Artifact: PublicKeyFile, Err: err}
	}
	return nil
}
