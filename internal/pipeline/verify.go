package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/debrepo/debrepo/internal/config"
	"github.com/debrepo/debrepo/internal/models"
	"github.com/debrepo/debrepo/internal/signer"
)

func (p *Pipeline) runVerify(ctx context.Context) error {
	v, err := p.verifier()
	if err != nil {
		return err
	}
	return VerifyTree(ctx, p.cfg, v)
}

func (p *Pipeline) verifier() (signer.Verifier, error) {
	if p.Verifier != nil {
		return p.Verifier, nil
	}
	pub, err := p.Signer.GetPublicKey()
	if err != nil {
		return nil, &models.RepoError{Kind: models.ErrVerificationFailed, Err: err}
	}
	v, err := signer.NewPGPVerifier(pub)
	if err != nil {
		return nil, &models.RepoError{Kind: models.ErrVerificationFailed, Err: err}
	}
	return v, nil
}

// VerifyTree checks every signature in a repository tree using only
// public key material. Both release signatures are verified
// independently; any failure is fatal.
func VerifyTree(ctx context.Context, cfg *config.Config, v signer.Verifier) error {
	distsDir := cfg.DistsDir()

	releaseData, err := os.ReadFile(filepath.Join(distsDir, "Release"))
	if err != nil {
		return &models.RepoError{Kind: models.ErrVerificationFailed, Artifact: "Release", Err: err}
	}

	sigData, err := os.ReadFile(filepath.Join(distsDir, "Release.gpg"))
	if err != nil {
		return &models.RepoError{Kind: models.ErrVerificationFailed, Artifact: "Release.gpg", Err: err}
	}
	if err := v.VerifyDetached(releaseData, sigData); err != nil {
		return &models.RepoError{Kind: models.ErrVerificationFailed, Artifact: "Release.gpg", Err: err}
	}
	logrus.Info("Release.gpg signature verified")

	inReleaseData, err := os.ReadFile(filepath.Join(distsDir, "InRelease"))
	if err != nil {
		return &models.RepoError{Kind: models.ErrVerificationFailed, Artifact: "InRelease", Err: err}
	}
	if err := v.VerifyCleartext(inReleaseData); err != nil {
		return &models.RepoError{Kind: models.ErrVerificationFailed, Artifact: "InRelease", Err: err}
	}
	logrus.Info("InRelease signature verified")

	if cfg.VerifyPackages {
		if err := verifyPoolSignatures(ctx, cfg, v); err != nil {
			return err
		}
	}
	return nil
}

// verifyPoolSignatures checks each detached pool signature against its
// package. Packages without a signature are skipped.
func verifyPoolSignatures(ctx context.Context, cfg *config.Config, v signer.Verifier) error {
	matches, err := filepath.Glob(filepath.Join(cfg.PoolDir(), "*.asc"))
	if err != nil {
		return &models.RepoError{Kind: models.ErrVerificationFailed, Err: err}
	}
	sort.Strings(matches)

	for _, sigPath := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := filepath.Base(sigPath)

		sig, err := os.ReadFile(sigPath)
		if err != nil {
			return &models.RepoError{Kind: models.ErrVerificationFailed, Artifact: name, Err: err}
		}
		data, err := os.ReadFile(strings.TrimSuffix(sigPath, ".asc"))
		if err != nil {
			return &models.RepoError{Kind: models.ErrVerificationFailed, Artifact: name, Err: err}
		}
		if err := v.VerifyDetached(data, sig); err != nil {
			return &models.RepoError{Kind: models.ErrVerificationFailed, Artifact: name, Err: err}
		}
		logrus.Debugf("Verified %s", name)
	}

	logrus.Infof("Verified %d package signatures", len(matches))
	return nil
}
