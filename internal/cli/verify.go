package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/debrepo/debrepo/internal/config"
	"github.com/debrepo/debrepo/internal/models"
	"github.com/debrepo/debrepo/internal/pipeline"
	"github.com/debrepo/debrepo/internal/signer"
)

// NewVerifyCmd creates the verify command
func NewVerifyCmd() *cobra.Command {
	var dir string
	var keyPath string
	var suite string
	var verifyPackages bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the signatures of an existing repository tree",
		Long: `Checks the detached Release.gpg and the inline InRelease
independently, and optionally every detached pool signature, using only
the public half of the signing key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			cfg.Dir = dir
			if suite != "" {
				cfg.Suite = suite
			}
			cfg.VerifyPackages = verifyPackages
			if err := cfg.Check(); err != nil {
				return err
			}

			if keyPath == "" {
				keyPath = filepath.Join(cfg.Dir, pipeline.PublicKeyFile)
			}
			armored, err := os.ReadFile(keyPath)
			if err != nil {
				return &models.RepoError{
					Kind: models.ErrVerificationFailed,
					Err:  fmt.Errorf("failed to read public key: %w", err),
				}
			}
			v, err := signer.NewPGPVerifier(armored)
			if err != nil {
				return &models.RepoError{Kind: models.ErrVerificationFailed, Err: err}
			}

			logrus.Infof("Verifying with key %s", v.KeyID())
			if err := pipeline.VerifyTree(cmd.Context(), cfg, v); err != nil {
				return err
			}

			logrus.Info("All signatures verified")
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Repository root directory")
	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "Armored public key (defaults to <dir>/public.key)")
	cmd.Flags().StringVar(&suite, "suite", "", "Suite whose release signatures to check")
	cmd.Flags().BoolVar(&verifyPackages, "packages", false, "Also check detached pool signatures")

	return cmd
}
