package cli

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/debrepo/debrepo/internal/config"
	"github.com/debrepo/debrepo/internal/models"
	"github.com/debrepo/debrepo/internal/pipeline"
	"github.com/debrepo/debrepo/internal/signer"
)

// NewBuildCmd creates the build command
func NewBuildCmd() *cobra.Command {
	opts := config.New()
	var configPath string
	var promptTimeout time.Duration
	var yes bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build, sign and verify a repository tree",
		Long: `Scans <dir>/pool for .deb packages and builds the repository
metadata under <dir>/dists: per-architecture Packages indexes with
compressed variants, a Release descriptor carrying MD5, SHA-1 and
SHA-256 checksums, and the Release.gpg and InRelease signatures.

Settings come from an optional TOML configuration file; flags given on
the command line override it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			if configPath != "" {
				if err := config.Load(configPath, cfg); err != nil {
					return err
				}
			}
			applyBuildFlags(cmd, cfg, opts, promptTimeout)
			if yes {
				cfg.Confirm = false
			}
			if err := cfg.Check(); err != nil {
				return err
			}

			logrus.Info("Starting repository build...")
			logrus.Debugf("Configuration: %+v", cfg)

			return runBuild(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()

	// Input/output flags
	flags.StringVarP(&opts.Dir, "dir", "d", "", "Repository root directory (packages go in <dir>/pool)")
	flags.StringVarP(&configPath, "config", "c", "", "Path to a TOML configuration file")

	// Repository metadata flags
	flags.StringVar(&opts.Origin, "origin", opts.Origin, "Repository origin name")
	flags.StringVar(&opts.Label, "label", "", "Repository label (defaults to origin)")
	flags.StringVar(&opts.Codename, "codename", opts.Codename, "Repository codename")
	flags.StringVar(&opts.Suite, "suite", "", "Repository suite (defaults to codename)")
	flags.StringVar(&opts.Version, "version", "", "Repository version string")
	flags.StringVar(&opts.Description, "description", "", "Repository description")
	flags.StringSliceVar(&opts.Architectures, "arch", opts.Architectures, "Architectures to index")
	flags.StringSliceVar(&opts.Components, "components", opts.Components, "Components to publish")

	// Signing flags
	flags.StringVarP(&opts.KeyringPath, "keyring", "k", "", "Path to the private keyring")
	flags.StringVar(&opts.KeyID, "key-id", "", "Signing key selector (fingerprint suffix or name substring)")
	flags.StringVar(&opts.FallbackKeyID, "fallback-key-id", "", "Selector tried when --key-id is not given")
	flags.StringVarP(&opts.Passphrase, "passphrase", "p", "", "Key passphrase")
	flags.StringVar(&opts.PassphraseEnv, "passphrase-env", opts.PassphraseEnv, "Environment variable holding the key passphrase")
	flags.BoolVarP(&yes, "yes", "y", false, "Skip the signing confirmation prompt")
	flags.DurationVar(&promptTimeout, "prompt-timeout", opts.PromptTimeout.Duration, "How long to wait for the confirmation prompt")
	flags.BoolVar(&opts.SignPackages, "sign-packages", opts.SignPackages, "Write a detached signature next to each package")
	flags.BoolVar(&opts.VerifyPackages, "verify-packages", opts.VerifyPackages, "Verify the per-package signatures after signing")

	// Output flags
	flags.BoolVar(&opts.Bzip2, "bzip2", opts.Bzip2, "Also write bzip2-compressed indexes")
	flags.BoolVarP(&opts.Quiet, "quiet", "q", false, "Suppress the progress bar")
	flags.IntVar(&opts.Concurrency, "concurrency", 0, "Number of parallel workers (defaults to the CPU count)")

	return cmd
}

// applyBuildFlags overlays the flags the user actually set onto the
// configuration, so file settings survive unless overridden
func applyBuildFlags(cmd *cobra.Command, cfg, opts *config.Config, promptTimeout time.Duration) {
	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}

	set("dir", func() { cfg.Dir = opts.Dir })
	set("origin", func() { cfg.Origin = opts.Origin })
	set("label", func() { cfg.Label = opts.Label })
	set("codename", func() { cfg.Codename = opts.Codename })
	set("suite", func() { cfg.Suite = opts.Suite })
	set("version", func() { cfg.Version = opts.Version })
	set("description", func() { cfg.Description = opts.Description })
	set("arch", func() { cfg.Architectures = opts.Architectures })
	set("components", func() { cfg.Components = opts.Components })
	set("keyring", func() { cfg.KeyringPath = opts.KeyringPath })
	set("key-id", func() { cfg.KeyID = opts.KeyID })
	set("fallback-key-id", func() { cfg.FallbackKeyID = opts.FallbackKeyID })
	set("passphrase", func() { cfg.Passphrase = opts.Passphrase })
	set("passphrase-env", func() { cfg.PassphraseEnv = opts.PassphraseEnv })
	set("prompt-timeout", func() { cfg.PromptTimeout = config.Duration{Duration: promptTimeout} })
	set("sign-packages", func() { cfg.SignPackages = opts.SignPackages })
	set("verify-packages", func() { cfg.VerifyPackages = opts.VerifyPackages })
	set("bzip2", func() { cfg.Bzip2 = opts.Bzip2 })
	set("quiet", func() { cfg.Quiet = opts.Quiet })
	set("concurrency", func() { cfg.Concurrency = opts.Concurrency })
}

func runBuild(ctx context.Context, cfg *config.Config) error {
	sgn, err := initSigner(cfg)
	if err != nil {
		return err
	}

	confirm := pipeline.AssumeYes
	if cfg.Confirm {
		confirm = terminalConfirmer{in: os.Stdin, out: os.Stderr}
	}

	p := pipeline.New(cfg, sgn, confirm)
	if _, err := p.Run(ctx); err != nil {
		return err
	}

	logrus.Infof("Repository root: %s", cfg.Dir)
	return nil
}

func initSigner(cfg *config.Config) (signer.Signer, error) {
	entities, err := signer.LoadKeyring(cfg.KeyringPath)
	if err != nil {
		return nil, &models.RepoError{Kind: models.ErrSigningUnavailable, Err: err}
	}

	entity, err := signer.SelectIdentity(entities, cfg.KeyID, cfg.FallbackKeyID)
	if err != nil {
		return nil, &models.RepoError{Kind: models.ErrSigningIdentity, Err: err}
	}

	passphrase := cfg.Passphrase
	if passphrase == "" && cfg.PassphraseEnv != "" {
		passphrase = os.Getenv(cfg.PassphraseEnv)
	}

	sgn, err := signer.NewGPGSigner(entity, passphrase)
	if err != nil {
		return nil, &models.RepoError{Kind: models.ErrSigningUnavailable, Err: err}
	}

	logrus.Info("GPG signer initialized")
	return sgn, nil
}
