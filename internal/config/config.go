package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultCodename      = "stable"
	defaultOrigin        = "Debrepo Repository"
	defaultComponent     = "main"
	defaultArchitecture  = "amd64"
	defaultPromptTimeout = time.Minute
	defaultPassphraseEnv = "DEBREPO_PASSPHRASE"
)

// ArchAll is the architecture-independent marker. It is never declared in
// the architecture list; its index is always emitted alongside the declared
// concrete architectures.
const ArchAll = "all"

// Duration wraps time.Duration so it can be decoded from TOML text.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Config contains everything a repository build needs. Values are resolved
// with flag > config file > default precedence by the CLI.
type Config struct {
	// Dir is the repository root: it contains pool/ and receives dists/.
	Dir string `toml:"dir"`

	// Release descriptor fields
	Origin      string `toml:"origin"`
	Label       string `toml:"label"`
	Suite       string `toml:"suite"`
	Codename    string `toml:"codename"`
	Version     string `toml:"version"`
	Description string `toml:"description"`

	// Architectures lists the concrete architectures to index. The first
	// entry is the default architecture that also carries the
	// architecture-independent packages.
	Architectures []string `toml:"architectures"`
	Components    []string `toml:"components"`

	// Signing
	KeyringPath   string `toml:"keyring"`
	Passphrase    string `toml:"passphrase"`
	PassphraseEnv string `toml:"passphrase_env"`
	KeyID         string `toml:"key_id"`
	FallbackKeyID string `toml:"fallback_key_id"`

	// Behavior toggles
	Confirm        bool     `toml:"confirm"`
	PromptTimeout  Duration `toml:"prompt_timeout"`
	SignPackages   bool     `toml:"sign_packages"`
	VerifyPackages bool     `toml:"verify_packages"`
	Bzip2          bool     `toml:"bzip2"`
	Quiet          bool     `toml:"quiet"`

	// Concurrency bounds parallel extraction and signing workers
	Concurrency int `toml:"concurrency"`
}

// New returns a Config with every default filled in
func New() *Config {
	return &Config{
		Codename:      defaultCodename,
		Origin:        defaultOrigin,
		Architectures: []string{defaultArchitecture},
		Components:    []string{defaultComponent},
		PassphraseEnv: defaultPassphraseEnv,
		Confirm:       true,
		PromptTimeout: Duration{defaultPromptTimeout},
		SignPackages:  true,
		Bzip2:         true,
		Concurrency:   runtime.NumCPU(),
	}
}

// Load decodes a TOML file into cfg. Unknown keys are an error.
func Load(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys in %s: %v", path, undecoded)
	}
	return nil
}

// Check validates the configuration and fills derived values
func (c *Config) Check() error {
	if c.Dir == "" {
		return fmt.Errorf("dir is required")
	}
	if c.Codename == "" {
		return fmt.Errorf("codename must not be empty")
	}
	if c.Suite == "" {
		c.Suite = c.Codename
	}
	if c.Label == "" {
		c.Label = c.Origin
	}
	if len(c.Architectures) == 0 {
		return fmt.Errorf("at least one architecture is required")
	}
	seen := make(map[string]bool)
	for _, arch := range c.Architectures {
		if arch == "" {
			return fmt.Errorf("architecture must not be empty")
		}
		if arch == ArchAll {
			return fmt.Errorf("architecture list must be concrete; %q is implied", ArchAll)
		}
		if seen[arch] {
			return fmt.Errorf("duplicate architecture %q", arch)
		}
		seen[arch] = true
	}
	if len(c.Components) == 0 {
		return fmt.Errorf("at least one component is required")
	}
	for _, comp := range c.Components {
		if comp == "" {
			return fmt.Errorf("component must not be empty")
		}
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.NumCPU()
	}
	if c.PromptTimeout.Duration <= 0 {
		c.PromptTimeout = Duration{defaultPromptTimeout}
	}
	return nil
}

// DefaultArch returns the concrete architecture that also carries the
// architecture-independent packages
func (c *Config) DefaultArch() string {
	return c.Architectures[0]
}

// PoolDir returns the pool directory inside the repository root
func (c *Config) PoolDir() string {
	return filepath.Join(c.Dir, "pool")
}

// DistsDir returns the suite's metadata directory
func (c *Config) DistsDir() string {
	return filepath.Join(c.Dir, "dists", c.Suite)
}
