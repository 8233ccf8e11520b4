package project

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

var (
	// ErrManifest wraps TOML syntax and IO failures.
	ErrManifest = errors.New("malformed manifest")
	// ErrUnknownKey marks keys the config schema does not define.
	ErrUnknownKey = errors.New("unknown key")
	// ErrBadValue marks defined keys holding unsupported values.
	ErrBadValue = errors.New("invalid value")
)

// WarningsConfig gates the warning families and their exemption prefix.
type WarningsConfig struct {
	Unused      bool   `toml:"unused"`
	DeadStore   bool   `toml:"dead_store"`
	AllowPrefix string `toml:"allow_prefix"`
}

// OutputConfig controls rendering defaults.
type OutputConfig struct {
	MaxDiagnostics int    `toml:"max_diagnostics"`
	Color          string `toml:"color"`
}

// Config is the decoded ebb.toml. Command-line flags override it.
type Config struct {
	Warnings WarningsConfig `toml:"warnings"`
	Output   OutputConfig   `toml:"output"`
}

// DefaultConfig returns the configuration used when no manifest exists.
func DefaultConfig() *Config {
	return &Config{
		Warnings: WarningsConfig{
			Unused:      true,
			DeadStore:   true,
			AllowPrefix: "_",
		},
		Output: OutputConfig{
			MaxDiagnostics: 100,
			Color:          "auto",
		},
	}
}

// LoadConfig discovers ebb.toml by walking up from startDir and decodes it.
// When no manifest exists the defaults are returned with an empty path.
func LoadConfig(startDir string) (*Config, string, error) {
	manifestPath, ok, err := FindEbbToml(startDir)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return DefaultConfig(), "", nil
	}
	cfg, err := LoadConfigFile(manifestPath)
	if err != nil {
		return nil, manifestPath, err
	}
	return cfg, manifestPath, nil
}

// LoadConfigFile decodes one manifest. Keys absent from the file keep their
// default values; keys the schema does not define are rejected.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrManifest, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: %w %q", path, ErrUnknownKey, undecoded[0].String())
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Output.MaxDiagnostics < 0 {
		return fmt.Errorf("%w: output.max_diagnostics must not be negative, got %d",
			ErrBadValue, c.Output.MaxDiagnostics)
	}
	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("%w: output.color must be auto, always or never, got %q",
			ErrBadValue, c.Output.Color)
	}
	return nil
}

// Digest hashes the effective configuration. It participates in cache keys,
// so two runs share cached results only when their configs agree.
func (c *Config) Digest() Digest {
	h := sha256.New()
	fmt.Fprintf(h, "warnings.unused=%t\n", c.Warnings.Unused)
	fmt.Fprintf(h, "warnings.dead_store=%t\n", c.Warnings.DeadStore)
	fmt.Fprintf(h, "warnings.allow_prefix=%s\n", c.Warnings.AllowPrefix)
	fmt.Fprintf(h, "output.max_diagnostics=%d\n", c.Output.MaxDiagnostics)
	fmt.Fprintf(h, "output.color=%s\n", c.Output.Color)
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
