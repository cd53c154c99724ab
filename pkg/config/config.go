package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/backport-tags/pkg/forge"
	"github.com/backport-tags/pkg/tagset"
	"github.com/backport-tags/pkg/ui"
)

const (
	DefaultOwner           = "kubevirt"
	DefaultBackportPattern = "auto-generated from #{pr}"
	DefaultRepoLimit       = 1000

	// PRPlaceholder is replaced by the PR number in the backport pattern.
	PRPlaceholder = "{pr}"

	// CacheDirEnv overrides the cache root.
	CacheDirEnv = "BACKPORT_TAGS_CACHE_DIR"
)

var ErrInputRequired = errors.New("required input missing in non-interactive mode")

type Config struct {
	Owner           string          `yaml:"owner"`
	Transport       forge.Transport `yaml:"transport"`
	BackportPattern string          `yaml:"backport_pattern"`
	CacheDir        string          `yaml:"cache_dir"`
	RepoLimit       int             `yaml:"repo_limit"`
	Output          string          `yaml:"output"`
	Sort            tagset.Order    `yaml:"sort"`

	Repo     string `yaml:"-"`
	PR       string `yaml:"-"`
	Refresh  bool   `yaml:"-"`
	Yes      bool   `yaml:"-"`
	LogLevel string `yaml:"-"`
	NoColor  bool   `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Owner:           DefaultOwner,
		Transport:       forge.SSH,
		BackportPattern: DefaultBackportPattern,
		RepoLimit:       DefaultRepoLimit,
		Output:          "bullets",
		Sort:            tagset.Lexical,
		LogLevel:        "info",
	}
}

// DefaultPath is $XDG_CONFIG_HOME/backport-tags/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "backport-tags", "config.yaml")
}

// Load reads a YAML file over the defaults. The error wraps os.ErrNotExist
// when the file is absent.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// MergeFlags overrides cfg with every flag set on the command line.
func MergeFlags(cfg *Config, flags *pflag.FlagSet) *Config {
	if v, err := flags.GetString("owner"); err == nil && flags.Changed("owner") {
		cfg.Owner = v
	}
	if v, err := flags.GetString("repo"); err == nil && v != "" {
		cfg.Repo = v
	}
	if v, err := flags.GetString("pr"); err == nil && v != "" {
		cfg.PR = v
	}
	if t, ok := TransportFrom(flags); ok {
		cfg.Transport = t
	}
	if v, err := flags.GetBool("refresh"); err == nil {
		cfg.Refresh = v
	}
	if v, err := flags.GetBool("yes"); err == nil {
		cfg.Yes = v
	}
	if v, err := flags.GetString("output"); err == nil && flags.Changed("output") {
		cfg.Output = v
	}
	if v, err := flags.GetString("sort"); err == nil && flags.Changed("sort") {
		cfg.Sort = tagset.Order(v)
	}
	if v, err := flags.GetString("backport-pattern"); err == nil && v != "" {
		cfg.BackportPattern = v
	}
	if v, err := flags.GetString("cache-dir"); err == nil && v != "" {
		cfg.CacheDir = v
	}
	if v, err := flags.GetString("log-level"); err == nil && flags.Changed("log-level") {
		cfg.LogLevel = v
	}
	return cfg
}

// Normalize splits "owner/name" repos, fills the cache dir and picks up
// NO_COLOR.
func (c *Config) Normalize() error {
	if strings.Contains(c.Repo, "/") {
		repo, err := forge.ParseRepo(c.Repo)
		if err != nil {
			return err
		}
		c.Owner, c.Repo = repo.Owner, repo.Name
	}
	if c.CacheDir == "" {
		c.CacheDir = os.Getenv(CacheDirEnv)
	}
	if c.CacheDir == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("locate cache dir: %w", err)
		}
		c.CacheDir = filepath.Join(dir, "backport-tags")
	}
	if ui.ColorDisabled() {
		c.NoColor = true
	}
	if c.Sort == "" {
		c.Sort = tagset.Lexical
	}
	if c.Transport == "" {
		c.Transport = forge.SSH
	}
	return nil
}

// Validate checks values that would otherwise fail halfway through a run.
func (c *Config) Validate() error {
	if c.Owner == "" {
		return errors.New("owner must not be empty")
	}
	switch c.Transport {
	case forge.SSH, forge.HTTPS:
	default:
		return fmt.Errorf("unknown transport %q (want ssh or https)", c.Transport)
	}
	switch c.Output {
	case "bullets", "table", "json":
	default:
		return fmt.Errorf("unknown output %q (want bullets, table or json)", c.Output)
	}
	if _, err := tagset.ParseOrder(string(c.Sort)); err != nil {
		return err
	}
	if !strings.Contains(c.BackportPattern, PRPlaceholder) {
		return fmt.Errorf("backport pattern %q must contain %s", c.BackportPattern, PRPlaceholder)
	}
	if c.RepoLimit <= 0 {
		return fmt.Errorf("repo limit must be positive, got %d", c.RepoLimit)
	}
	if c.PR != "" {
		if _, err := forge.ParsePRNumber(c.PR); err != nil {
			return err
		}
	}
	if c.Yes && c.Repo == "" {
		return fmt.Errorf("%w: --repo", ErrInputRequired)
	}
	if c.Yes && c.PR == "" {
		return fmt.Errorf("%w: --pr", ErrInputRequired)
	}
	return nil
}

// Marker expands the backport pattern for one PR.
func (c *Config) Marker(pr int) string {
	return strings.ReplaceAll(c.BackportPattern, PRPlaceholder, strconv.Itoa(pr))
}

// TransportValue is shared by --ssh and --https so that whichever comes last
// on the command line wins.
type TransportValue struct {
	target *forge.Transport
	value  forge.Transport
}

// NewTransportValue returns a boolean-style flag value that stores value in
// target when set.
func NewTransportValue(target *forge.Transport, value forge.Transport) *TransportValue {
	return &TransportValue{target: target, value: value}
}

func (t *TransportValue) String() string {
	if t.target != nil && *t.target == t.value {
		return "true"
	}
	return "false"
}

func (t *TransportValue) Set(s string) error {
	on, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if on {
		*t.target = t.value
	}
	return nil
}

func (t *TransportValue) Type() string { return "bool" }

// IsBoolFlag lets the flag be given without a value.
func (t *TransportValue) IsBoolFlag() bool { return true }

// AddTransportFlags registers --ssh and --https on fs.
func AddTransportFlags(fs *pflag.FlagSet) {
	var chosen forge.Transport
	fs.Var(NewTransportValue(&chosen, forge.SSH), "ssh", "Clone over SSH (default)")
	fs.Var(NewTransportValue(&chosen, forge.HTTPS), "https", "Clone over HTTPS")
	fs.Lookup("ssh").NoOptDefVal = "true"
	fs.Lookup("https").NoOptDefVal = "true"
}

// TransportFrom returns the transport chosen on the command line, if any.
func TransportFrom(fs *pflag.FlagSet) (forge.Transport, bool) {
	f := fs.Lookup("ssh")
	if f == nil {
		return "", false
	}
	tv, ok := f.Value.(*TransportValue)
	if !ok || tv.target == nil || *tv.target == "" {
		return "", false
	}
	return *tv.target, true
}
