package webaudit

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/safeurl"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/driver"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/domainclass"
	"github.com/Keerthikach/MCP-Privacy-Compliance-Agent/webaudit/internal/fetch"
)

// Caps on external fan-out. Bounded on purpose: a page can link hundreds
// of "legal" documents and the audit must stay predictable.
const (
	DefaultMaxPolicyLinks   = 10
	DefaultMaxPolicyFetches = 5
)

// DefaultMaxWait bounds the dynamic page-load wait when the request does
// not set one.
const DefaultMaxWait = 15 * time.Second

// Config configures an Auditor.
type Config struct {
	// Factory opens browser sessions for the dynamic pipeline. Nil means
	// every audit runs the static pipeline with the fallback reason
	// recorded.
	Factory driver.Factory

	// HTTPTimeout bounds each plain-HTTP request (page fetch, policy
	// fetches, header probe). Default: 20s.
	HTTPTimeout time.Duration

	// UserAgent for plain-HTTP requests. Default: fetch's bot UA.
	UserAgent string

	// RequestsPerSecond rate-limits plain-HTTP fetches against the target.
	// Zero disables limiting.
	RequestsPerSecond float64

	// BlockPrivateNetworks rejects targets and policy links that resolve
	// to loopback or private address space. Off by default: auditing an
	// internal staging site is a legitimate use.
	BlockPrivateNetworks bool

	// MaxPolicyLinks / MaxPolicyFetches bound policy-link discovery and
	// fetching.
	MaxPolicyLinks   int
	MaxPolicyFetches int

	// TrackerTable overrides the built-in third-party categorisation
	// table. Nil keeps the default.
	TrackerTable []domainclass.Bucket

	// History receives every completed audit for persistence. Optional;
	// persistence failures are logged, never surfaced to the caller.
	History HistoryStore

	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 20 * time.Second
	}
	if c.MaxPolicyLinks <= 0 {
		c.MaxPolicyLinks = DefaultMaxPolicyLinks
	}
	if c.MaxPolicyFetches <= 0 {
		c.MaxPolicyFetches = DefaultMaxPolicyFetches
	}
	if c.MaxPolicyFetches > c.MaxPolicyLinks {
		c.MaxPolicyFetches = c.MaxPolicyLinks
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c *Config) fetcher() *fetch.Fetcher {
	fc := fetch.Config{
		Timeout:   c.HTTPTimeout,
		UserAgent: c.UserAgent,
	}
	if c.RequestsPerSecond > 0 {
		fc.Limiter = rate.NewLimiter(rate.Limit(c.RequestsPerSecond), 1)
	}
	if c.BlockPrivateNetworks {
		fc.Validator = safeurl.ValidateURL
	}
	return fetch.New(fc)
}

// FileConfig is the on-disk YAML configuration consumed by the commands.
type FileConfig struct {
	// Listen is the HTTP API bind address, e.g. ":8080".
	Listen string `yaml:"listen"`

	// Browser settings for the dynamic pipeline.
	Browser struct {
		// RemoteURL connects to an external Chrome instead of launching
		// one.
		RemoteURL string `yaml:"remote_url"`
		Headless  *bool  `yaml:"headless"`
	} `yaml:"browser"`

	HTTPTimeoutSeconds   int     `yaml:"http_timeout_seconds"`
	UserAgent            string  `yaml:"user_agent"`
	RequestsPerSecond    float64 `yaml:"requests_per_second"`
	BlockPrivateNetworks bool    `yaml:"block_private_networks"`
	MaxPolicyLinks       int     `yaml:"max_policy_links"`
	MaxPolicyFetches     int     `yaml:"max_policy_fetches"`

	// Trackers extends or replaces the third-party categorisation table.
	Trackers []domainclass.Bucket `yaml:"trackers"`

	// HistoryDB is the optional SQLite path for run history. Empty
	// disables persistence.
	HistoryDB string `yaml:"history_db"`
}

// LoadFileConfig reads a YAML config file. A missing path returns the
// zero config so every setting falls back to its default.
func LoadFileConfig(path string) (*FileConfig, error) {
	var fc FileConfig
	if path == "" {
		return &fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("webaudit: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("webaudit: parse config %s: %w", path, err)
	}
	return &fc, nil
}

// EngineConfig converts file settings to an engine Config. The browser
// factory is supplied by the caller since it depends on the runtime
// environment.
func (fc *FileConfig) EngineConfig(factory driver.Factory, logger *slog.Logger) Config {
	return Config{
		Factory:              factory,
		HTTPTimeout:          time.Duration(fc.HTTPTimeoutSeconds) * time.Second,
		UserAgent:            fc.UserAgent,
		RequestsPerSecond:    fc.RequestsPerSecond,
		BlockPrivateNetworks: fc.BlockPrivateNetworks,
		MaxPolicyLinks:       fc.MaxPolicyLinks,
		MaxPolicyFetches:     fc.MaxPolicyFetches,
		TrackerTable:         fc.Trackers,
		Logger:               logger,
	}
}
