package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model. It captures the target
// account, archive query options, embed enrichment, output field selection,
// and transport tuning.
type Config struct {
	Account AccountConfig `yaml:"account"`
	Query   QueryConfig   `yaml:"query"`
	Embed   EmbedConfig   `yaml:"embed"`
	Output  OutputConfig  `yaml:"output"`
	Storage StorageConfig `yaml:"storage"`
	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`
	Verbose bool          `yaml:"verbose"`
}

type AccountConfig struct {
	Username string `yaml:"username"`
}

// QueryConfig holds CDX/Common Crawl index query options. Timestamps are
// YYYYMMDD[HH[MM[SS]]].
type QueryConfig struct {
	Collapse   string `yaml:"collapse"`
	From       string `yaml:"from"`
	To         string `yaml:"to"`
	Limit      int    `yaml:"limit"`
	Offset     int    `yaml:"offset"`
	MatchType  string `yaml:"matchType"`
	CrawlIndex string `yaml:"crawlIndex"` // Common Crawl index name, e.g. CC-MAIN-2024-10
}

type EmbedConfig struct {
	// Enabled controls oembed enrichment of single-status URLs.
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

type OutputConfig struct {
	// Fields is the allow-list applied to assembled records. Empty keeps all.
	Fields []string `yaml:"fields"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type HTTPConfig struct {
	RPS            float64 `yaml:"rps"`
	Burst          int     `yaml:"burst"`
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
	MaxAttempts    int     `yaml:"maxAttempts"`
	BaseBackoffMS  int     `yaml:"baseBackoffMs"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Account: AccountConfig{Username: ""},
		Query:   QueryConfig{CrawlIndex: "CC-MAIN-2024-10"},
		Embed:   EmbedConfig{Enabled: true, Endpoint: "https://publish.twitter.com/oembed"},
		Output: OutputConfig{Fields: []string{
			"archived_timestamp",
			"original_tweet_url",
			"archived_tweet_url",
			"archived_statuscode",
		}},
		Storage: StorageConfig{DBPath: "./waybacktweets.db"},
		HTTP:    HTTPConfig{RPS: 2, Burst: 10, TimeoutSeconds: 10, MaxAttempts: 5, BaseBackoffMS: 500},
		Metrics: MetricsConfig{Addr: ""},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Account.Username == "" {
		c.Account.Username = os.Getenv("WAYBACKTWEETS_USERNAME")
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = os.Getenv("WAYBACKTWEETS_DB")
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
