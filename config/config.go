package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full scraper configuration.
type Config struct {
	// DOI identifies the publication whose reactions are scraped.
	DOI string `yaml:"doi"`
	// BaseURL is the origin of the reaction data site.
	BaseURL string `yaml:"base_url"`
	// MaxPages bounds how many result pages a single run may fetch.
	MaxPages int `yaml:"max_pages"`
	// PageSize is the result-page stride used by the offset fallback.
	PageSize int `yaml:"page_size"`
	// AcceptPolicy is "strict" (drop records without products) or "lenient".
	AcceptPolicy string `yaml:"accept_policy"`
	// RecordMethod controls whether exports include the extraction method.
	RecordMethod bool `yaml:"record_method"`

	Fetch     FetchConfig     `yaml:"fetch"`
	Output    OutputConfig    `yaml:"output"`
	Database  DatabaseConfig  `yaml:"database"`
	Sheets    SheetsConfig    `yaml:"sheets"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// FetchConfig tunes the HTTP fetcher.
type FetchConfig struct {
	UserAgent      string  `yaml:"user_agent"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MinDelay       float64 `yaml:"min_delay_seconds"`
	MaxDelay       float64 `yaml:"max_delay_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
	RetryDelayMS   int     `yaml:"retry_delay_ms"`
}

// OutputConfig names the export targets.
type OutputConfig struct {
	JSONPath string `yaml:"json_path"`
	CSVPath  string `yaml:"csv_path"`
}

// DatabaseConfig holds the optional Postgres sink. An empty DSN (and no
// DATABASE_URL in the environment) disables persistence.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SheetsConfig holds the optional Google Sheets export target.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// TelegramConfig holds the optional run-completion notification target.
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// SchedulerConfig tunes the queued serve mode.
type SchedulerConfig struct {
	PollSeconds int `yaml:"poll_seconds"`
}

// LoadConfig loads configuration from a YAML file, filling unset fields
// from the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// GetDefaultConfig returns a configuration matching the source site's
// observed behavior.
func GetDefaultConfig() *Config {
	return &Config{
		DOI:          "10.1021/jacsau.4c01276",
		BaseURL:      "https://kmt.vander-lingen.nl",
		MaxPages:     10,
		PageSize:     10,
		AcceptPolicy: "strict",
		RecordMethod: true,
		Fetch: FetchConfig{
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			TimeoutSeconds: 30,
			MinDelay:       0.8,
			MaxDelay:       1.5,
			MaxRetries:     2,
			RetryDelayMS:   1000,
		},
		Output: OutputConfig{
			JSONPath: "kmt_reactions.json",
		},
		Scheduler: SchedulerConfig{
			PollSeconds: 15,
		},
	}
}

// DatabaseDSN returns the configured DSN, falling back to the DATABASE_URL
// environment variable.
func (c *Config) DatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return os.Getenv("DATABASE_URL")
}

// Timeout returns the fetch timeout as a duration.
func (f *FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// DelayRange returns the min and max inter-page delay as durations.
// A max below min is raised to min.
func (f *FetchConfig) DelayRange() (time.Duration, time.Duration) {
	min := time.Duration(f.MinDelay * float64(time.Second))
	max := time.Duration(f.MaxDelay * float64(time.Second))
	if max < min {
		max = min
	}
	return min, max
}

// RetryDelay returns the initial retry backoff as a duration.
func (f *FetchConfig) RetryDelay() time.Duration {
	return time.Duration(f.RetryDelayMS) * time.Millisecond
}
