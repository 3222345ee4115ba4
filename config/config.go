// config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kwehner/nyiso-scrape/models"
)

type ServerConfig struct {
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug/info/warn/error, default info
}

// ScraperConfig holds the download knobs. The *Str fields are duration
// strings from YAML ("2s", "30s"); the parsed values live beside them.
type ScraperConfig struct {
	UserAgent          string `yaml:"user_agent"`
	MaxRetries         int    `yaml:"max_retries"`
	RetryBackoffStr    string `yaml:"retry_backoff"`
	RetryBackoffCapStr string `yaml:"retry_backoff_cap"`
	RequestTimeoutStr  string `yaml:"request_timeout"`
	ArchiveTimeoutStr  string `yaml:"archive_timeout"`

	RetryBackoff    time.Duration
	RetryBackoffCap time.Duration
	RequestTimeout  time.Duration
	ArchiveTimeout  time.Duration
}

type SchedulerConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DailyAt      string `yaml:"daily_at"`       // "HH:MM" local wall-clock for daily sources
	RunOnStartup bool   `yaml:"run_on_startup"` // fire every source once when the scheduler starts
}

type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Database  DatabaseConfig            `yaml:"database"`
	Logging   LoggingConfig             `yaml:"logging"`
	Scraper   ScraperConfig             `yaml:"scraper"`
	Scheduler SchedulerConfig           `yaml:"scheduler"`
	Sources   []models.DataSourceConfig `yaml:"sources"`
}

var AppConfig Config

var validFrequencies = map[string]bool{
	models.FrequencyRealtime:   true,
	models.FrequencyHourly:     true,
	models.FrequencyMultiDaily: true,
	models.FrequencyDaily:      true,
}

var validShapes = map[string]bool{
	models.ShapeZonalPrice:        true,
	models.ShapeZoneLoad:          true,
	models.ShapeLoadForecast:      true,
	models.ShapeInterfaceFlow:     true,
	models.ShapeAncillaryServices: true,
	models.ShapeFuelMix:           true,
}

// LoadConfig reads configuration from the given YAML file into AppConfig.
// With an empty path it tries the usual locations relative to wherever the
// binary was started. Database credentials can be overridden from the
// environment (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME) so the YAML
// file never has to carry real secrets.
func LoadConfig(configPath string) error {
	if configPath == "" {
		potentialPaths := []string{
			"config.yaml",
			"config/config.yaml",
			"../config.yaml",
		}
		for _, p := range potentialPaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
		if configPath == "" {
			return fmt.Errorf("config.yaml not found in standard locations")
		}
	}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	AppConfig = Config{}
	if err := yaml.Unmarshal(file, &AppConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&AppConfig.Database)

	if AppConfig.Server.Port == "" {
		AppConfig.Server.Port = "8080"
	}
	if AppConfig.Logging.Level == "" {
		AppConfig.Logging.Level = "info"
	}
	if AppConfig.Scheduler.DailyAt == "" {
		AppConfig.Scheduler.DailyAt = "07:00"
	}

	if err := parseScraperDurations(&AppConfig.Scraper); err != nil {
		return err
	}
	if AppConfig.Scraper.MaxRetries <= 0 {
		AppConfig.Scraper.MaxRetries = 3
	}
	if AppConfig.Scraper.UserAgent == "" {
		AppConfig.Scraper.UserAgent = "nyiso-scrape/1.0 (data ingestion)"
	}

	if err := validateSources(AppConfig.Sources); err != nil {
		return err
	}

	return nil
}

// SourceByName resolves a registry entry by its logical name.
func SourceByName(name string) (models.DataSourceConfig, bool) {
	for _, src := range AppConfig.Sources {
		if src.Name == name {
			return src, true
		}
	}
	return models.DataSourceConfig{}, false
}

// ActiveSources returns the registry entries the scheduler should run.
func ActiveSources() []models.DataSourceConfig {
	var active []models.DataSourceConfig
	for _, src := range AppConfig.Sources {
		if src.Active {
			active = append(active, src)
		}
	}
	return active
}

func applyEnvOverrides(db *DatabaseConfig) {
	if v := os.Getenv("DB_HOST"); v != "" {
		db.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		db.Port = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		db.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		db.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		db.DBName = v
	}
}

func parseScraperDurations(sc *ScraperConfig) error {
	var err error
	parse := func(s string, fallback time.Duration, what string) (time.Duration, error) {
		if s == "" {
			return fallback, nil
		}
		d, perr := time.ParseDuration(s)
		if perr != nil {
			return 0, fmt.Errorf("failed to parse %s: %w", what, perr)
		}
		return d, nil
	}

	if sc.RetryBackoff, err = parse(sc.RetryBackoffStr, 2*time.Second, "scraper.retry_backoff"); err != nil {
		return err
	}
	if sc.RetryBackoffCap, err = parse(sc.RetryBackoffCapStr, 30*time.Second, "scraper.retry_backoff_cap"); err != nil {
		return err
	}
	if sc.RequestTimeout, err = parse(sc.RequestTimeoutStr, 30*time.Second, "scraper.request_timeout"); err != nil {
		return err
	}
	if sc.ArchiveTimeout, err = parse(sc.ArchiveTimeoutStr, 60*time.Second, "scraper.archive_timeout"); err != nil {
		return err
	}
	return nil
}

func validateSources(sources []models.DataSourceConfig) error {
	seen := make(map[string]bool)
	for _, src := range sources {
		if src.Name == "" {
			return fmt.Errorf("source with empty name in config")
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name %q in config", src.Name)
		}
		seen[src.Name] = true

		if !validShapes[src.Shape] {
			return fmt.Errorf("source %s: unknown shape %q", src.Name, src.Shape)
		}
		if !validFrequencies[src.Frequency] {
			return fmt.Errorf("source %s: unknown frequency %q", src.Name, src.Frequency)
		}
		if src.Active && src.URLTemplate == "" {
			return fmt.Errorf("source %s: active but has no url_template", src.Name)
		}
		if src.Shape == models.ShapeAncillaryServices && src.Market == "" {
			return fmt.Errorf("source %s: ancillary shape requires a market", src.Name)
		}
	}
	return nil
}
