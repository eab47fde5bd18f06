package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	Ticker  TickerConfig  `yaml:"ticker"`
	Clock   ClockConfig   `yaml:"clock"`
	Source  SourceConfig  `yaml:"source"`
	Request RequestConfig `yaml:"request"`
	DB      DBConfig      `yaml:"db"`
	Traffic TrafficConfig `yaml:"traffic"`
	Regions RegionsConfig `yaml:"regions"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path" validate:"required"`
	Level string `yaml:"level"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address        string `yaml:"address" validate:"required"`
	MaxConnections int    `yaml:"max_connections" validate:"gte=0"` // 0 = unlimited
}

// TickerConfig holds the frame loop settings.
type TickerConfig struct {
	FrameLoop Duration `yaml:"frame_loop" validate:"gt=0"`
}

// ClockConfig holds the simulated ingestion clock settings.
type ClockConfig struct {
	Start time.Time `yaml:"start" validate:"required"`
	Step  Duration  `yaml:"step" validate:"gt=0"`
}

// SourceConfig selects and configures the telemetry source.
type SourceConfig struct {
	Provider   string           `yaml:"provider" validate:"oneof=clickhouse replay mock"`
	RowLimit   int              `yaml:"row_limit" validate:"gt=0"`
	Record     bool             `yaml:"record"` // archive fetched windows into the db for later replay
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Mock       MockConfig       `yaml:"mock"`
}

// ClickHouseConfig holds settings for the ClickHouse HTTP interface.
type ClickHouseConfig struct {
	URL      string `yaml:"url" validate:"required,url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Table    string `yaml:"table" validate:"required"`
}

// MockConfig holds settings for the synthetic traffic source.
type MockConfig struct {
	Aircraft  int      `yaml:"aircraft" validate:"gte=0"`
	Seed      int64    `yaml:"seed"`
	CenterLat float64  `yaml:"center_lat" validate:"gte=-90,lte=90"`
	CenterLon float64  `yaml:"center_lon" validate:"gte=-180,lte=180"`
	Radius    Distance `yaml:"radius"`
	Speed     float64  `yaml:"speed_kts" validate:"gte=0"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries" validate:"gte=1"`
	Timeout Duration      `yaml:"timeout" validate:"gt=0"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path   string   `yaml:"path" validate:"required"`
	Import string   `yaml:"import"` // TSV dump loaded into the archive when it changes
	Retain Duration `yaml:"retain"` // 0 keeps every archived row
}

// TrafficConfig holds the reconciliation policy.
type TrafficConfig struct {
	MaxAircraft        int      `yaml:"max_aircraft" validate:"gt=0"`
	Staleness          Duration `yaml:"staleness" validate:"gt=0"`
	HistorySize        int      `yaml:"history_size" validate:"gte=0"`
	EarthRadius        float64  `yaml:"earth_radius" validate:"gt=0"` // render units
	SpawnAltitude      float64  `yaml:"spawn_altitude"`
	InitialGroundSpeed float64  `yaml:"initial_ground_speed"`
}

// RegionsConfig lists GeoJSON layers used to tag aircraft with the region
// they are over. Empty disables region lookup.
type RegionsConfig struct {
	Paths []string `yaml:"paths"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		Server: ServerConfig{
			Address:        "localhost:1921",
			MaxConnections: 256,
		},
		Ticker: TickerConfig{
			FrameLoop: Duration(100 * time.Millisecond),
		},
		Clock: ClockConfig{
			Start: time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC),
			Step:  Duration(10 * time.Second),
		},
		Source: SourceConfig{
			Provider: "clickhouse",
			RowLimit: 10000,
			ClickHouse: ClickHouseConfig{
				URL:      "http://localhost:18123",
				User:     "default",
				Database: "default",
				Table:    "planes_mercator",
			},
			Mock: MockConfig{
				Aircraft:  500,
				Seed:      1,
				CenterLat: 50.0,
				CenterLon: 10.0,
				Radius:    Distance(1500000),
				Speed:     450,
			},
		},
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(30 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(30 * time.Second),
			},
		},
		DB: DBConfig{
			Path:   "./data/adsbglobe.db",
			Import: "./data/planes.tsv",
		},
		Traffic: TrafficConfig{
			MaxAircraft:        5000,
			Staleness:          Duration(10 * time.Minute),
			HistorySize:        10,
			EarthRadius:        1.0,
			SpawnAltitude:      0.01,
			InitialGroundSpeed: 0.1,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it is created with default values.
// If it exists, its values are merged over the defaults but the file is NOT
// rewritten, so user formatting and comments survive.
// A .env file next to the config (or in the working directory) supplies
// credentials that are missing from the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := loadEnvFiles(filepath.Join(dir, ".env"), ".env"); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads each existing dotenv file. Variables already present in
// the environment win.
func loadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// applyEnv fills empty credentials from the environment (never saved back to disk).
func applyEnv(cfg *Config) {
	if cfg.Source.ClickHouse.User == "" {
		if v := os.Getenv("CLICKHOUSE_USER"); v != "" {
			cfg.Source.ClickHouse.User = v
		}
	}
	if cfg.Source.ClickHouse.Password == "" {
		if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
			cfg.Source.ClickHouse.Password = v
		}
	}
	if v := os.Getenv("CLICKHOUSE_URL"); v != "" {
		cfg.Source.ClickHouse.URL = v
	}
}

var validate = validator.New()

// Validate checks the configuration against its struct tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !isSafeIdentifier(cfg.Source.ClickHouse.Table) {
		return fmt.Errorf("invalid config: table name %q must be a plain identifier", cfg.Source.ClickHouse.Table)
	}
	if cfg.Source.ClickHouse.Database != "" && !isSafeIdentifier(cfg.Source.ClickHouse.Database) {
		return fmt.Errorf("invalid config: database name %q must be a plain identifier", cfg.Source.ClickHouse.Database)
	}
	return nil
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func isSafeIdentifier(s string) bool {
	return identRe.MatchString(s)
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# adsbglobe Configuration
# ----------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles), ft (feet)
# Credentials may be left empty and supplied via .env
# (CLICKHOUSE_USER, CLICKHOUSE_PASSWORD, CLICKHOUSE_URL).

`)
	data = append(header, data...)

	reProvider := regexp.MustCompile(`(?m)^(\s+)provider:`)
	data = reProvider.ReplaceAll(data, []byte("${1}# Options: clickhouse, replay, mock\n${1}provider:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
