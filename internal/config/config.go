package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Geocoder    GeocoderConfig    `yaml:"geocoder" mapstructure:"geocoder"`
	Geocache    GeocacheConfig    `yaml:"geocache" mapstructure:"geocache"`
	District    DistrictConfig    `yaml:"district" mapstructure:"district"`
	Census      CensusConfig      `yaml:"census" mapstructure:"census"`
	Google      GoogleConfig      `yaml:"google" mapstructure:"google"`
	WFS         WFSConfig         `yaml:"wfs" mapstructure:"wfs"`
	USPS        USPSConfig        `yaml:"usps" mapstructure:"usps"`
	FTP         FTPConfig         `yaml:"ftp" mapstructure:"ftp"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Tigerload   TigerloadConfig   `yaml:"tigerload" mapstructure:"tigerload"`
}

// StoreConfig configures the persistence backend (§6).
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "postgres" or "sqlite"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API (§6).
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GeocoderConfig controls the geopipeline provider registry (§4.5): which
// provider answers by default, the fallback rank order tried when the
// default fails, and which providers' results are cacheable.
type GeocoderConfig struct {
	Active    string   `yaml:"active" mapstructure:"active"`
	RankOrder []string `yaml:"rank_order" mapstructure:"rank_order"`
	Cacheable []string `yaml:"cacheable" mapstructure:"cacheable"`
	Threads   int      `yaml:"threads" mapstructure:"threads"`
}

// GeocacheConfig controls the buffered write-through geocode cache (§4.2).
type GeocacheConfig struct {
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size"`
}

// DistrictConfig controls consolidation and the district-assignment
// strategy (§4.7).
type DistrictConfig struct {
	ProximityThresholdMeters float64 `yaml:"proximity_threshold_meters" mapstructure:"proximity_threshold_meters"`
	Strategy                 string  `yaml:"strategy" mapstructure:"strategy"` // "single" or "bluebird"
	H3Resolution             int     `yaml:"h3_resolution" mapstructure:"h3_resolution"`
}

// CensusConfig configures the Census Geocoder provider.
type CensusConfig struct {
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// GoogleConfig configures the Google Geocoding API fallback provider.
type GoogleConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// WFSConfig configures the external WFS fallback district source (§4.6).
type WFSConfig struct {
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Enabled   bool    `yaml:"enabled" mapstructure:"enabled"`
}

// USPSConfig configures the USPS Web Tools address-validation adapter.
type USPSConfig struct {
	UserID    string  `yaml:"user_id" mapstructure:"user_id"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Enabled   bool    `yaml:"enabled" mapstructure:"enabled"`
}

// FTPConfig configures the batch address-file ingest drop (§6.1).
type FTPConfig struct {
	Host       string `yaml:"host" mapstructure:"host"`
	User       string `yaml:"user" mapstructure:"user"`
	Password   string `yaml:"password" mapstructure:"password"`
	InboxPath  string `yaml:"inbox_path" mapstructure:"inbox_path"`
	ResultPath string `yaml:"result_path" mapstructure:"result_path"`
}

// BatchConfig configures the bounded batch executor (§6.1).
type BatchConfig struct {
	PoolSize int `yaml:"pool_size" mapstructure:"pool_size"`
}

// TigerloadConfig configures the district boundary shapefile loader (cmd tigerload).
type TigerloadConfig struct {
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
	Year    int    `yaml:"year" mapstructure:"year"`
}

// Validate checks required configuration fields based on run mode.
// Supported modes: "serve", "batch", "tigerload".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required when store.driver is postgres")
		}
	case "batch":
		if c.Batch.PoolSize < 1 {
			errs = append(errs, "batch.pool_size must be >= 1")
		}
	case "tigerload":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.District.ProximityThresholdMeters < 0 {
		errs = append(errs, "district.proximity_threshold_meters must be >= 0")
	}
	if c.District.Strategy != "single" && c.District.Strategy != "bluebird" {
		errs = append(errs, `district.strategy must be "single" or "bluebird"`)
	}
	if c.District.H3Resolution < 0 || c.District.H3Resolution > 15 {
		errs = append(errs, "district.h3_resolution must be between 0 and 15")
	}
	if len(c.Geocoder.RankOrder) == 0 {
		errs = append(errs, "geocoder.rank_order must name at least one provider")
	}

	if len(errs) > 0 {
		return eris.New(fmt.Sprintf("config: validation failed: %s", strings.Join(errs, "; ")))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEODISTRICT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "geodistrict.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)

	v.SetDefault("geocoder.active", "census")
	v.SetDefault("geocoder.rank_order", []string{"census", "google"})
	v.SetDefault("geocoder.cacheable", []string{"census", "google"})
	v.SetDefault("geocoder.threads", 4)

	v.SetDefault("geocache.buffer_size", 1000)

	v.SetDefault("district.proximity_threshold_meters", 50.0)
	v.SetDefault("district.strategy", "single")
	v.SetDefault("district.h3_resolution", 9)

	v.SetDefault("census.base_url", "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress")
	v.SetDefault("census.rate_limit", 50.0)

	v.SetDefault("google.base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("google.rate_limit", 40.0)

	v.SetDefault("wfs.enabled", false)
	v.SetDefault("wfs.rate_limit", 5.0)

	v.SetDefault("usps.enabled", false)
	v.SetDefault("usps.base_url", "https://secure.shippingapis.com/ShippingAPI.dll")
	v.SetDefault("usps.rate_limit", 5.0)

	v.SetDefault("ftp.inbox_path", "/incoming")
	v.SetDefault("ftp.result_path", "/outgoing")

	v.SetDefault("batch.pool_size", 3)

	v.SetDefault("tigerload.temp_dir", "/tmp/tigerload")
	v.SetDefault("tigerload.year", 2024)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
