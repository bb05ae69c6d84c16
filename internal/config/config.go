package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultWorkers = 5
	MaxWorkers     = 16
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Poster    PosterConfig    `mapstructure:"poster"`
	Output    OutputConfig    `mapstructure:"output"`
	Settings  SettingsConfig  `mapstructure:"settings"`
	Page      PageConfig      `mapstructure:"page"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Matcher   MatcherConfig   `mapstructure:"matcher"`
	TMDB      TMDBConfig      `mapstructure:"tmdb"`
	OMDb      OMDbConfig      `mapstructure:"omdb"`
	Publish   PublishConfig   `mapstructure:"publish"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug or release
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // empty disables the rotating file
}

type BatchConfig struct {
	Workers      int  `mapstructure:"workers"`
	FetchRatings bool `mapstructure:"fetch_ratings"`
}

type PosterConfig struct {
	Dir string `mapstructure:"dir"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

type SettingsConfig struct {
	Path string `mapstructure:"path"`
}

type PageConfig struct {
	AutoRender bool `mapstructure:"auto_render"`
}

type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type MatcherConfig struct {
	// Aliases are "alternate rendering=canonical search term" pairs added to the built-in table.
	Aliases []string `mapstructure:"aliases"`
}

type TMDBConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Token   string `mapstructure:"token"`
	BaseURL string `mapstructure:"base_url"`
	Proxy   string `mapstructure:"proxy"`
}

type OMDbConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type PublishConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Key       string `mapstructure:"key"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PublicURL string `mapstructure:"public_url"`
}

// LoadConfig reads config.yaml (optional) from the working directory or configPath,
// then applies SHOWSHELF_* environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8306)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.path", "data/tv_cache.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("batch.workers", DefaultWorkers)
	v.SetDefault("batch.fetch_ratings", true)
	v.SetDefault("poster.dir", "assets/posters")
	v.SetDefault("output.dir", "outputs")
	v.SetDefault("settings.path", "data/config.json")
	v.SetDefault("page.auto_render", false)
	v.SetDefault("scheduler.interval", time.Duration(0))
	v.SetDefault("tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("omdb.base_url", "https://www.omdbapi.com/")
	v.SetDefault("tmdb.proxy", "")
	v.SetDefault("matcher.aliases", []string{})
	// Unmarshal only sees keys viper knows about, so every env-overridable key gets a default.
	v.SetDefault("publish.endpoint", "")
	v.SetDefault("publish.region", "auto")
	v.SetDefault("publish.bucket", "")
	v.SetDefault("publish.key", "index.html")
	v.SetDefault("publish.access_key", "")
	v.SetDefault("publish.secret_key", "")
	v.SetDefault("publish.public_url", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}

	// SHOWSHELF_SERVER_PORT=9090 etc.
	v.SetEnvPrefix("SHOWSHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider credentials keep their conventional names; the first non-empty one wins.
	if err := bindEnvs(v, map[string][]string{
		"tmdb.api_key": {"TMDB_API_KEY", "API_TMDB_KEY"},
		"tmdb.token":   {"API_TMDB_TOKEN", "TMDB_BEARER"},
		"omdb.api_key": {"OMDB_API_KEY", "API_OMDB_KEY"},
	}); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay, use defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Batch.Workers = ClampWorkers(cfg.Batch.Workers)
	return cfg, nil
}

func bindEnvs(v *viper.Viper, bindings map[string][]string) error {
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// ClampWorkers keeps a requested pool size inside 1..MaxWorkers; zero or less means default.
func ClampWorkers(n int) int {
	switch {
	case n <= 0:
		return DefaultWorkers
	case n > MaxWorkers:
		return MaxWorkers
	}
	return n
}
