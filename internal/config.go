package internal

import (
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
	"github.com/showdex/showdex/internal/crawler"
	"github.com/showdex/showdex/internal/database"
)

const showdexUserDirSuffix = ".showdex"

// ShowdexConfig is the struct used to contain the various user config
// supplied by file, environment, or manually inside the code.
type ShowdexConfig struct {
	Database    database.DatabaseConfig `yaml:"database" env-required:"true"`
	Ingest      IngestConfig            `yaml:"ingest"`
	Crawl       CrawlConfig             `yaml:"crawl"`
	Reddit      RedditConfig            `yaml:"reddit"`
	Crawler     crawler.Config          `yaml:"crawler"`
	DataDirPath string                  `yaml:"data_dir" env:"DATA_DIR"`
}

// IngestConfig is the subset of configuration controlling the bulk
// catalog ingest: dataset fetching, filtering thresholds and batch sizes.
type IngestConfig struct {
	Enabled          bool `yaml:"enabled" env:"INGEST_ENABLED" env-default:"true"`
	ForceDownload    bool `yaml:"force_download" env:"INGEST_FORCE_DOWNLOAD" env-default:"false"`
	MinStartYear     int  `yaml:"min_start_year" env:"INGEST_MIN_START_YEAR" env-default:"1990" validate:"gt=0"`
	MinVotes         int  `yaml:"min_votes" env:"INGEST_MIN_VOTES" env-default:"1000" validate:"gte=0"`
	MaxShows         int  `yaml:"max_shows" env:"INGEST_MAX_SHOWS" env-default:"500" validate:"gt=0"`
	ChunkSize        int  `yaml:"chunk_size" env:"INGEST_CHUNK_SIZE" env-default:"50000" validate:"gt=0"`
	ShowBatchSize    int  `yaml:"show_batch_size" env:"INGEST_SHOW_BATCH_SIZE" env-default:"500" validate:"gt=0"`
	EpisodeBatchSize int  `yaml:"episode_batch_size" env:"INGEST_EPISODE_BATCH_SIZE" env-default:"100" validate:"gt=0"`
}

// CrawlConfig enables the discussion crawl phase and bounds its
// persistence batches; pacing options live on the crawler config itself.
type CrawlConfig struct {
	Enabled             bool `yaml:"enabled" env:"CRAWL_ENABLED" env-default:"true"`
	DiscussionBatchSize int  `yaml:"discussion_batch_size" env:"CRAWL_DISCUSSION_BATCH_SIZE" env-default:"50" validate:"gt=0"`
}

// RedditConfig carries the optional search provider application
// credentials. With no credentials the anonymous endpoints are used.
type RedditConfig struct {
	ClientID     string `yaml:"client_id" env:"REDDIT_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"REDDIT_CLIENT_SECRET"`
	UserAgent    string `yaml:"user_agent" env:"REDDIT_USER_AGENT"`
}

// LoadFromFile loads a YAML configuration file into the config struct,
// applying environment variable overrides and defaults, then validates it.
func (config *ShowdexConfig) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	return config.validate()
}

// LoadFromEnv populates the config purely from environment variables and
// tag defaults; used when no config file is present.
func (config *ShowdexConfig) LoadFromEnv() error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	return config.validate()
}

func (config *ShowdexConfig) validate() error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	return nil
}

// DataDir returns the root directory for raw dataset caches, processed
// backup artifacts and progress markers. It will first look to the config
// for a value; if none is found a default under the users home directory
// is derived. If the default cannot be derived, a panic will occur.
func (config *ShowdexConfig) DataDir() string {
	if config.DataDirPath != "" {
		return config.DataDirPath
	}

	home, err := homedir.Dir()
	if err != nil {
		panic(fmt.Sprintf("FAILURE to derive user home dir: %s", err))
	}

	return filepath.Join(home, showdexUserDirSuffix)
}

// RawDir is where the fetched dataset exports are cached.
func (config *ShowdexConfig) RawDir() string {
	return filepath.Join(config.DataDir(), "raw")
}

// ProcessedDir holds the CSV backup artifacts.
func (config *ShowdexConfig) ProcessedDir() string {
	return filepath.Join(config.DataDir(), "processed")
}

// ProgressPath is the location of the crawls JSON progress marker.
func (config *ShowdexConfig) ProgressPath() string {
	return filepath.Join(config.DataDir(), "crawl_progress.json")
}
