package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit    string        `yaml:"git_commit" envconfig:"DSF_GIT_COMMIT"`
	GitTag       string        `yaml:"git_tag" envconfig:"DSF_GIT_TAG"`
	BuildTime    string        `yaml:"build_time" envconfig:"DSF_BUILD_TIME"`
	IsProduction bool          `yaml:"is_production" envconfig:"DSF_IS_PRODUCTION"`
	LogLevel     zapcore.Level `yaml:"log_level" envconfig:"DSF_LOG_LEVEL"`
	LogFolder    string        `yaml:"log_folder" envconfig:"DSF_LOG_FOLDER"`
	LogMaxSize   int           `yaml:"log_max_size" envconfig:"DSF_LOG_MAX_SIZE"`
	API          APIConfig     `yaml:"api"`
	Search       SearchConfig  `yaml:"search"`
	BoltDB       BoltDBConfig  `yaml:"boltdb"`
}

// APIConfig holds the settings of the outbound connection to the storefront rest api.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url" envconfig:"DSF_API_BASE_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"DSF_API_REQUEST_TIMEOUT"`
	CSRFCookieName string        `yaml:"csrf_cookie_name" envconfig:"DSF_API_CSRF_COOKIE_NAME"`
	CSRFHeaderName string        `yaml:"csrf_header_name" envconfig:"DSF_API_CSRF_HEADER_NAME"`
}

// SearchConfig holds the books searching behavior settings.
type SearchConfig struct {
	DebounceInterval time.Duration `yaml:"debounce_interval" envconfig:"DSF_SEARCH_DEBOUNCE_INTERVAL"`
}

// BoltDBConfig holds the settings of the local cookies database.
type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"DSF_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"DSF_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"DSF_BOLTDB_BUCKET_NAME"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.API.BaseURL) == 0 {
		return errors.New("make sure to set a valid storefront api base url in configuration file")
	}

	if config.API.RequestTimeout == 0 {
		config.API.RequestTimeout = 30 * time.Second
	}

	if len(config.API.CSRFCookieName) == 0 {
		config.API.CSRFCookieName = "csrftoken"
	}

	if len(config.API.CSRFHeaderName) == 0 {
		config.API.CSRFHeaderName = "X-CSRFToken"
	}

	if config.Search.DebounceInterval == 0 {
		config.Search.DebounceInterval = 500 * time.Millisecond
	}

	if len(config.BoltDB.FilePath) == 0 || len(config.BoltDB.BucketName) == 0 {
		return errors.New("make sure to set valid cookies database filepath and bucket name in configuration file")
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration.
	err = godotenv.Load("./config.env")
	if err != nil && !os.IsNotExist(err) {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `DSF`.
	err = LoadConfigEnvs("DSF", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
