package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/abstract-prep/aprep"

	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Data    DataConfig    `mapstructure:"data"`
	Text    TextConfig    `mapstructure:"text"`
	Vocab   VocabConfig   `mapstructure:"vocab"`
	Split   SplitConfig   `mapstructure:"split"`
	Loader  LoaderConfig  `mapstructure:"loader"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DataConfig points at the raw annotated-abstract files. When only TrainFile
// is set it is split into train/val/test.
type DataConfig struct {
	TrainFile string `mapstructure:"trainFile"`
	ValFile   string `mapstructure:"valFile"`
	TestFile  string `mapstructure:"testFile"`
	OutputDir string `mapstructure:"outputDir"`
	Lowercase bool   `mapstructure:"lowercase"`
}

// TextConfig configures normalization.
type TextConfig struct {
	// StopwordsFile replaces the built-in English list when set.
	StopwordsFile    string `mapstructure:"stopwordsFile"`
	DisableStopwords bool   `mapstructure:"disableStopwords"`
	Stem             bool   `mapstructure:"stem"`
	Workers          int    `mapstructure:"workers"`
}

// VocabConfig configures the vocabulary tokenizer.
type VocabConfig struct {
	Capacity  int    `mapstructure:"capacity"`
	CharLevel bool   `mapstructure:"charLevel"`
	PadToken  string `mapstructure:"padToken"`
	OOVToken  string `mapstructure:"oovToken"`
}

// SplitConfig configures the stratified split.
type SplitConfig struct {
	TrainSize float64 `mapstructure:"trainSize"`
	ValShare  float64 `mapstructure:"valShare"`
	Seed      uint64  `mapstructure:"seed"`
}

// LoaderConfig configures batching.
type LoaderConfig struct {
	BatchSize int  `mapstructure:"batchSize"`
	Shuffle   bool `mapstructure:"shuffle"`
	DropLast  bool `mapstructure:"dropLast"`
	MinLen    int  `mapstructure:"minLen"`
}

// StoreConfig configures the dataset cache. An empty DSN disables it.
type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LoggingConfig stores the log level.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("data.trainFile", "")
	v.SetDefault("data.valFile", "")
	v.SetDefault("data.testFile", "")
	v.SetDefault("data.outputDir", internal.DefaultOutputDir)
	v.SetDefault("data.lowercase", true)

	v.SetDefault("text.stopwordsFile", "")
	v.SetDefault("text.disableStopwords", false)
	v.SetDefault("text.stem", false)
	v.SetDefault("text.workers", 0)

	v.SetDefault("vocab.capacity", 0)
	v.SetDefault("vocab.charLevel", false)
	v.SetDefault("vocab.padToken", "<PAD>")
	v.SetDefault("vocab.oovToken", "<UNK>")

	v.SetDefault("split.trainSize", 0.7)
	v.SetDefault("split.valShare", 0.5)
	v.SetDefault("split.seed", 42)

	v.SetDefault("loader.batchSize", 64)
	v.SetDefault("loader.shuffle", true)
	v.SetDefault("loader.dropLast", false)
	v.SetDefault("loader.minLen", 0)

	v.SetDefault("store.dsn", "")
	v.SetDefault("logging.level", internal.DefaultLogLevel)

	v.SetEnvPrefix(internal.DefaultEnvPrefix)
	v.AutomaticEnv()                                   // Read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // vocab.capacity becomes APREP_VOCAB_CAPACITY

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults will be used.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	AppConfig = cfg
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Vocab.Capacity < 0 || (c.Vocab.Capacity > 0 && c.Vocab.Capacity <= 2):
		return fmt.Errorf("%w: vocab.capacity must be 0 or greater than 2, got %d", ErrInvalidConfig, c.Vocab.Capacity)
	case c.Vocab.PadToken == c.Vocab.OOVToken:
		return fmt.Errorf("%w: vocab.padToken and vocab.oovToken must differ", ErrInvalidConfig)
	case c.Split.TrainSize <= 0 || c.Split.TrainSize >= 1:
		return fmt.Errorf("%w: split.trainSize must be in (0,1), got %v", ErrInvalidConfig, c.Split.TrainSize)
	case c.Split.ValShare < 0 || c.Split.ValShare > 1:
		return fmt.Errorf("%w: split.valShare must be in [0,1], got %v", ErrInvalidConfig, c.Split.ValShare)
	case c.Loader.BatchSize <= 0:
		return fmt.Errorf("%w: loader.batchSize must be positive, got %d", ErrInvalidConfig, c.Loader.BatchSize)
	case c.Loader.MinLen < 0:
		return fmt.Errorf("%w: loader.minLen must not be negative, got %d", ErrInvalidConfig, c.Loader.MinLen)
	}
	return nil
}
