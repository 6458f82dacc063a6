package internal

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

var (
	// DefaultAppName is used for config search paths and env prefixes
	DefaultAppName     = "aprep"
	DefaultConfigPath  = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultCacheDir    = filepath.Join(DefaultConfigPath, ".cache")
	DefaultStorePath   = filepath.Join(DefaultCacheDir, "datasets.db")
	DefaultOutputDir   = "artifacts"
	DefaultLabelsFile  = "labels.json"
	DefaultVocabFile   = "vocab.json"
	DefaultEnvPrefix   = "APREP"
	DefaultLogLevel    = "info"
	DefaultAbstractTag = "###"
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current working directory if home directory is unavailable
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// NewLogger returns the process logger at the given level. Unknown levels fall
// back to info.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return GetLogger().Level(lvl)
}
