package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/journal/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDataDir      = "data_dir"
	cfgKeyWriteDelayMs = "write_delay_ms"
	cfgKeyLogLevel     = "log_level"
	cfgKeyLockRetries  = "lock_retries"

	// The CLI only logs problems unless asked otherwise.
	defaultCLILogLevel = "warn"
)

// configFile is the structure written to config.yaml by init.
type configFile struct {
	DataDir      string `yaml:"data_dir,omitempty"`
	WriteDelayMs int64  `yaml:"write_delay_ms"`
	LogLevel     string `yaml:"log_level"`
	LockRetries  uint   `yaml:"lock_retries"`
}

func defaultConfigFile(dataDir string) configFile {
	return configFile{
		DataDir:      dataDir,
		WriteDelayMs: types.DefaultWriteDelayMs,
		LogLevel:     defaultCLILogLevel,
		LockRetries:  types.DefaultLockRetries,
	}
}

// loadConfig reads config.yaml from configDir using Viper. A missing
// config.yaml is not an error; defaults apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyLogLevel, defaultCLILogLevel)
	v.SetDefault(cfgKeyLockRetries, types.DefaultLockRetries)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// writeConfigIfMissing creates config.yaml in configDir with default values.
// An existing file is left alone. Reports whether a file was written.
func writeConfigIfMissing(configDir, dataDir string) (bool, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}
	path := configPath(configDir)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	cfg := defaultConfigFile(dataDir)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# journal configuration\n")
	return true, os.WriteFile(path, append(header, data...), 0o644)
}

func configPath(configDir string) string {
	return filepath.Join(configDir, configFileExt)
}
