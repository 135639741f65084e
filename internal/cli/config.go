package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/taskstore/internal/paths"
	"github.com/mesh-intelligence/taskstore/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "TASKSTORE"

	cfgKeyDataDir          = "data_dir"
	cfgKeyDBFile           = "db_file"
	cfgKeyDeepPropagation  = "deep_project_propagation"
	cfgKeySingleOpenRecord = "single_open_record"
	cfgKeyLogLevel         = "log_level"
)

// configFile is the structure written to config.yaml.
type configFile struct {
	DataDir                string `yaml:"data_dir,omitempty"`
	DBFile                 string `yaml:"db_file"`
	DeepProjectPropagation bool   `yaml:"deep_project_propagation"`
	SingleOpenRecord       bool   `yaml:"single_open_record"`
	LogLevel               string `yaml:"log_level"`
}

func defaultConfigFile() configFile {
	return configFile{DBFile: types.DefaultDBFile, LogLevel: "warn"}
}

// loadConfig reads config.yaml from configDir using Viper, creating the
// directory and a default file on first run. TASKSTORE_* environment
// variables override file values.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), defaultConfigFile()); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}

	v := viper.New()
	def := defaultConfigFile()
	v.SetDefault(cfgKeyDBFile, def.DBFile)
	v.SetDefault(cfgKeyLogLevel, def.LogLevel)
	v.SetDefault(cfgKeyDeepPropagation, false)
	v.SetDefault(cfgKeySingleOpenRecord, false)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// writeConfigIfMissing creates path from cfg unless it already exists.
func writeConfigIfMissing(path string, cfg configFile) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# taskstore configuration. TASKSTORE_<KEY> environment variables override these values.\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}

// storeConfig turns flags and loaded configuration into a types.Config.
func (a *app) storeConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.dataDir, a.config.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return types.Config{
		DataDir:                dataDir,
		DBFile:                 a.config.GetString(cfgKeyDBFile),
		DeepProjectPropagation: a.config.GetBool(cfgKeyDeepPropagation),
		SingleOpenRecord:       a.config.GetBool(cfgKeySingleOpenRecord),
	}, nil
}
