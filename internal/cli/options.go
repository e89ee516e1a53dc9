package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/JonMunkholm/datacleaner/internal/config"
	"github.com/JonMunkholm/datacleaner/internal/core"
)

// DefaultConfigName is the base name of the optional pipeline config file,
// searched in the working directory and the home directory.
const DefaultConfigName = ".cleanctl"

// FileConfig is the shape of .cleanctl.yaml. Unset keys keep the values
// loaded from the environment.
type FileConfig struct {
	Cleaning struct {
		DedupKeep        string   `mapstructure:"dedup_keep"`
		RemoveOutliers   bool     `mapstructure:"remove_outliers"`
		OutlierMethod    string   `mapstructure:"outlier_method"`
		OutlierThreshold float64  `mapstructure:"outlier_threshold"`
		OutlierColumns   []string `mapstructure:"outlier_columns"`
	} `mapstructure:"cleaning"`

	Advisor struct {
		Provider string `mapstructure:"provider"`
		Model    string `mapstructure:"model"`
	} `mapstructure:"advisor"`

	// Aliases replaces the built-in alias table when non-empty.
	Aliases core.AliasTable `mapstructure:"aliases"`
}

// LoadOptions overlays the config file at path on cfg and returns the
// pipeline options. An empty path searches for .cleanctl.yaml and is not an
// error when none exists; an explicit path must exist.
func LoadOptions(path string, cfg *config.Config) (core.Options, error) {
	v := viper.New()
	v.SetDefault("cleaning.dedup_keep", cfg.Cleaning.DedupKeep)
	v.SetDefault("cleaning.remove_outliers", cfg.Cleaning.RemoveOutliers)
	v.SetDefault("cleaning.outlier_method", cfg.Cleaning.OutlierMethod)
	v.SetDefault("cleaning.outlier_threshold", cfg.Cleaning.OutlierThreshold)
	v.SetDefault("cleaning.outlier_columns", cfg.Cleaning.OutlierColumns)
	v.SetDefault("advisor.provider", cfg.Advisor.Provider)
	v.SetDefault("advisor.model", cfg.Advisor.Model)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return core.Options{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return core.Options{}, fmt.Errorf("decode config file: %w", err)
	}

	cfg.Cleaning.DedupKeep = fc.Cleaning.DedupKeep
	cfg.Cleaning.RemoveOutliers = fc.Cleaning.RemoveOutliers
	cfg.Cleaning.OutlierMethod = fc.Cleaning.OutlierMethod
	cfg.Cleaning.OutlierThreshold = fc.Cleaning.OutlierThreshold
	cfg.Cleaning.OutlierColumns = fc.Cleaning.OutlierColumns
	cfg.Advisor.Provider = strings.ToLower(fc.Advisor.Provider)
	cfg.Advisor.Model = fc.Advisor.Model

	opts, err := core.OptionsFromConfig(cfg.Cleaning)
	if err != nil {
		return core.Options{}, err
	}
	if len(fc.Aliases) > 0 {
		opts.Aliases = fc.Aliases
	}
	return opts, nil
}
