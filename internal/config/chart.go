package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// ChartConfig configures the local chart tool.
type ChartConfig struct {
	DataDir    string `mapstructure:"CLINREC_DATA_DIR"`
	Locale     string `mapstructure:"CLINREC_LOCALE"`
	Physician  string `mapstructure:"CLINREC_PHYSICIAN"`
	Speciality string `mapstructure:"CLINREC_SPECIALITY"`
	LogLevel   string `mapstructure:"CLINREC_LOG_LEVEL"`
}

// LoadChart reads chart settings from the environment. Values bound to flags
// through v take precedence; pass nil to use a fresh viper instance.
func LoadChart(v *viper.Viper) (*ChartConfig, error) {
	if v == nil {
		v = viper.New()
	}
	v.AutomaticEnv()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	v.SetDefault("CLINREC_DATA_DIR", filepath.Join(home, ".clinrec"))
	v.SetDefault("CLINREC_LOCALE", "es")
	v.SetDefault("CLINREC_LOG_LEVEL", "info")

	for _, k := range []string{"CLINREC_DATA_DIR", "CLINREC_LOCALE", "CLINREC_PHYSICIAN", "CLINREC_SPECIALITY", "CLINREC_LOG_LEVEL"} {
		v.BindEnv(k)
	}

	cfg := &ChartConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal chart config: %w", err)
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("CLINREC_DATA_DIR must not be empty")
	}
	return cfg, nil
}

// Language parses Locale, falling back to Spanish.
func (c *ChartConfig) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Spanish
	}
	return tag
}
