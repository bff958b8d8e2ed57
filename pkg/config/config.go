// Package config holds the settings shared by every command, decoded from
// viper.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-shows/pkg/columns"
	"github.com/mattsolo1/grove-shows/pkg/sync"
	"github.com/mattsolo1/grove-shows/pkg/tree"
)

// SortSettings selects the initial sort column.
type SortSettings struct {
	Column     string `mapstructure:"column"`
	Descending bool   `mapstructure:"descending"`
}

// Settings is the decoded configuration.
type Settings struct {
	DataDir      string                `mapstructure:"data_dir"`
	Library      string                `mapstructure:"library"`
	LogLevel     string                `mapstructure:"log_level"`
	Strict       bool                  `mapstructure:"strict"`
	Placeholders tree.VisibilityPolicy `mapstructure:"placeholders"`
	Filter       tree.FilterFields     `mapstructure:"filter"`
	Sort         SortSettings          `mapstructure:"sort"`
	Sources      []sync.SourceConfig   `mapstructure:"-"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".local", "share", "shows")

	v.SetDefault("data_dir", dataDir)
	v.SetDefault("library", filepath.Join(dataDir, "library.yaml"))
	v.SetDefault("log_level", "warn")
	v.SetDefault("strict", false)
	v.SetDefault("placeholders.show_missing", false)
	v.SetDefault("placeholders.show_specials", false)
	v.SetDefault("placeholders.show_unaired", false)
	v.SetDefault("filter.label", true)
	v.SetDefault("filter.title", true)
	v.SetDefault("filter.original_title", true)
	v.SetDefault("filter.note", false)
	v.SetDefault("sort.column", columns.Default[columns.Title].Name)
	v.SetDefault("sort.descending", false)
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	sources, err := sync.DecodeSources(v.Get("sources"))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	s.Sources = sources

	if _, err := logrus.ParseLevel(s.LogLevel); err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	if _, err := columns.Lookup(s.Sort.Column); err != nil {
		return nil, fmt.Errorf("sort.column: %w", err)
	}
	return &s, nil
}

// SortState converts the sort settings into the strategy's state.
func (s *Settings) SortState() tree.SortState {
	col, err := columns.Lookup(s.Sort.Column)
	if err != nil {
		col = columns.Title
	}
	dir := tree.Ascending
	if s.Sort.Descending {
		dir = tree.Descending
	}
	return tree.SortState{Column: col, Direction: dir}
}

// NewLogger builds the process logger at the configured level.
func (s *Settings) NewLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	level, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	return logger
}
