package sync

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/mattsolo1/grove-shows/pkg/store"
)

// SourceConfig holds the configuration for a single snapshot source.
type SourceConfig struct {
	Provider string `mapstructure:"provider"`
	Path     string `mapstructure:"path"`
}

// DecodeSources decodes the raw `sources` configuration value, a list of
// maps as produced by viper.
func DecodeSources(raw any) ([]SourceConfig, error) {
	if raw == nil {
		return []SourceConfig{}, nil
	}

	entries, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("sources config is not a list")
	}

	var sources []SourceConfig
	for i, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("source entry %d is not a map", i)
		}

		var src SourceConfig
		if err := mapstructure.Decode(m, &src); err != nil {
			return nil, fmt.Errorf("failed to decode source entry %d: %w", i, err)
		}

		if src.Provider == "" {
			return nil, fmt.Errorf("source entry %d missing 'provider' field", i)
		}
		if src.Path == "" {
			return nil, fmt.Errorf("source entry %d missing 'path' field", i)
		}
		sources = append(sources, src)
	}

	return sources, nil
}

// NewProvider builds the provider a source describes. Stores opened here
// are returned so the caller can close them.
func NewProvider(src SourceConfig) (Provider, *store.Store, error) {
	switch src.Provider {
	case "yaml", "file":
		return &FileProvider{Path: src.Path}, nil, nil
	case "markdown":
		return &MarkdownProvider{Dir: src.Path}, nil, nil
	case "sqlite":
		st, err := store.Open(src.Path)
		if err != nil {
			return nil, nil, err
		}
		return &StoreProvider{Store: st}, st, nil
	default:
		return nil, nil, fmt.Errorf("unsupported provider %q", src.Provider)
	}
}
