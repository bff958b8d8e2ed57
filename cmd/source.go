package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-shows/pkg/config"
	"github.com/mattsolo1/grove-shows/pkg/store"
	"github.com/mattsolo1/grove-shows/pkg/sync"
)

// openProvider builds the snapshot provider for the configured sources,
// falling back to the library file. The returned close func releases any
// stores that were opened.
func openProvider(s *config.Settings, fromStore bool) (sync.Provider, []string, func(), error) {
	sources := s.Sources
	switch {
	case fromStore:
		sources = []sync.SourceConfig{{Provider: "sqlite", Path: s.DataDir}}
	case len(sources) == 0:
		sources = []sync.SourceConfig{{Provider: "yaml", Path: s.Library}}
	}

	var (
		providers []sync.Provider
		paths     []string
		stores    []*store.Store
	)
	closeAll := func() {
		for _, st := range stores {
			_ = st.Close()
		}
	}
	for _, src := range sources {
		p, st, err := sync.NewProvider(src)
		if err != nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("source %s: %w", src.Path, err)
		}
		providers = append(providers, p)
		if st != nil {
			stores = append(stores, st)
			paths = append(paths, st.Path())
		} else {
			paths = append(paths, src.Path)
		}
	}

	if len(providers) == 1 {
		return providers[0], paths, closeAll, nil
	}
	return sync.MultiProvider(providers), paths, closeAll, nil
}

func newLogger(s *config.Settings, out io.Writer) *logrus.Entry {
	return logrus.NewEntry(s.NewLogger(out))
}
