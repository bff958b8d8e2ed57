package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mattsolo1/grove-shows/pkg/library"
	"github.com/mattsolo1/grove-shows/pkg/models"
	"github.com/mattsolo1/grove-shows/pkg/store"
)

// Provider defines the interface for a source of show snapshots (a library
// file, a database).
type Provider interface {
	// Name returns the provider's name (e.g., "yaml").
	Name() string
	// Fetch returns a fresh, normalised snapshot. The returned shows are
	// owned by the caller and may be handed to the library.
	Fetch(ctx context.Context) ([]*models.Show, error)
}

// Report summarizes the results of a sync operation.
type Report struct {
	Provider  string
	Created   int
	Updated   int
	Removed   int
	Unchanged int
	Failed    int
	Errors    []string // Detailed error messages
}

func (r *Report) String() string {
	return fmt.Sprintf("%s: %d created, %d updated, %d removed, %d unchanged, %d failed",
		r.Provider, r.Created, r.Updated, r.Removed, r.Unchanged, r.Failed)
}

// FileProvider reads a YAML library file.
type FileProvider struct {
	Path string
	Now  func() time.Time
}

func (p *FileProvider) Name() string { return "yaml" }

func (p *FileProvider) Fetch(ctx context.Context) ([]*models.Show, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shows, err := library.LoadFile(p.Path)
	if err != nil {
		return nil, err
	}
	if p.Now != nil {
		now := p.Now()
		for _, show := range shows {
			library.Normalize(show, now)
		}
	}
	return shows, nil
}

// StoreProvider reads the SQLite store.
type StoreProvider struct {
	Store *store.Store
}

func (p *StoreProvider) Name() string { return "sqlite" }

func (p *StoreProvider) Fetch(ctx context.Context) ([]*models.Show, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shows, err := p.Store.Load()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for _, show := range shows {
		library.Normalize(show, now)
	}
	return shows, nil
}

// MultiProvider concatenates the snapshots of several providers. When two
// providers return a show with the same ID, the first one wins.
type MultiProvider []Provider

func (m MultiProvider) Name() string {
	names := make([]string, len(m))
	for i, p := range m {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

func (m MultiProvider) Fetch(ctx context.Context) ([]*models.Show, error) {
	var out []*models.Show
	seen := make(map[string]bool)
	for _, p := range m {
		shows, err := p.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name(), err)
		}
		for _, show := range shows {
			if seen[show.ID] {
				continue
			}
			seen[show.ID] = true
			out = append(out, show)
		}
	}
	return out, nil
}
