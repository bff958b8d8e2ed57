package sync

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-shows/pkg/library"
	"github.com/mattsolo1/grove-shows/pkg/models"
	"github.com/mattsolo1/grove-shows/pkg/store"
	"github.com/mattsolo1/grove-shows/pkg/tree"
)

type funcProvider func() []*models.Show

func (f funcProvider) Name() string { return "func" }

func (f funcProvider) Fetch(ctx context.Context) ([]*models.Show, error) {
	shows := f()
	for _, show := range shows {
		library.Normalize(show, time.Now())
	}
	return shows, nil
}

func quietLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func baseline() []*models.Show {
	return []*models.Show{{
		Title: "Alpha",
		Seasons: []*models.Season{{
			Number: 1,
			Episodes: []*models.Episode{
				{Number: 1, Title: "Pilot"},
				{Number: 2, Title: "Second"},
			},
		}},
	}}
}

func TestSyncIntoEmptyLibrary(t *testing.T) {
	lib := library.New(quietLogger())
	s := NewSyncer(lib, quietLogger())

	report, err := s.Sync(context.Background(), funcProvider(baseline))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Zero(t, report.Failed)

	_, ok := lib.Lookup("alpha/s01/e02")
	assert.True(t, ok)
}

func TestSyncIsStable(t *testing.T) {
	lib := library.New(quietLogger())
	s := NewSyncer(lib, quietLogger())
	_, err := s.Sync(context.Background(), funcProvider(baseline))
	require.NoError(t, err)

	var events []models.Event
	lib.AddListener(nil, func(ev models.Event) { events = append(events, ev) })

	report, err := s.Sync(context.Background(), funcProvider(baseline))
	require.NoError(t, err)
	assert.Equal(t, &Report{Provider: "func", Unchanged: 2}, report)
	assert.Empty(t, events)
}

func TestSyncAppliesDifferences(t *testing.T) {
	lib := library.New(quietLogger())
	s := NewSyncer(lib, quietLogger())
	_, err := s.Sync(context.Background(), funcProvider(baseline))
	require.NoError(t, err)

	next := func() []*models.Show {
		shows := baseline()
		season := shows[0].Seasons[0]
		season.Episodes[0].Watched = true
		season.Episodes = append(season.Episodes[:1], &models.Episode{Number: 3, Title: "Third"})
		shows = append(shows, &models.Show{Title: "Beta"})
		return shows
	}

	report, err := s.Sync(context.Background(), funcProvider(next))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created, "beta and the third episode")
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Removed)
	assert.Zero(t, report.Failed)

	pilot, ok := lib.Lookup("alpha/s01/e01")
	require.True(t, ok)
	assert.True(t, pilot.(*models.Episode).Watched)
	_, ok = lib.Lookup("alpha/s01/e02")
	assert.False(t, ok)
	_, ok = lib.Lookup("beta")
	assert.True(t, ok)

	report, err = s.Sync(context.Background(), funcProvider(func() []*models.Show { return nil }))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Removed)
	assert.Empty(t, lib.Shows())
}

func TestSyncRenumbersByExplicitID(t *testing.T) {
	lib := library.New(quietLogger())
	s := NewSyncer(lib, quietLogger())
	snapshot := func(season int) funcProvider {
		return func() []*models.Show {
			return []*models.Show{{
				Title: "Alpha",
				Seasons: []*models.Season{{
					Number:   season,
					Episodes: []*models.Episode{{ID: "pilot", Number: 1, Title: "Pilot"}},
				}},
			}}
		}
	}
	_, err := s.Sync(context.Background(), snapshot(1))
	require.NoError(t, err)

	var grouping []models.Event
	season1 := lib.Shows()[0].Seasons[0]
	lib.AddListener(season1, func(ev models.Event) {
		if ev.Kind == models.EventGroupingKeyChanged {
			grouping = append(grouping, ev)
		}
	})

	report, err := s.Sync(context.Background(), snapshot(2))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	require.Len(t, grouping, 1)
	assert.Same(t, season1, grouping[0].Old)

	show := lib.Shows()[0]
	require.Len(t, show.Seasons, 1, "the emptied season is dropped")
	assert.Equal(t, 2, show.Seasons[0].Number)
}

func TestSyncDrivesTree(t *testing.T) {
	lib := library.New(quietLogger())
	s := NewSyncer(lib, quietLogger())
	_, err := s.Sync(context.Background(), funcProvider(baseline))
	require.NoError(t, err)

	engine := tree.NewEngine(lib, tree.WithLogger(quietLogger()), tree.WithStrict(true))
	var changes []tree.Change
	engine.Observe(func(c tree.Change) { changes = append(changes, c) })
	show := engine.Children(engine.Root())[0]
	season := engine.Children(show)[0]
	require.Len(t, engine.Children(season), 2)

	shrink := func() []*models.Show {
		shows := baseline()
		shows[0].Seasons[0].Episodes = shows[0].Seasons[0].Episodes[:1]
		return shows
	}
	_, err = s.Sync(context.Background(), funcProvider(shrink))
	require.NoError(t, err)

	require.Len(t, changes, 1)
	assert.Equal(t, tree.NodeRemoved, changes[0].Kind)
	assert.Equal(t, "alpha/s01/e02", changes[0].Node.ID())
	assert.Len(t, engine.Children(season), 1)
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`shows:
  - title: Alpha
    seasons:
      - number: 1
        episodes:
          - number: 1
            title: Pilot
`), 0644))

	p := &FileProvider{Path: path}
	assert.Equal(t, "yaml", p.Name())
	shows, err := p.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, shows, 1)
	assert.Equal(t, "alpha/s01/e01", shows[0].Seasons[0].Episodes[0].ID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStoreProvider(t *testing.T) {
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	shows := baseline()
	library.Normalize(shows[0], time.Now())
	require.NoError(t, st.Save(shows))

	lib := library.New(quietLogger())
	report, err := NewSyncer(lib, quietLogger()).Sync(context.Background(), &StoreProvider{Store: st})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", report.Provider)
	assert.Equal(t, 1, report.Created)
	_, ok := lib.Lookup("alpha/s01/e01")
	assert.True(t, ok)
}

func TestDecodeSources(t *testing.T) {
	sources, err := DecodeSources([]any{
		map[string]any{"provider": "yaml", "path": "/tmp/library.yaml"},
		map[string]any{"provider": "sqlite", "path": "/tmp/data"},
	})
	require.NoError(t, err)
	assert.Equal(t, []SourceConfig{
		{Provider: "yaml", Path: "/tmp/library.yaml"},
		{Provider: "sqlite", Path: "/tmp/data"},
	}, sources)

	empty, err := DecodeSources(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = DecodeSources("nope")
	assert.Error(t, err)
	_, err = DecodeSources([]any{map[string]any{"path": "x"}})
	assert.Error(t, err)
	_, err = DecodeSources([]any{map[string]any{"provider": "yaml"}})
	assert.Error(t, err)

	_, _, err = NewProvider(SourceConfig{Provider: "ftp", Path: "x"})
	assert.Error(t, err)
}

func TestMultiProvider(t *testing.T) {
	beta := funcProvider(func() []*models.Show {
		return []*models.Show{{Title: "Beta"}, {Title: "Alpha", Note: "shadowed"}}
	})
	m := MultiProvider{funcProvider(baseline), beta}
	assert.Equal(t, "func+func", m.Name())

	shows, err := m.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, shows, 2)
	assert.Equal(t, "alpha", shows[0].ID)
	assert.Empty(t, shows[0].Note)
	assert.Equal(t, "beta", shows[1].ID)

	failing := MultiProvider{&FileProvider{Path: filepath.Join(t.TempDir(), "missing.yaml")}}
	_, err = failing.Fetch(context.Background())
	assert.Error(t, err)
}

func TestMarkdownProvider(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alpha.md"), []byte(`---
title: Alpha
rating: 7.5
seasons:
  - number: 1
    episodes:
      - number: 1
        title: Pilot
---

Started on a plane.
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Shows\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("---\ntitle: Nope\n---\n"), 0644))

	p, st, err := NewProvider(SourceConfig{Provider: "markdown", Path: dir})
	require.NoError(t, err)
	assert.Nil(t, st)
	assert.Equal(t, "markdown", p.Name())

	shows, err := p.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, shows, 1)
	assert.Equal(t, "alpha", shows[0].ID)
	assert.Equal(t, "Started on a plane.", shows[0].Note)
	assert.Equal(t, "alpha/s01/e01", shows[0].Seasons[0].Episodes[0].ID)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "alpha-again.md"), []byte("---\ntitle: Alpha\n---\n"), 0644))
	_, err = p.Fetch(context.Background())
	assert.ErrorIs(t, err, library.ErrDuplicate)
}

func TestWriteMarkdown(t *testing.T) {
	shows := baseline()
	library.Normalize(shows[0], time.Now())
	shows[0].Note = "notes"
	dir := filepath.Join(t.TempDir(), "shows")

	require.NoError(t, WriteMarkdown(dir, shows))

	back, err := (&MarkdownProvider{Dir: dir}).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, "notes", back[0].Note)
	assert.Len(t, back[0].Seasons[0].Episodes, 2)

	lib := library.New(quietLogger())
	s := NewSyncer(lib, quietLogger())
	_, err = s.Sync(context.Background(), funcProvider(baseline))
	require.NoError(t, err)
	report, err := s.Sync(context.Background(), &MarkdownProvider{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Unchanged)
	assert.Zero(t, report.Created+report.Removed+report.Failed)
	assert.Equal(t, "notes", lib.Shows()[0].Note)
}
