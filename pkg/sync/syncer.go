package sync

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-shows/pkg/library"
	"github.com/mattsolo1/grove-shows/pkg/models"
)

// Syncer reconciles snapshots into a live library through its mutation API,
// so every difference reaches listeners as a domain event.
type Syncer struct {
	lib    *library.Library
	logger *logrus.Entry
}

// NewSyncer creates a new Syncer.
func NewSyncer(lib *library.Library, logger *logrus.Entry) *Syncer {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Syncer{lib: lib, logger: logger.WithField("component", "sync")}
}

// Sync fetches a snapshot from provider and applies it. Shows and episodes
// are matched by ID; seasons by number. Individual failures are counted in
// the report and do not stop the run.
func (s *Syncer) Sync(ctx context.Context, provider Provider) (*Report, error) {
	report := &Report{Provider: provider.Name()}

	// 1. Fetch the snapshot and map it by ID
	snapshot, err := provider.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("provider %s fetch failed: %w", provider.Name(), err)
	}
	wanted := make(map[string]*models.Show, len(snapshot))
	for _, show := range snapshot {
		wanted[show.ID] = show
	}

	// 2. Shows that disappeared
	for _, live := range s.lib.Shows() {
		if _, ok := wanted[live.ID]; ok {
			continue
		}
		if err := s.lib.RemoveShow(live); err != nil {
			s.fail(report, err)
			continue
		}
		report.Removed++
	}

	// 3. Shows that are new or changed
	for _, snap := range snapshot {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		item, ok := s.lib.Lookup(snap.ID)
		if !ok {
			if err := s.lib.AddShow(snap); err != nil {
				s.fail(report, err)
				continue
			}
			report.Created++
			continue
		}
		live, ok := item.(*models.Show)
		if !ok {
			s.fail(report, fmt.Errorf("show %q: id belongs to a %s", snap.ID, item.Kind()))
			continue
		}
		s.syncShow(report, live, snap)
	}

	s.logger.WithField("report", report.String()).Info("Sync finished")
	return report, nil
}

func (s *Syncer) syncShow(report *Report, live, snap *models.Show) {
	changed := showChanged(live, snap)
	if changed {
		if err := s.lib.UpdateShow(live, snap); err != nil {
			s.fail(report, err)
		}
	}

	liveEpisodes := make(map[string]*models.Episode)
	for _, season := range live.Seasons {
		for _, ep := range season.Episodes {
			liveEpisodes[ep.ID] = ep
		}
	}
	snapIDs := make(map[string]bool)
	for _, season := range snap.Seasons {
		for _, ep := range season.Episodes {
			snapIDs[ep.ID] = true
		}
	}

	// Removals first so IDs are free before anything is added back.
	for _, season := range live.Seasons {
		for _, ep := range slices.Clone(season.Episodes) {
			if snapIDs[ep.ID] {
				continue
			}
			if err := s.lib.RemoveEpisode(ep); err != nil {
				s.fail(report, err)
				continue
			}
			delete(liveEpisodes, ep.ID)
			report.Removed++
		}
	}

	for _, snapSeason := range snap.Seasons {
		liveSeason := live.SeasonByNumber(snapSeason.Number)
		if liveSeason == nil {
			liveSeason = &models.Season{ID: snapSeason.ID, Number: snapSeason.Number}
			if err := s.lib.AddSeason(live, liveSeason); err != nil {
				s.fail(report, err)
				continue
			}
		}
		for _, snapEp := range snapSeason.Episodes {
			liveEp, ok := liveEpisodes[snapEp.ID]
			if !ok {
				snapEp.Season = nil
				if err := s.lib.AddEpisode(liveSeason, snapEp); err != nil {
					s.fail(report, err)
					continue
				}
				report.Created++
				continue
			}
			updated, err := s.syncEpisode(liveEp, snapSeason.Number, snapEp)
			if err != nil {
				s.fail(report, err)
				continue
			}
			if updated {
				report.Updated++
				changed = true
			} else {
				report.Unchanged++
			}
		}
	}

	// Seasons that are gone from the snapshot and hold nothing any more.
	for _, season := range slices.Clone(live.Seasons) {
		if snap.SeasonByNumber(season.Number) != nil || len(season.Episodes) > 0 {
			continue
		}
		if err := s.lib.RemoveSeason(season); err != nil {
			s.fail(report, err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"show":    live.ID,
		"changed": changed,
	}).Debug("Synced show")
}

// syncEpisode applies structural changes (numbering, placeholder state)
// before descriptive ones, and reports whether anything differed.
func (s *Syncer) syncEpisode(live *models.Episode, seasonNumber int, snap *models.Episode) (bool, error) {
	updated := false
	if live.Season.Number != seasonNumber || live.Number != snap.Number {
		if err := s.lib.Renumber(live, seasonNumber, snap.Number); err != nil {
			return updated, err
		}
		updated = true
	}
	if live.Placeholder != snap.Placeholder {
		if err := s.lib.SetPlaceholder(live, snap.Placeholder); err != nil {
			return updated, err
		}
		updated = true
	}
	if live.Placeholder && snap.Category != models.CategoryNone && live.Category != snap.Category {
		if err := s.lib.SetCategory(live, snap.Category); err != nil {
			return updated, err
		}
		updated = true
	}
	if episodeChanged(live, snap) {
		if err := s.lib.UpdateEpisode(live, snap); err != nil {
			return updated, err
		}
		updated = true
	}
	return updated, nil
}

func (s *Syncer) fail(report *Report, err error) {
	report.Failed++
	report.Errors = append(report.Errors, err.Error())
	s.logger.WithError(err).Warn("Sync step failed")
}

func showChanged(a, b *models.Show) bool {
	return a.Title != b.Title ||
		a.OriginalTitle != b.OriginalTitle ||
		a.Note != b.Note ||
		!equalFloat(a.Rating, b.Rating) ||
		!equalTime(a.FirstAired, b.FirstAired)
}

func episodeChanged(a, b *models.Episode) bool {
	return a.Title != b.Title ||
		a.OriginalTitle != b.OriginalTitle ||
		a.Note != b.Note ||
		a.Watched != b.Watched ||
		!equalTime(a.AirDate, b.AirDate) ||
		(!a.Placeholder && !slices.Equal(a.MediaFiles, b.MediaFiles))
}

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
