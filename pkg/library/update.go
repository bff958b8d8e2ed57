package library

import (
	"fmt"
	"slices"
	"time"

	"github.com/mattsolo1/grove-shows/pkg/models"
)

// UpdateShow copies the descriptive fields of src onto show, firing one
// field-changed event per field that actually differs. Seasons are left
// alone.
func (l *Library) UpdateShow(show, src *models.Show) error {
	if indexOf(l.shows, show) < 0 {
		return fmt.Errorf("update show: %w", ErrNotFound)
	}
	changed := func(field string, old, cur any) {
		l.emit(show, models.Event{Kind: models.EventFieldChanged, Item: show, Field: field, Old: old, New: cur})
	}
	if show.Title != src.Title {
		old := show.Title
		show.Title = src.Title
		changed("title", old, src.Title)
	}
	if show.OriginalTitle != src.OriginalTitle {
		old := show.OriginalTitle
		show.OriginalTitle = src.OriginalTitle
		changed("original_title", old, src.OriginalTitle)
	}
	if show.Note != src.Note {
		old := show.Note
		show.Note = src.Note
		changed("note", old, src.Note)
	}
	if !equalFloat(show.Rating, src.Rating) {
		old := show.Rating
		show.Rating = src.Rating
		changed("rating", old, src.Rating)
	}
	if !equalTime(show.FirstAired, src.FirstAired) {
		old := show.FirstAired
		show.FirstAired = src.FirstAired
		changed("first_aired", old, src.FirstAired)
	}
	return nil
}

// UpdateEpisode copies the descriptive fields of src onto ep. Numbering and
// placeholder state are structural and go through Renumber and SetPlaceholder.
func (l *Library) UpdateEpisode(ep, src *models.Episode) error {
	if ep.Season == nil || indexOf(ep.Season.Episodes, ep) < 0 {
		return fmt.Errorf("update episode: %w", ErrNotFound)
	}
	changed := func(field string, old, cur any) {
		l.emit(ep, models.Event{Kind: models.EventFieldChanged, Item: ep, Field: field, Old: old, New: cur})
	}
	if ep.Title != src.Title {
		old := ep.Title
		ep.Title = src.Title
		changed("title", old, src.Title)
	}
	if ep.OriginalTitle != src.OriginalTitle {
		old := ep.OriginalTitle
		ep.OriginalTitle = src.OriginalTitle
		changed("original_title", old, src.OriginalTitle)
	}
	if ep.Note != src.Note {
		old := ep.Note
		ep.Note = src.Note
		changed("note", old, src.Note)
	}
	if !equalTime(ep.AirDate, src.AirDate) {
		old := ep.AirDate
		ep.AirDate = src.AirDate
		changed("air_date", old, src.AirDate)
	}
	if !slices.Equal(ep.MediaFiles, src.MediaFiles) && !ep.Placeholder {
		old := ep.MediaFiles
		ep.MediaFiles = append([]string(nil), src.MediaFiles...)
		changed("media_files", old, ep.MediaFiles)
	}
	if ep.Watched != src.Watched {
		return l.SetWatched(ep, src.Watched)
	}
	return nil
}

// SetPlaceholder turns a real episode into a placeholder or back. The
// category is recomputed when the episode becomes a placeholder.
func (l *Library) SetPlaceholder(ep *models.Episode, placeholder bool) error {
	season := ep.Season
	if season == nil || indexOf(season.Episodes, ep) < 0 {
		return fmt.Errorf("set placeholder: %w", ErrNotFound)
	}
	if ep.Placeholder == placeholder {
		return nil
	}
	ep.Placeholder = placeholder
	if placeholder {
		ep.MediaFiles = nil
		ep.Category = models.ClassifyPlaceholder(ep, l.now())
	} else {
		ep.Category = models.CategoryNone
	}
	l.emit(season, models.Event{
		Kind:  models.EventGroupingKeyChanged,
		Item:  ep,
		Field: "placeholder",
		Old:   season,
		New:   season,
	})
	l.countsChanged(season)
	return nil
}

// SetCategory reclassifies a placeholder, e.g. when its air date passes.
func (l *Library) SetCategory(ep *models.Episode, category models.PlaceholderCategory) error {
	if ep.Season == nil || indexOf(ep.Season.Episodes, ep) < 0 {
		return fmt.Errorf("set category: %w", ErrNotFound)
	}
	if !ep.Placeholder || ep.Category == category {
		return nil
	}
	ep.Category = category
	l.emit(ep.Season, models.Event{
		Kind:  models.EventGroupingKeyChanged,
		Item:  ep,
		Field: "category",
		Old:   ep.Season,
		New:   ep.Season,
	})
	return nil
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
