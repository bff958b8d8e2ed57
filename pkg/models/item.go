package models

import (
	"fmt"
	"time"
)

// Kind identifies which level of the show hierarchy an item lives on.
type Kind int

const (
	KindShow Kind = iota
	KindSeason
	KindEpisode
)

func (k Kind) String() string {
	switch k {
	case KindShow:
		return "show"
	case KindSeason:
		return "season"
	case KindEpisode:
		return "episode"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Item is one of *Show, *Season or *Episode. The set is closed: the marker
// method is unexported so no other package can add a variant, and consumers
// switch over the three concrete types.
//
// Items are compared by pointer identity. Two episodes with identical fields
// are still different items.
type Item interface {
	ItemID() string
	Kind() Kind
	item()
}

// PlaceholderCategory classifies an expected-but-absent episode.
type PlaceholderCategory string

const (
	CategoryNone    PlaceholderCategory = ""
	CategoryMissing PlaceholderCategory = "missing" // aired, no file
	CategorySpecial PlaceholderCategory = "special" // season 0
	CategoryUnaired PlaceholderCategory = "unaired" // air date in the future
)

// Show is the top-level collection.
type Show struct {
	ID            string     `json:"id" yaml:"id"`
	Title         string     `json:"title" yaml:"title"`
	OriginalTitle string     `json:"original_title,omitempty" yaml:"original_title,omitempty"`
	Note          string     `json:"note,omitempty" yaml:"note,omitempty"`
	Rating        *float64   `json:"rating,omitempty" yaml:"rating,omitempty"`
	FirstAired    *time.Time `json:"first_aired,omitempty" yaml:"first_aired,omitempty"`

	Seasons []*Season `json:"seasons" yaml:"seasons"`
}

// Season groups episodes of a show by number.
type Season struct {
	ID     string `json:"id" yaml:"id"`
	Number int    `json:"number" yaml:"number"`

	Show     *Show      `json:"-" yaml:"-"`
	Episodes []*Episode `json:"episodes" yaml:"episodes"`
}

// Episode is a leaf. Placeholder episodes are known from metadata but have
// no media yet.
type Episode struct {
	ID            string              `json:"id" yaml:"id"`
	Number        int                 `json:"number" yaml:"number"`
	Title         string              `json:"title" yaml:"title"`
	OriginalTitle string              `json:"original_title,omitempty" yaml:"original_title,omitempty"`
	Note          string              `json:"note,omitempty" yaml:"note,omitempty"`
	AirDate       *time.Time          `json:"air_date,omitempty" yaml:"air_date,omitempty"`
	Watched       bool                `json:"watched" yaml:"watched"`
	MediaFiles    []string            `json:"media_files,omitempty" yaml:"media_files,omitempty"`
	Placeholder   bool                `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Category      PlaceholderCategory `json:"category,omitempty" yaml:"category,omitempty"`

	Season *Season `json:"-" yaml:"-"`
}

func (s *Show) ItemID() string { return s.ID }
func (s *Show) Kind() Kind     { return KindShow }
func (*Show) item()            {}

func (s *Season) ItemID() string { return s.ID }
func (s *Season) Kind() Kind     { return KindSeason }
func (*Season) item()            {}

func (e *Episode) ItemID() string { return e.ID }
func (e *Episode) Kind() Kind     { return KindEpisode }
func (*Episode) item()            {}

// Label is the text shown for the show in a tree.
func (s *Show) Label() string { return s.Title }

// Label is "Specials" for season 0 and "Season N" otherwise.
func (s *Season) Label() string {
	if s.Number == 0 {
		return "Specials"
	}
	return fmt.Sprintf("Season %d", s.Number)
}

// Label renders as "SxEE Title".
func (e *Episode) Label() string {
	season := 0
	if e.Season != nil {
		season = e.Season.Number
	}
	if e.Title == "" {
		return fmt.Sprintf("%dx%02d", season, e.Number)
	}
	return fmt.Sprintf("%dx%02d %s", season, e.Number, e.Title)
}

// Parent returns the domain container of an item, or nil for shows and for
// items detached from the domain.
func Parent(it Item) Item {
	switch v := it.(type) {
	case *Show:
		return nil
	case *Season:
		if v.Show == nil {
			return nil
		}
		return v.Show
	case *Episode:
		if v.Season == nil {
			return nil
		}
		return v.Season
	default:
		panic(fmt.Sprintf("models: unknown item type %T", it))
	}
}

// Label returns the display label of any item.
func Label(it Item) string {
	switch v := it.(type) {
	case *Show:
		return v.Label()
	case *Season:
		return v.Label()
	case *Episode:
		return v.Label()
	default:
		panic(fmt.Sprintf("models: unknown item type %T", it))
	}
}

// SeasonByNumber returns the season with the given number, or nil.
func (s *Show) SeasonByNumber(n int) *Season {
	for _, season := range s.Seasons {
		if season.Number == n {
			return season
		}
	}
	return nil
}

// EpisodeCount returns the number of real (non-placeholder) episodes.
func (s *Show) EpisodeCount() int {
	n := 0
	for _, season := range s.Seasons {
		for _, ep := range season.Episodes {
			if !ep.Placeholder {
				n++
			}
		}
	}
	return n
}

// UnwatchedCount returns the number of real episodes not yet watched.
func (s *Show) UnwatchedCount() int {
	n := 0
	for _, season := range s.Seasons {
		for _, ep := range season.Episodes {
			if !ep.Placeholder && !ep.Watched {
				n++
			}
		}
	}
	return n
}

// VisibleEpisodes returns the episodes that structurally belong in the
// season: every real episode, plus placeholders whose number is not already
// taken by a real episode.
func (s *Season) VisibleEpisodes() []*Episode {
	taken := make(map[int]bool, len(s.Episodes))
	for _, ep := range s.Episodes {
		if !ep.Placeholder {
			taken[ep.Number] = true
		}
	}
	out := make([]*Episode, 0, len(s.Episodes))
	for _, ep := range s.Episodes {
		if ep.Placeholder && taken[ep.Number] {
			continue
		}
		out = append(out, ep)
	}
	return out
}

// IsStructurallyVisible reports whether the episode is part of its season's
// VisibleEpisodes.
func (e *Episode) IsStructurallyVisible() bool {
	if e.Season == nil {
		return !e.Placeholder
	}
	for _, ep := range e.Season.VisibleEpisodes() {
		if ep == e {
			return true
		}
	}
	return false
}

// ClassifyPlaceholder derives the category of a placeholder episode from its
// season number and air date.
func ClassifyPlaceholder(e *Episode, now time.Time) PlaceholderCategory {
	if e.Season != nil && e.Season.Number == 0 {
		return CategorySpecial
	}
	if e.AirDate != nil && e.AirDate.After(now) {
		return CategoryUnaired
	}
	return CategoryMissing
}
