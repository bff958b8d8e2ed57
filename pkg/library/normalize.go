package library

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mattsolo1/grove-shows/pkg/models"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a title into an ID fragment: "The Wire!" -> "the-wire".
func Slug(title string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "untitled"
	}
	return s
}

// Normalize wires back-pointers, derives missing IDs, orders seasons and
// episodes by number and classifies placeholders without a category.
func Normalize(show *models.Show, now time.Time) {
	if show.ID == "" {
		show.ID = Slug(show.Title)
	}
	for _, season := range show.Seasons {
		season.Show = show
		normalizeSeason(show, season, now)
	}
	sortSeasons(show)
}

func seasonID(show *models.Show, number int) string {
	return fmt.Sprintf("%s/s%02d", show.ID, number)
}

// episodeID is the ID given to an episode that was loaded without one.
func episodeID(seasonID string, number int, placeholder bool) string {
	id := fmt.Sprintf("%s/e%02d", seasonID, number)
	if placeholder {
		id += "~"
	}
	return id
}

func normalizeSeason(show *models.Show, season *models.Season, now time.Time) {
	if season.ID == "" {
		season.ID = seasonID(show, season.Number)
	}
	for _, ep := range season.Episodes {
		ep.Season = season
		normalizeEpisode(season, ep, now)
	}
	sortEpisodes(season)
}

func normalizeEpisode(season *models.Season, ep *models.Episode, now time.Time) {
	if ep.ID == "" {
		ep.ID = episodeID(season.ID, ep.Number, ep.Placeholder)
	}
	if ep.Placeholder && ep.Category == models.CategoryNone {
		ep.Category = models.ClassifyPlaceholder(ep, now)
	}
	if !ep.Placeholder {
		ep.Category = models.CategoryNone
	}
}
