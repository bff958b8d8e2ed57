// Package columns defines the data columns of the show table and the
// comparators used to order shows by them.
package columns

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mattsolo1/grove-shows/pkg/models"
)

// Comparator orders two shows, returning a negative number, zero or a
// positive number. Absent values sort lowest.
type Comparator func(a, b *models.Show) int

// Column is one sortable data column.
type Column struct {
	Name    string
	Header  string
	Compare Comparator
	// Value renders the cell for a show; empty when absent.
	Value func(*models.Show) string
}

// Indexes into Default.
const (
	Title = iota
	OriginalTitle
	Rating
	FirstAired
	Episodes
	Unwatched
)

// Default is the column set used by the CLI.
var Default = []Column{
	Title: {
		Name:    "title",
		Header:  "TITLE",
		Compare: func(a, b *models.Show) int { return CompareText(a.Title, b.Title) },
		Value:   func(s *models.Show) string { return s.Title },
	},
	OriginalTitle: {
		Name:    "original_title",
		Header:  "ORIGINAL TITLE",
		Compare: func(a, b *models.Show) int { return CompareText(a.OriginalTitle, b.OriginalTitle) },
		Value:   func(s *models.Show) string { return s.OriginalTitle },
	},
	Rating: {
		Name:    "rating",
		Header:  "RATING",
		Compare: func(a, b *models.Show) int { return compareFloat(a.Rating, b.Rating) },
		Value: func(s *models.Show) string {
			if s.Rating == nil {
				return ""
			}
			return strconv.FormatFloat(*s.Rating, 'f', 1, 64)
		},
	},
	FirstAired: {
		Name:    "first_aired",
		Header:  "FIRST AIRED",
		Compare: func(a, b *models.Show) int { return compareTime(a.FirstAired, b.FirstAired) },
		Value: func(s *models.Show) string {
			if s.FirstAired == nil {
				return ""
			}
			return s.FirstAired.Format("2006-01-02")
		},
	},
	Episodes: {
		Name:    "episodes",
		Header:  "EPISODES",
		Compare: func(a, b *models.Show) int { return compareInt(a.EpisodeCount(), b.EpisodeCount()) },
		Value:   func(s *models.Show) string { return strconv.Itoa(s.EpisodeCount()) },
	},
	Unwatched: {
		Name:    "unwatched",
		Header:  "UNWATCHED",
		Compare: func(a, b *models.Show) int { return compareInt(a.UnwatchedCount(), b.UnwatchedCount()) },
		Value:   func(s *models.Show) string { return strconv.Itoa(s.UnwatchedCount()) },
	},
}

// Lookup returns the index of the column called name in Default.
func Lookup(name string) (int, error) {
	for i, c := range Default {
		if strings.EqualFold(c.Name, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown column %q", name)
}

// Names lists the column names in Default order.
func Names() []string {
	out := make([]string, len(Default))
	for i, c := range Default {
		out[i] = c.Name
	}
	return out
}

var (
	collatorMu sync.Mutex
	collator   = collate.New(language.English, collate.IgnoreCase, collate.IgnoreDiacritics)
)

// CompareText compares two strings case-insensitively using locale-aware
// collation. An empty string is treated as absent and sorts lowest.
func CompareText(a, b string) int {
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

func compareFloat(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}

func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
