// Package frontmatter reads and writes show files: Markdown documents whose
// YAML front matter describes a show and whose body is the show's note.
package frontmatter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mattsolo1/grove-shows/pkg/models"
)

var frontmatterPattern = regexp.MustCompile(`(?s)^---\n(.*?)\n---\n?(.*)`)

const dateLayout = "2006-01-02"

// Frontmatter represents the structured metadata at the beginning of a show file
type Frontmatter struct {
	ID            string           `yaml:"id,omitempty"`
	Title         string           `yaml:"title"`
	OriginalTitle string           `yaml:"original_title,omitempty"`
	Rating        *float64         `yaml:"rating,omitempty"`
	FirstAired    string           `yaml:"first_aired,omitempty"`
	Seasons       []*models.Season `yaml:"seasons,omitempty"`
}

// Parse extracts frontmatter from content and returns the parsed data and body
func Parse(content string) (*Frontmatter, string, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	matches := frontmatterPattern.FindStringSubmatch(content)
	if len(matches) != 3 {
		// No frontmatter found
		return nil, content, nil
	}

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(matches[1]), &fm); err != nil {
		return nil, content, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	return &fm, matches[2], nil
}

// Build creates the YAML frontmatter string from a Frontmatter struct
func Build(fm *Frontmatter) (string, error) {
	var sb strings.Builder

	sb.WriteString("---\n")

	// Scalars in a fixed order, seasons last
	if fm.ID != "" {
		sb.WriteString(fmt.Sprintf("id: %s\n", quote(fm.ID)))
	}
	sb.WriteString(fmt.Sprintf("title: %s\n", quote(fm.Title)))
	if fm.OriginalTitle != "" {
		sb.WriteString(fmt.Sprintf("original_title: %s\n", quote(fm.OriginalTitle)))
	}
	if fm.Rating != nil {
		sb.WriteString(fmt.Sprintf("rating: %s\n", strconv.FormatFloat(*fm.Rating, 'f', -1, 64)))
	}
	if fm.FirstAired != "" {
		sb.WriteString(fmt.Sprintf("first_aired: %s\n", fm.FirstAired))
	}

	if len(fm.Seasons) > 0 {
		seasons, err := yaml.Marshal(map[string][]*models.Season{"seasons": fm.Seasons})
		if err != nil {
			return "", fmt.Errorf("failed to encode seasons: %w", err)
		}
		sb.Write(seasons)
	}

	sb.WriteString("---")

	return sb.String(), nil
}

// BuildContent combines frontmatter and body content into a complete document
func BuildContent(fm *Frontmatter, bodyContent string) (string, error) {
	frontmatterStr, err := Build(fm)
	if err != nil {
		return "", err
	}
	if bodyContent == "" {
		return frontmatterStr + "\n", nil
	}

	// Ensure proper spacing between frontmatter and body
	if !strings.HasPrefix(bodyContent, "\n") {
		return frontmatterStr + "\n\n" + bodyContent, nil
	}
	return frontmatterStr + "\n" + bodyContent, nil
}

// FormatDate formats a time.Time into the frontmatter date format
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate parses a frontmatter date. Full RFC 3339 timestamps are
// accepted too.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// ToShow builds a show from a parsed document. The trimmed body becomes
// the note. IDs are left for normalisation to fill in.
func ToShow(fm *Frontmatter, body string) (*models.Show, error) {
	if strings.TrimSpace(fm.Title) == "" {
		return nil, fmt.Errorf("show file has no title")
	}
	show := &models.Show{
		ID:            fm.ID,
		Title:         fm.Title,
		OriginalTitle: fm.OriginalTitle,
		Rating:        fm.Rating,
		Note:          strings.TrimSpace(body),
		Seasons:       fm.Seasons,
	}
	if fm.FirstAired != "" {
		t, err := ParseDate(fm.FirstAired)
		if err != nil {
			return nil, fmt.Errorf("first_aired: %w", err)
		}
		show.FirstAired = &t
	}
	return show, nil
}

// FromShow is the inverse of ToShow.
func FromShow(show *models.Show) (*Frontmatter, string) {
	fm := &Frontmatter{
		ID:            show.ID,
		Title:         show.Title,
		OriginalTitle: show.OriginalTitle,
		Rating:        show.Rating,
		Seasons:       show.Seasons,
	}
	if show.FirstAired != nil {
		fm.FirstAired = FormatDate(*show.FirstAired)
	}
	return fm, show.Note
}

// quote wraps s in double quotes when YAML would misread it bare.
func quote(s string) string {
	if s == "" || needsQuoting(s) {
		return strconv.Quote(s)
	}
	return s
}

// needsQuoting checks if a string needs to be quoted in YAML
func needsQuoting(s string) bool {
	if strings.ContainsAny(s, ",:[]{}\"'#&*!|>%@`") {
		return true
	}
	if strings.TrimSpace(s) != s {
		return true
	}
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no", "null", "~":
		return true
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
