package frontmatter

import (
	"reflect"
	"testing"
	"time"

	"github.com/mattsolo1/grove-shows/pkg/models"
)

func TestParse(t *testing.T) {
	rating := 9.3

	tests := []struct {
		name     string
		content  string
		wantFM   *Frontmatter
		wantBody string
		wantErr  bool
	}{
		{
			name: "valid frontmatter",
			content: `---
id: the-wire
title: The Wire
rating: 9.3
first_aired: 2002-06-02
---

# The Wire

Rewatch before season 4.`,
			wantFM: &Frontmatter{
				ID:         "the-wire",
				Title:      "The Wire",
				Rating:     &rating,
				FirstAired: "2002-06-02",
			},
			wantBody: "\n# The Wire\n\nRewatch before season 4.",
		},
		{
			name:     "no frontmatter",
			content:  "# Just a title\n\nSome content.",
			wantFM:   nil,
			wantBody: "# Just a title\n\nSome content.",
		},
		{
			name: "invalid yaml",
			content: `---
title: [invalid
---

Body`,
			wantFM: nil,
			wantBody: `---
title: [invalid
---

Body`,
			wantErr: true,
		},
		{
			name:     "windows line endings",
			content:  "---\r\ntitle: Alpha\r\n---\r\nBody",
			wantFM:   &Frontmatter{Title: "Alpha"},
			wantBody: "Body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotFM, gotBody, err := Parse(tt.content)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !reflect.DeepEqual(gotFM, tt.wantFM) {
				t.Errorf("Parse() gotFM = %+v, want %+v", gotFM, tt.wantFM)
			}
			if tt.wantErr {
				return
			}
			if gotBody != tt.wantBody {
				t.Errorf("Parse() gotBody = %q, want %q", gotBody, tt.wantBody)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	rating := 8.0

	tests := []struct {
		name string
		fm   *Frontmatter
		want string
	}{
		{
			name: "complete frontmatter",
			fm: &Frontmatter{
				ID:            "dark",
				Title:         "Dark",
				OriginalTitle: "Dark",
				Rating:        &rating,
				FirstAired:    "2017-12-01",
			},
			want: `---
id: dark
title: Dark
original_title: Dark
rating: 8
first_aired: 2017-12-01
---`,
		},
		{
			name: "minimal frontmatter",
			fm:   &Frontmatter{Title: "Minimal"},
			want: `---
title: Minimal
---`,
		},
		{
			name: "with special characters",
			fm:   &Frontmatter{Title: "Star Trek: Picard"},
			want: `---
title: "Star Trek: Picard"
---`,
		},
		{
			name: "numeric title",
			fm:   &Frontmatter{Title: "1923"},
			want: `---
title: "1923"
---`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(tt.fm)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Build() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildContent(t *testing.T) {
	fm := &Frontmatter{Title: "Alpha"}

	got, err := BuildContent(fm, "Body")
	if err != nil {
		t.Fatal(err)
	}
	if want := "---\ntitle: Alpha\n---\n\nBody"; got != want {
		t.Errorf("BuildContent() = %q, want %q", got, want)
	}

	got, _ = BuildContent(fm, "")
	if want := "---\ntitle: Alpha\n---\n"; got != want {
		t.Errorf("BuildContent() = %q, want %q", got, want)
	}
}

func TestShowRoundTrip(t *testing.T) {
	aired := time.Date(2017, 12, 1, 0, 0, 0, 0, time.UTC)
	rating := 8.7
	show := &models.Show{
		ID:         "dark",
		Title:      "Dark: Origins",
		Rating:     &rating,
		FirstAired: &aired,
		Note:       "Keep a family tree handy.",
		Seasons: []*models.Season{{
			ID:     "dark/s01",
			Number: 1,
			Episodes: []*models.Episode{
				{ID: "dark/s01/e01", Number: 1, Title: "Secrets", Watched: true},
			},
		}},
	}

	fm, body := FromShow(show)
	content, err := BuildContent(fm, body)
	if err != nil {
		t.Fatal(err)
	}

	parsedFM, parsedBody, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsedFM == nil {
		t.Fatal("Expected frontmatter to be found")
	}
	got, err := ToShow(parsedFM, parsedBody)
	if err != nil {
		t.Fatalf("ToShow() error = %v", err)
	}

	if got.Title != show.Title || got.ID != show.ID || got.Note != show.Note {
		t.Errorf("Expected %+v, got %+v", show, got)
	}
	if got.Rating == nil || *got.Rating != rating {
		t.Errorf("Expected rating %v, got %v", rating, got.Rating)
	}
	if got.FirstAired == nil || !got.FirstAired.Equal(aired) {
		t.Errorf("Expected first aired %v, got %v", aired, got.FirstAired)
	}
	if len(got.Seasons) != 1 || len(got.Seasons[0].Episodes) != 1 {
		t.Fatalf("Expected one season with one episode, got %+v", got.Seasons)
	}
	if ep := got.Seasons[0].Episodes[0]; ep.Title != "Secrets" || !ep.Watched {
		t.Errorf("Unexpected episode %+v", ep)
	}
}

func TestToShowErrors(t *testing.T) {
	if _, err := ToShow(&Frontmatter{}, ""); err == nil {
		t.Error("Expected an error for a show without title")
	}
	if _, err := ToShow(&Frontmatter{Title: "A", FirstAired: "June"}, ""); err == nil {
		t.Error("Expected an error for an unparseable date")
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2017-12-01", "2017-12-01T00:00:00Z"} {
		got, err := ParseDate(s)
		if err != nil {
			t.Errorf("ParseDate(%q) error = %v", s, err)
			continue
		}
		if FormatDate(got) != "2017-12-01" {
			t.Errorf("ParseDate(%q) = %v", s, got)
		}
	}
}
