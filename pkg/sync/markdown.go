package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mattsolo1/grove-shows/pkg/frontmatter"
	"github.com/mattsolo1/grove-shows/pkg/library"
	"github.com/mattsolo1/grove-shows/pkg/models"
)

// MarkdownProvider reads a directory of show files, one Markdown document
// per show. Files without front matter are skipped.
type MarkdownProvider struct {
	Dir string
	Now func() time.Time
}

func (p *MarkdownProvider) Name() string { return "markdown" }

func (p *MarkdownProvider) Fetch(ctx context.Context) ([]*models.Show, error) {
	paths, err := filepath.Glob(filepath.Join(p.Dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("list show files: %w", err)
	}
	sort.Strings(paths)

	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}

	var shows []*models.Show
	seen := make(map[string]string)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read show file: %w", err)
		}
		fm, body, err := frontmatter.Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if fm == nil {
			continue
		}
		show, err := frontmatter.ToShow(fm, body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		library.Normalize(show, now)
		if other, ok := seen[show.ID]; ok {
			return nil, fmt.Errorf("%s: show %q already defined in %s: %w", filepath.Base(path), show.ID, other, library.ErrDuplicate)
		}
		seen[show.ID] = filepath.Base(path)
		shows = append(shows, show)
	}
	return shows, nil
}

// WriteMarkdown writes one show file per show into dir, named after the
// show ID.
func WriteMarkdown(dir string, shows []*models.Show) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	for _, show := range shows {
		fm, body := frontmatter.FromShow(show)
		content, err := frontmatter.BuildContent(fm, body)
		if err != nil {
			return fmt.Errorf("show %q: %w", show.ID, err)
		}
		path := filepath.Join(dir, library.Slug(show.ID)+".md")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("write show file: %w", err)
		}
	}
	return nil
}
