package library

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mattsolo1/grove-shows/pkg/models"
)

// File is the on-disk library format:
//
//	shows:
//	  - title: Alpha
//	    rating: 8.1
//	    first_aired: 2020-01-01
//	    seasons:
//	      - number: 1
//	        episodes:
//	          - number: 1
//	            title: Pilot
//	          - number: 2
//	            title: Rerun
//	            placeholder: true
//	            category: missing
type File struct {
	Shows []*models.Show `yaml:"shows"`
}

// Decode parses a library file and normalises every show in it.
func Decode(r io.Reader, now time.Time) ([]*models.Show, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode library: %w", err)
	}
	seen := make(map[string]bool)
	for _, show := range f.Shows {
		if show == nil {
			return nil, fmt.Errorf("decode library: empty show entry")
		}
		Normalize(show, now)
		if seen[show.ID] {
			return nil, fmt.Errorf("decode library: show %q: %w", show.ID, ErrDuplicate)
		}
		seen[show.ID] = true
	}
	return f.Shows, nil
}

// LoadFile reads and decodes a library file.
func LoadFile(path string) ([]*models.Show, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read library: %w", err)
	}
	return Decode(bytes.NewReader(data), time.Now())
}

// Encode writes shows in the library file format.
func Encode(w io.Writer, shows []*models.Show) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(File{Shows: shows}); err != nil {
		return fmt.Errorf("encode library: %w", err)
	}
	return enc.Close()
}

// FromShows builds a library populated with shows. Events fired while
// populating reach nobody because no listener can exist yet.
func FromShows(shows []*models.Show, opts ...Option) (*Library, error) {
	l := New(nil)
	for _, opt := range opts {
		opt(l)
	}
	for _, show := range shows {
		if err := l.AddShow(show); err != nil {
			return nil, err
		}
	}
	return l, nil
}
