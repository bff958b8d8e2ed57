package columns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-shows/pkg/models"
)

func ptr[T any](v T) *T { return &v }

func TestCompareText(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"equal", "Alpha", "Alpha", 0},
		{"case insensitive", "alpha", "ALPHA", 0},
		{"ordered", "Alpha", "Beta", -1},
		{"reversed", "beta", "Alpha", 1},
		{"empty lowest", "", "Alpha", -1},
		{"empty both", "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareText(tt.a, tt.b))
		})
	}
}

func TestAbsentSortsLowest(t *testing.T) {
	rated := &models.Show{Title: "A", Rating: ptr(7.5), FirstAired: ptr(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC))}
	bare := &models.Show{Title: "B"}

	assert.Equal(t, -1, Default[Rating].Compare(bare, rated))
	assert.Equal(t, 1, Default[Rating].Compare(rated, bare))
	assert.Equal(t, 0, Default[Rating].Compare(bare, bare))
	assert.Equal(t, -1, Default[FirstAired].Compare(bare, rated))
	assert.Equal(t, 1, Default[FirstAired].Compare(rated, bare))
}

func TestCountColumns(t *testing.T) {
	season := &models.Season{Number: 1, Episodes: []*models.Episode{
		{Number: 1, Watched: true},
		{Number: 2},
		{Number: 3, Placeholder: true},
	}}
	one := &models.Show{Title: "One", Seasons: []*models.Season{season}}
	empty := &models.Show{Title: "Empty"}

	assert.Equal(t, 1, Default[Episodes].Compare(one, empty))
	assert.Equal(t, 1, Default[Unwatched].Compare(one, empty))
	assert.Equal(t, "2", Default[Episodes].Value(one))
	assert.Equal(t, "1", Default[Unwatched].Value(one))
}

func TestLookup(t *testing.T) {
	i, err := Lookup("Rating")
	require.NoError(t, err)
	assert.Equal(t, Rating, i)

	_, err = Lookup("nope")
	assert.Error(t, err)

	assert.Equal(t, []string{"title", "original_title", "rating", "first_aired", "episodes", "unwatched"}, Names())
}
