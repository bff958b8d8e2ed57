package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-shows/pkg/columns"
	"github.com/mattsolo1/grove-shows/pkg/models"
)

func rated(title string, rating float64) *models.Show {
	s := twoEpisodes(title)
	s.Rating = &rating
	return s
}

func sortedIDs(s *SortStrategy, nodes []*Node) []string {
	out := append([]*Node(nil), nodes...)
	s.Sort(out)
	return ids(out)
}

func TestColumnClicked(t *testing.T) {
	s := NewSortStrategy(columns.Default, columns.Title, testLogger())
	assert.Equal(t, SortState{Column: columns.Title, Direction: Ascending}, s.State())

	s.ColumnClicked(columns.Title)
	assert.Equal(t, SortState{Column: columns.Title, Direction: Descending}, s.State())
	s.ColumnClicked(columns.Title)
	assert.Equal(t, SortState{Column: columns.Title, Direction: Ascending}, s.State())

	s.ColumnClicked(columns.Title)
	s.ColumnClicked(columns.Rating)
	assert.Equal(t, SortState{Column: columns.Rating, Direction: Ascending}, s.State())
	assert.Equal(t, "rating asc", s.String())
}

func TestSortShows(t *testing.T) {
	_, e, _ := newFixture(t, nil,
		rated("Charlie", 7),
		rated("alpha", 9),
		rated("Bravo", 7),
		twoEpisodes("Delta"),
	)
	shows := e.Children(e.Root())
	s := NewSortStrategy(columns.Default, columns.Title, testLogger())

	assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta"}, sortedIDs(s, shows))

	s.ColumnClicked(columns.Title)
	assert.Equal(t, []string{"delta", "charlie", "bravo", "alpha"}, sortedIDs(s, shows))

	s.ColumnClicked(columns.Rating)
	assert.Equal(t, []string{"delta", "bravo", "charlie", "alpha"}, sortedIDs(s, shows),
		"absent rating sorts lowest, ties fall back to title")

	s.ColumnClicked(columns.Rating)
	assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta"}, sortedIDs(s, shows),
		"the title tie-break stays ascending when the column is descending")
}

func TestSortReversal(t *testing.T) {
	_, e, _ := newFixture(t, nil, rated("A", 1), rated("B", 2), rated("C", 3), rated("D", 4))
	shows := e.Children(e.Root())
	s := NewSortStrategy(columns.Default, columns.Title, testLogger())

	s.ColumnClicked(columns.Rating)
	asc := sortedIDs(s, shows)
	s.ColumnClicked(columns.Rating)
	desc := sortedIDs(s, shows)

	require.Len(t, desc, len(asc))
	for i := range asc {
		assert.Equal(t, asc[i], desc[len(desc)-1-i])
	}
}

func TestComparatorPanicComparesEqual(t *testing.T) {
	cols := []columns.Column{
		columns.Default[columns.Title],
		{Name: "broken", Compare: func(a, b *models.Show) int { panic("nil rating") }},
	}
	_, e, _ := newFixture(t, nil, twoEpisodes("Bravo"), twoEpisodes("Alpha"))
	shows := e.Children(e.Root())
	s := NewSortStrategy(cols, 0, testLogger())
	s.ColumnClicked(1)

	assert.NotPanics(t, func() {
		assert.Equal(t, []string{"alpha", "bravo"}, sortedIDs(s, shows))
	})

	s.SetState(SortState{Column: 9})
	assert.Equal(t, []string{"alpha", "bravo"}, sortedIDs(s, shows))
}

func TestSeasonsAndEpisodesIgnoreSortState(t *testing.T) {
	show := &models.Show{
		Title: "Alpha",
		Seasons: []*models.Season{
			{Number: 2, Episodes: []*models.Episode{{Number: 2, Title: "A"}, {Number: 1, Title: "Z"}}},
			{Number: 1, Episodes: []*models.Episode{{Number: 1, Title: "Only"}}},
		},
	}
	lib, e, _ := newFixture(t, nil, show)
	showNode := e.Children(e.Root())[0]
	seasons := e.Children(showNode)
	episodes := e.Children(mustNode(t, e, lib.Shows()[0].SeasonByNumber(2)))

	s := NewSortStrategy(columns.Default, columns.Title, testLogger())
	for _, col := range []int{columns.Title, columns.Title, columns.Rating, columns.Rating} {
		s.ColumnClicked(col)
		assert.Equal(t, []string{"alpha/s01", "alpha/s02"}, sortedIDs(s, seasons))
		assert.Equal(t, []string{"alpha/s02/e01", "alpha/s02/e02"}, sortedIDs(s, episodes))
	}
}

func TestSortIsStable(t *testing.T) {
	_, e, _ := newFixture(t, nil, twoEpisodes("Same"), rated("Other", 5))
	shows := e.Children(e.Root())
	s := NewSortStrategy(columns.Default, columns.Title, testLogger())

	first := sortedIDs(s, shows)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, sortedIDs(s, shows))
	}
}
