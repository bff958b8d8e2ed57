package tree

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-shows/pkg/columns"
)

// Direction is the sort direction of the active column.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// SortState is the active column and direction.
type SortState struct {
	Column    int
	Direction Direction
}

// SortStrategy orders sibling nodes. Shows follow the active column, with
// the title as an always-ascending tie-break. Seasons and episodes follow
// their numbers and ignore the sort state.
type SortStrategy struct {
	state       SortState
	columns     []columns.Column
	titleColumn int
	logger      *logrus.Entry
}

// NewSortStrategy creates a strategy over cols, sorted ascending by the
// title column.
func NewSortStrategy(cols []columns.Column, titleColumn int, logger *logrus.Entry) *SortStrategy {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &SortStrategy{
		state:       SortState{Column: titleColumn, Direction: Ascending},
		columns:     cols,
		titleColumn: titleColumn,
		logger:      logger.WithField("component", "sort"),
	}
}

// State returns the current sort state.
func (s *SortStrategy) State() SortState { return s.state }

// SetState restores a sort state, e.g. from configuration.
func (s *SortStrategy) SetState(state SortState) { s.state = state }

// ColumnClicked flips the direction when col is already active, otherwise
// activates col ascending.
func (s *SortStrategy) ColumnClicked(col int) {
	if col == s.state.Column {
		if s.state.Direction == Ascending {
			s.state.Direction = Descending
		} else {
			s.state.Direction = Ascending
		}
		return
	}
	s.state = SortState{Column: col, Direction: Ascending}
}

// Sort orders siblings in place. Equal nodes keep their relative order.
func (s *SortStrategy) Sort(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return s.Compare(nodes[i], nodes[j]) < 0
	})
}

// Compare returns -1, 0 or 1. Nodes on different levels order by level so
// the synthetic orphan group lands after the shows.
func (s *SortStrategy) Compare(a, b *Node) int {
	la, lb := a.Level(), b.Level()
	if la != lb {
		return sign(int(la) - int(lb))
	}
	switch la {
	case LevelShow:
		return s.compareShows(a, b)
	case LevelSeason:
		if c := sign(a.Season().Number - b.Season().Number); c != 0 {
			return c
		}
		return compareIDs(a, b)
	case LevelEpisode:
		if c := sign(a.Episode().Number - b.Episode().Number); c != 0 {
			return c
		}
		return compareIDs(a, b)
	default:
		return 0
	}
}

func (s *SortStrategy) compareShows(a, b *Node) int {
	c := s.column(s.state.Column, a, b)
	if s.state.Column == s.titleColumn {
		c = s.apply(c)
	} else if c != 0 {
		return s.apply(c)
	} else {
		c = s.column(s.titleColumn, a, b)
	}
	if c != 0 {
		return c
	}
	return compareIDs(a, b)
}

func (s *SortStrategy) apply(c int) int {
	if s.state.Direction == Descending {
		return -c
	}
	return c
}

// column runs one column comparator. A comparator that panics, or a column
// index that does not exist, compares as equal.
func (s *SortStrategy) column(col int, a, b *Node) (result int) {
	if col < 0 || col >= len(s.columns) || s.columns[col].Compare == nil {
		return 0
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(logrus.Fields{
				"column": s.columns[col].Name,
				"a":      a.ID(),
				"b":      b.ID(),
			}).Errorf("Column comparator failed: %v", r)
			result = 0
		}
	}()
	return sign(s.columns[col].Compare(a.Show(), b.Show()))
}

func (s *SortStrategy) String() string {
	name := fmt.Sprintf("column(%d)", s.state.Column)
	if s.state.Column >= 0 && s.state.Column < len(s.columns) {
		name = s.columns[s.state.Column].Name
	}
	return name + " " + s.state.Direction.String()
}

func compareIDs(a, b *Node) int {
	switch {
	case a.ID() < b.ID():
		return -1
	case a.ID() > b.ID():
		return 1
	default:
		return 0
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
