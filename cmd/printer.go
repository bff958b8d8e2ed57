package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mattsolo1/grove-shows/pkg/columns"
	"github.com/mattsolo1/grove-shows/pkg/tree"
)

// detailColumns are printed next to each show's name.
var detailColumns = []int{columns.Rating, columns.FirstAired, columns.Episodes, columns.Unwatched}

// treePrinter renders the engine's tree as an indented table. Without a
// filter it only pulls children of nodes above depth. A filter pulls the
// whole subtree of every node it tests, since a node is kept when anything
// below it matches.
type treePrinter struct {
	engine *tree.Engine
	sorter *tree.SortStrategy
	filter *tree.TextFilter
	depth  tree.Level
}

func (p *treePrinter) Print(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	headers := []string{"NAME"}
	for _, col := range detailColumns {
		headers = append(headers, columns.Default[col].Header)
	}
	headers = append(headers, "STATUS")
	fmt.Fprintln(w, strings.Join(headers, "\t"))

	p.walk(w, p.engine.Root(), 0)
	return w.Flush()
}

func (p *treePrinter) walk(w io.Writer, n *tree.Node, indent int) {
	kids := p.engine.Children(n)
	p.sorter.Sort(kids)
	for _, kid := range kids {
		if !p.filter.Accept(kid) {
			continue
		}
		fmt.Fprintf(w, "%s%s\t%s\n", strings.Repeat("  ", indent), kid.Label(), strings.Join(p.details(kid), "\t"))
		if kid.Level() < p.depth {
			p.walk(w, kid, indent+1)
		}
	}
}

func (p *treePrinter) details(n *tree.Node) []string {
	cells := make([]string, len(detailColumns)+1)
	if show := n.Show(); show != nil {
		for i, col := range detailColumns {
			cells[i] = columns.Default[col].Value(show)
		}
	}
	if ep := n.Episode(); ep != nil {
		switch {
		case ep.Placeholder:
			cells[len(cells)-1] = string(ep.Category)
		case ep.Watched:
			cells[len(cells)-1] = "watched"
		}
	}
	return cells
}

// parseDepth maps a level name to the deepest level printed.
func parseDepth(name string) (tree.Level, error) {
	for _, l := range []tree.Level{tree.LevelShow, tree.LevelSeason, tree.LevelEpisode} {
		if l.String() == name || l.String()+"s" == name {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown depth %q (want show, season or episode)", name)
}
