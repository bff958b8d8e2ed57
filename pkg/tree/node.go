package tree

import (
	"fmt"
	"sort"

	"github.com/mattsolo1/grove-shows/pkg/models"
)

// Level is the depth class of a node.
type Level int

const (
	LevelRoot Level = iota
	LevelShow
	LevelSeason
	LevelEpisode
)

func (l Level) String() string {
	switch l {
	case LevelRoot:
		return "root"
	case LevelShow:
		return "show"
	case LevelSeason:
		return "season"
	case LevelEpisode:
		return "episode"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Node wraps one domain item in the tree. The item is referenced, not
// owned: the library decides its lifetime, the engine decides the node's.
type Node struct {
	item      models.Item // nil for the root
	parent    *Node
	kids      map[*Node]struct{}
	expanded  bool // Children has been called since the node was created
	synthetic bool
}

func newNode(item models.Item, parent *Node) *Node {
	return &Node{item: item, parent: parent, kids: make(map[*Node]struct{})}
}

// Item returns the wrapped domain item, nil for the root.
func (n *Node) Item() models.Item { return n.item }

// IsRoot reports whether n is the invisible root.
func (n *Node) IsRoot() bool { return n.item == nil }

// IsSynthetic reports whether the node was made up by the engine to hold
// items whose real ancestor could not be resolved.
func (n *Node) IsSynthetic() bool { return n.synthetic }

// Level returns the depth class of the node.
func (n *Node) Level() Level {
	switch n.item.(type) {
	case nil:
		return LevelRoot
	case *models.Show:
		return LevelShow
	case *models.Season:
		return LevelSeason
	case *models.Episode:
		return LevelEpisode
	default:
		panic(fmt.Sprintf("tree: unknown item type %T", n.item))
	}
}

// Label returns the display label.
func (n *Node) Label() string {
	if n.item == nil {
		return ""
	}
	if n.synthetic {
		return "Unsorted"
	}
	return models.Label(n.item)
}

// ID returns the item ID, empty for the root.
func (n *Node) ID() string {
	if n.item == nil {
		return ""
	}
	return n.item.ItemID()
}

// Show returns the wrapped show or nil.
func (n *Node) Show() *models.Show {
	s, _ := n.item.(*models.Show)
	return s
}

// Season returns the wrapped season or nil.
func (n *Node) Season() *models.Season {
	s, _ := n.item.(*models.Season)
	return s
}

// Episode returns the wrapped episode or nil.
func (n *Node) Episode() *models.Episode {
	e, _ := n.item.(*models.Episode)
	return e
}

func (n *Node) String() string {
	if n.IsRoot() {
		return "<root>"
	}
	return fmt.Sprintf("%s %q", n.Level(), n.ID())
}

func (n *Node) attach(child *Node) {
	child.parent = n
	n.kids[child] = struct{}{}
}

func (n *Node) detach(child *Node) {
	delete(n.kids, child)
}

// cachedChildren returns the attached children ordered by ID so walks over
// them are deterministic.
func (n *Node) cachedChildren() []*Node {
	out := make([]*Node, 0, len(n.kids))
	for k := range n.kids {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
