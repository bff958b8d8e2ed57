package tree

import "fmt"

// ChangeKind is the shape of a structural notification.
type ChangeKind int

const (
	NodeInserted ChangeKind = iota
	NodeRemoved
	NodeChanged
)

func (k ChangeKind) String() string {
	switch k {
	case NodeInserted:
		return "inserted"
	case NodeRemoved:
		return "removed"
	case NodeChanged:
		return "changed"
	default:
		return fmt.Sprintf("change(%d)", int(k))
	}
}

// Change describes one structural update. Parent is the node the change
// happened under; for removals it is the parent the node had when removed.
type Change struct {
	Kind   ChangeKind
	Node   *Node
	Parent *Node
}

func (c Change) String() string {
	return fmt.Sprintf("%s %s", c.Kind, c.Node)
}

// Observer receives structural notifications in emission order.
type Observer func(Change)

type observerEntry struct {
	id int
	fn Observer
}

// Observe registers fn and returns a function that unregisters it.
func (e *Engine) Observe(fn Observer) (cancel func()) {
	e.nextObserver++
	id := e.nextObserver
	e.observers = append(e.observers, observerEntry{id: id, fn: fn})
	return func() {
		for i, o := range e.observers {
			if o.id == id {
				e.observers = append(e.observers[:i:i], e.observers[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) notify(kind ChangeKind, node, parent *Node) {
	c := Change{Kind: kind, Node: node, Parent: parent}
	e.logger.WithField("change", c.String()).Trace("Tree change")
	for _, o := range append([]observerEntry(nil), e.observers...) {
		o.fn(c)
	}
}
