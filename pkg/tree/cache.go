package tree

import (
	"errors"
	"fmt"

	"github.com/mattsolo1/grove-shows/pkg/models"
)

// ErrNodeExists is returned by NodeCache.Put when the item already has a
// live node. The existing entry is left untouched.
var ErrNodeExists = errors.New("node already cached")

// NodeCache maps a domain item, by identity, to its tree node. It holds at
// most one node per item.
type NodeCache struct {
	nodes map[models.Item]*Node
}

// NewNodeCache returns an empty cache.
func NewNodeCache() *NodeCache {
	return &NodeCache{nodes: make(map[models.Item]*Node)}
}

// Get returns the node cached for item.
func (c *NodeCache) Get(item models.Item) (*Node, bool) {
	n, ok := c.nodes[item]
	return n, ok
}

// Put caches node for item. Overwriting a live entry is refused; callers
// must Remove first.
func (c *NodeCache) Put(item models.Item, node *Node) error {
	if _, ok := c.nodes[item]; ok {
		return fmt.Errorf("put %s %q: %w", item.Kind(), item.ItemID(), ErrNodeExists)
	}
	c.nodes[item] = node
	return nil
}

// Remove drops and returns the node cached for item.
func (c *NodeCache) Remove(item models.Item) (*Node, bool) {
	n, ok := c.nodes[item]
	if ok {
		delete(c.nodes, item)
	}
	return n, ok
}

// Len returns the number of cached nodes.
func (c *NodeCache) Len() int { return len(c.nodes) }

// Each calls fn for every entry in unspecified order. fn must not mutate
// the cache.
func (c *NodeCache) Each(fn func(models.Item, *Node)) {
	for item, n := range c.nodes {
		fn(item, n)
	}
}
