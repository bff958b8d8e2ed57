package tree

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-shows/pkg/library"
	"github.com/mattsolo1/grove-shows/pkg/models"
)

var (
	// ErrDepthExceeded means ancestor resolution walked further than any
	// valid show hierarchy can be deep.
	ErrDepthExceeded = errors.New("ancestor chain too deep")
	// ErrUnknownNode means an update referenced an item the engine should
	// know about but does not.
	ErrUnknownNode = errors.New("unknown node")
)

// maxAncestorDepth bounds ancestor materialisation. Show, season and
// episode make three; anything beyond that is a broken domain graph.
const maxAncestorDepth = 3

// Engine keeps a Show → Season → Episode tree in step with a library. It
// materialises nodes lazily as the view asks for children, reacts to
// library events, and reports structural changes to observers.
//
// An Engine is not safe for concurrent use. All calls, including the
// library mutations that feed it, must come from one goroutine.
type Engine struct {
	lib    *library.Library
	cache  *NodeCache
	root   *Node
	policy PlaceholderPolicy

	rootSub    library.ListenerID
	subscribed bool
	subs       map[models.Item]library.ListenerID

	orphans *Node

	observers    []observerEntry
	nextObserver int

	strict   bool
	disposed bool
	logger   *logrus.Entry
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy sets the initial placeholder policy. The default hides all
// placeholders.
func WithPolicy(p PlaceholderPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger.WithField("component", "tree-sync")
		}
	}
}

// WithStrict makes consistency violations panic instead of being logged.
func WithStrict(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// NewEngine creates an engine over lib. Nothing is materialised and no
// listener is registered until Root is called.
func NewEngine(lib *library.Library, opts ...Option) *Engine {
	e := &Engine{
		lib:    lib,
		cache:  NewNodeCache(),
		policy: HideAll,
		subs:   make(map[models.Item]library.ListenerID),
		logger: logrus.NewEntry(logrus.New()).WithField("component", "tree-sync"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Root returns the invisible root, creating it and subscribing to show
// additions on first use.
func (e *Engine) Root() *Node {
	if e.root == nil {
		e.root = newNode(nil, nil)
	}
	if !e.subscribed && !e.disposed {
		e.rootSub = e.lib.AddListener(nil, e.OnDomainEvent)
		e.subscribed = true
	}
	return e.root
}

// Len returns the number of cached nodes, excluding the root.
func (e *Engine) Len() int { return e.cache.Len() }

// Lookup returns the node cached for item, if any.
func (e *Engine) Lookup(item models.Item) (*Node, bool) {
	return e.cache.Get(item)
}

// Policy returns the active placeholder policy.
func (e *Engine) Policy() PlaceholderPolicy { return e.policy }

// SetPolicy replaces the placeholder policy and reconciles every show.
func (e *Engine) SetPolicy(p PlaceholderPolicy) {
	e.policy = p
	e.RefreshPlaceholders()
}

// IsLeaf reports whether n wraps an episode.
func (e *Engine) IsLeaf(n *Node) bool {
	_, ok := n.item.(*models.Episode)
	return ok
}

// Parent returns the parent of n. For a live node whose parent has been
// dropped the parent is materialised again. A node that is itself no
// longer cached only reports an ancestor that still is; nothing is built
// for it.
func (e *Engine) Parent(n *Node) *Node {
	if n == nil || n.IsRoot() {
		return nil
	}
	if n.parent != nil && e.isLive(n.parent) {
		return n.parent
	}
	parentItem := models.Parent(n.item)
	if !e.isLive(n) {
		if parentItem == nil {
			return nil
		}
		if p, ok := e.cache.Get(parentItem); ok {
			return p
		}
		return nil
	}
	if parentItem == nil {
		p := e.fallbackParent(n.item)
		p.attach(n)
		return p
	}
	p, _, err := e.materialize(parentItem)
	if err != nil {
		e.violation(err, logrus.Fields{"node": n.String()})
		return e.Root()
	}
	p.attach(n)
	return p
}

// Children lists the current children of n in domain order: shows for the
// root, seasons with at least one visible episode for a show, and visible
// episodes for a season. The list is built fresh on every call.
func (e *Engine) Children(n *Node) []*Node {
	if n == nil || e.disposed || !e.isLive(n) {
		return nil
	}
	n.expanded = true
	switch item := n.item.(type) {
	case nil:
		e.Root()
		var out []*Node
		for _, show := range e.lib.Shows() {
			if node := e.ensure(show); node != nil {
				out = append(out, node)
			}
		}
		if e.orphans != nil && len(e.orphans.kids) > 0 {
			out = append(out, e.orphans)
		}
		return out
	case *models.Show:
		var out []*Node
		for _, season := range item.Seasons {
			if len(e.visibleEpisodes(season)) == 0 {
				continue
			}
			if node := e.ensure(season); node != nil {
				out = append(out, node)
			}
		}
		return out
	case *models.Season:
		if n.synthetic {
			return n.cachedChildren()
		}
		var out []*Node
		for _, ep := range e.visibleEpisodes(item) {
			if node := e.ensure(ep); node != nil {
				out = append(out, node)
			}
		}
		return out
	case *models.Episode:
		return nil
	default:
		panic(fmt.Sprintf("tree: unknown item type %T", item))
	}
}

// OnDomainEvent applies one library event. It is registered as the
// listener for every subscribed item and may also be called directly.
func (e *Engine) OnDomainEvent(ev models.Event) {
	if e.disposed {
		return
	}
	e.logger.WithField("event", ev.String()).Debug("Domain event")
	e.Root()
	switch ev.Kind {
	case models.EventAdded:
		e.handleAdded(ev.Item)
	case models.EventRemoved:
		e.handleRemoved(ev.Item, ev.Old)
	case models.EventGroupingKeyChanged:
		e.handleRegrouped(ev)
	case models.EventFieldChanged:
		e.handleFieldChanged(ev.Item)
	case models.EventCountChanged:
		// Aggregates are recomputed by the view on redraw; restructuring
		// here would feed back into the library.
	default:
		e.violation(fmt.Errorf("unhandled event kind %s", ev.Kind), logrus.Fields{"event": ev.String()})
	}
}

// RefreshPlaceholders reconciles every show against the current policy:
// placeholders that should now be visible are inserted, those that should
// not are removed, and seasons that empty out go with them.
func (e *Engine) RefreshPlaceholders() {
	if e.disposed {
		return
	}
	for _, show := range e.lib.Shows() {
		e.refreshShow(show)
	}
}

// Dispose unregisters every listener and drops all nodes. The engine
// ignores events afterwards.
func (e *Engine) Dispose() {
	if e.disposed {
		return
	}
	if e.subscribed {
		e.lib.RemoveListener(nil, e.rootSub)
		e.subscribed = false
	}
	for item, id := range e.subs {
		e.lib.RemoveListener(item, id)
	}
	e.subs = make(map[models.Item]library.ListenerID)
	e.cache = NewNodeCache()
	e.observers = nil
	e.orphans = nil
	e.disposed = true
}

func (e *Engine) handleAdded(item models.Item) {
	switch v := item.(type) {
	case *models.Show:
		if _, ok := e.cache.Get(v); ok || !e.isCurrent(v) {
			return
		}
		node, created, err := e.materialize(v)
		if err != nil {
			e.violation(err, logrus.Fields{"show": v.ID})
			return
		}
		if len(created) > 0 {
			e.notify(NodeInserted, node, node.parent)
		}
	case *models.Season:
		e.subscribe(v)
		if _, ok := e.cache.Get(v); ok || !e.isCurrent(v) {
			return
		}
		if len(e.visibleEpisodes(v)) == 0 {
			e.logger.WithField("season", v.ID).Debug("Season has no visible episodes, not inserting")
			return
		}
		e.reconcileSeason(v)
	case *models.Episode:
		e.addLeaf(v)
		if v.Season != nil {
			e.reconcileSeason(v.Season)
		}
	default:
		panic(fmt.Sprintf("tree: unknown item type %T", item))
	}
}

func (e *Engine) handleRemoved(item models.Item, container any) {
	switch v := item.(type) {
	case *models.Show:
		e.unsubscribe(v)
		for _, season := range v.Seasons {
			e.unsubscribe(season)
		}
		if node, ok := e.cache.Get(v); ok {
			parent := node.parent
			e.dropSubtree(node)
			e.notify(NodeRemoved, node, parent)
		}
	case *models.Season:
		e.unsubscribe(v)
		if node, ok := e.cache.Get(v); ok {
			parent := node.parent
			e.dropSubtree(node)
			e.notify(NodeRemoved, node, parent)
		}
	case *models.Episode:
		season, _ := container.(*models.Season)
		if season == nil {
			season = v.Season
		}
		if node, ok := e.cache.Get(v); ok {
			e.removeLeaf(node)
		}
		if season != nil {
			e.reconcileSeason(season)
		}
	default:
		panic(fmt.Sprintf("tree: unknown item type %T", item))
	}
}

// handleRegrouped relocates an episode whose season/episode number or
// placeholder state changed: remove it from where it was, add it where it
// is now, then reconcile the placeholders of its show.
func (e *Engine) handleRegrouped(ev models.Event) {
	ep, ok := ev.Item.(*models.Episode)
	if !ok {
		e.violation(fmt.Errorf("grouping key change on %s", ev.Item.Kind()), logrus.Fields{"event": ev.String()})
		return
	}
	from, _ := ev.Old.(*models.Season)
	if node, ok := e.cache.Get(ep); ok {
		if from == nil && !node.parent.synthetic {
			from = node.parent.Season()
		}
		e.removeLeaf(node)
	}
	e.addLeaf(ep)

	if from != nil && from.Show != nil && (ep.Season == nil || from.Show != ep.Season.Show) {
		e.refreshShow(from.Show)
	}
	if ep.Season != nil && ep.Season.Show != nil {
		e.refreshShow(ep.Season.Show)
	} else if from != nil {
		e.reconcileSeason(from)
	}
}

// handleFieldChanged reports the node and its ancestors as changed so
// rollup columns redraw. Nothing is restructured.
func (e *Engine) handleFieldChanged(item models.Item) {
	node, ok := e.cache.Get(item)
	if !ok {
		if _, subscribed := e.subs[item]; subscribed && item.Kind() == models.KindEpisode {
			e.violation(fmt.Errorf("field change for %s %q: %w", item.Kind(), item.ItemID(), ErrUnknownNode), nil)
		}
		return
	}
	for n := node; n != nil && !n.IsRoot(); n = e.Parent(n) {
		e.notify(NodeChanged, n, n.parent)
	}
}

// addLeaf inserts a visible episode where the view can already see its
// parent. Under an expanded season the episode is announced. A season
// with no node yet is announced only when its show is expanded, and only
// the season: its episodes wait for the view to pull them, unless ep is
// the season's sole visible episode, in which case the season is expanded
// with it. Under a collapsed show nothing is built.
func (e *Engine) addLeaf(ep *models.Episode) {
	if _, ok := e.cache.Get(ep); ok {
		return
	}
	if !e.isVisible(ep) {
		return
	}
	if ep.Season == nil {
		e.insertNodes(ep)
		return
	}
	if season, ok := e.cache.Get(ep.Season); ok {
		if season.expanded {
			e.insertNodes(ep)
		}
		return
	}
	if show := ep.Season.Show; show != nil {
		showNode, ok := e.cache.Get(show)
		if !ok || !showNode.expanded {
			return
		}
	}
	if e.visibleCountExcept(ep.Season, ep) > 0 {
		e.insertNodes(ep.Season)
		return
	}
	node, created, err := e.materialize(ep)
	if err != nil {
		e.violation(err, logrus.Fields{"episode": ep.ID})
		return
	}
	node.parent.expanded = true
	for _, c := range created {
		e.notify(NodeInserted, c, c.parent)
	}
}

// insertNodes materialises item and announces whatever had to be created.
func (e *Engine) insertNodes(item models.Item) {
	_, created, err := e.materialize(item)
	if err != nil {
		e.violation(err, logrus.Fields{"item": item.ItemID()})
		return
	}
	for _, c := range created {
		e.notify(NodeInserted, c, c.parent)
	}
}

// removeLeaf drops an episode node. An emptied synthetic group goes too;
// real seasons are pruned by reconcileSeason.
func (e *Engine) removeLeaf(node *Node) {
	parent := node.parent
	e.dropSubtree(node)
	e.notify(NodeRemoved, node, parent)
	if parent != nil && parent == e.orphans && len(parent.kids) == 0 {
		e.dropSubtree(parent)
		e.orphans = nil
		e.notify(NodeRemoved, parent, e.root)
	}
}

// refreshShow reconciles every season of show.
func (e *Engine) refreshShow(show *models.Show) {
	if !e.isCurrent(show) {
		return
	}
	for _, season := range append([]*models.Season(nil), show.Seasons...) {
		e.reconcileSeason(season)
	}
}

// reconcileSeason brings the season node and its cached episode nodes in
// line with what should be visible now.
//
// Cached children of an expanded season always equal its visible episodes,
// so anything visible but uncached there is new. An unexpanded season only
// holds the episodes materialised so far; stale ones are dropped but
// missing ones wait for the view to ask.
func (e *Engine) reconcileSeason(season *models.Season) {
	node, cached := e.cache.Get(season)
	if cached && node.synthetic {
		return
	}
	visible := e.visibleEpisodes(season)
	if !e.isCurrent(season) {
		visible = nil
	}

	if len(visible) == 0 {
		if cached {
			parent := node.parent
			e.dropSubtree(node)
			e.notify(NodeRemoved, node, parent)
		}
		return
	}

	if !cached {
		if season.Show != nil {
			showNode, ok := e.cache.Get(season.Show)
			if !ok || !showNode.expanded {
				return
			}
		}
		n, _, err := e.materialize(season)
		if err != nil {
			e.violation(err, logrus.Fields{"season": season.ID})
			return
		}
		e.notify(NodeInserted, n, n.parent)
		return
	}

	want := make(map[models.Item]bool, len(visible))
	for _, ep := range visible {
		want[ep] = true
	}
	for _, kid := range node.cachedChildren() {
		if !want[kid.item] {
			e.removeLeaf(kid)
		}
	}
	if !node.expanded {
		return
	}
	for _, ep := range visible {
		if _, ok := e.cache.Get(ep); ok {
			continue
		}
		n, _, err := e.materialize(ep)
		if err != nil {
			e.violation(err, logrus.Fields{"episode": ep.ID})
			continue
		}
		e.notify(NodeInserted, n, n.parent)
	}
}

// ensure returns the node for item, materialising it silently. Used while
// answering Children, where the view is pulling rather than being told.
func (e *Engine) ensure(item models.Item) *Node {
	node, _, err := e.materialize(item)
	if err != nil {
		e.violation(err, logrus.Fields{"item": item.ItemID()})
		return nil
	}
	return node
}

// materialize returns the node for item, creating it and any missing
// ancestors. Ancestors are collected on an explicit stack, nearest first,
// then created from the furthest down so every node is attached to a live
// parent when it is cached. The walk is capped at maxAncestorDepth.
func (e *Engine) materialize(item models.Item) (*Node, []*Node, error) {
	if n, ok := e.cache.Get(item); ok {
		return n, nil, nil
	}
	e.Root()

	var stack []models.Item
	var parent *Node
	for cur := item; ; {
		stack = append(stack, cur)
		if len(stack) > maxAncestorDepth {
			return nil, nil, fmt.Errorf("materialize %s %q: %w", item.Kind(), item.ItemID(), ErrDepthExceeded)
		}
		next := models.Parent(cur)
		if next == nil {
			parent = e.fallbackParent(cur)
			break
		}
		if n, ok := e.cache.Get(next); ok {
			parent = n
			break
		}
		cur = next
	}

	created := make([]*Node, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		it := stack[i]
		node := newNode(it, parent)
		if err := e.cache.Put(it, node); err != nil {
			return nil, created, err
		}
		parent.attach(node)
		e.track(node)
		created = append(created, node)
		parent = node
	}
	return parent, created, nil
}

// fallbackParent is the parent used when an item has no domain container.
// Shows hang off the root. Episodes without a season are collected in a
// synthetic "Unsorted" group rather than failing the build.
func (e *Engine) fallbackParent(item models.Item) *Node {
	switch v := item.(type) {
	case *models.Show:
		return e.Root()
	case *models.Season:
		e.logger.WithField("season", v.ID).Warn("Season has no show, attaching to root")
		return e.Root()
	case *models.Episode:
		e.logger.WithField("episode", v.ID).Warn("Episode has no season, attaching to unsorted group")
		return e.orphanGroup()
	default:
		panic(fmt.Sprintf("tree: unknown item type %T", item))
	}
}

func (e *Engine) orphanGroup() *Node {
	if e.orphans != nil {
		return e.orphans
	}
	root := e.Root()
	season := &models.Season{ID: "~unsorted", Number: -1}
	node := newNode(season, root)
	node.synthetic = true
	if err := e.cache.Put(season, node); err != nil {
		e.violation(err, nil)
	}
	root.attach(node)
	e.orphans = node
	e.notify(NodeInserted, node, root)
	return node
}

// dropSubtree uncaches node and everything below it, unsubscribing episode
// listeners. Seasons and shows keep their listeners while they are part of
// the library so later additions are still seen.
func (e *Engine) dropSubtree(node *Node) {
	stack := []*Node{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for k := range n.kids {
			stack = append(stack, k)
		}
		n.kids = make(map[*Node]struct{})
		if n.item == nil {
			continue
		}
		if cached, ok := e.cache.Get(n.item); ok && cached == n {
			e.cache.Remove(n.item)
		}
		if ep, ok := n.item.(*models.Episode); ok {
			e.unsubscribe(ep)
		}
	}
	if node.parent != nil {
		node.parent.detach(node)
	}
}

// track subscribes to the events a new node needs: a show's and its
// seasons' containers, a season's container, an episode's own fields.
func (e *Engine) track(node *Node) {
	if node.synthetic {
		return
	}
	switch v := node.item.(type) {
	case *models.Show:
		e.subscribe(v)
		for _, season := range v.Seasons {
			e.subscribe(season)
		}
	case *models.Season:
		e.subscribe(v)
	case *models.Episode:
		e.subscribe(v)
	}
}

func (e *Engine) subscribe(item models.Item) {
	if e.disposed {
		return
	}
	if _, ok := e.subs[item]; ok {
		return
	}
	e.subs[item] = e.lib.AddListener(item, e.OnDomainEvent)
}

func (e *Engine) unsubscribe(item models.Item) {
	id, ok := e.subs[item]
	if !ok {
		return
	}
	e.lib.RemoveListener(item, id)
	delete(e.subs, item)
}

// isVisible reports whether ep should have a node: it is part of the
// library, structurally visible in its season, and either real or allowed
// by the placeholder policy. Episodes without a season are visible unless
// they are placeholders.
func (e *Engine) isVisible(ep *models.Episode) bool {
	if ep.Season != nil && !e.isCurrent(ep) {
		return false
	}
	if !ep.IsStructurallyVisible() {
		return false
	}
	return !ep.Placeholder || e.policy.IsPlaceholderVisible(ep)
}

func (e *Engine) visibleEpisodes(season *models.Season) []*models.Episode {
	var out []*models.Episode
	for _, ep := range season.VisibleEpisodes() {
		if !ep.Placeholder || e.policy.IsPlaceholderVisible(ep) {
			out = append(out, ep)
		}
	}
	return out
}

func (e *Engine) visibleCountExcept(season *models.Season, skip *models.Episode) int {
	n := 0
	for _, ep := range e.visibleEpisodes(season) {
		if ep != skip {
			n++
		}
	}
	return n
}

// isCurrent reports whether item is the library's live item for its ID.
func (e *Engine) isCurrent(item models.Item) bool {
	cur, ok := e.lib.Lookup(item.ItemID())
	return ok && cur == item
}

// isLive reports whether n is still the cached node for its item.
func (e *Engine) isLive(n *Node) bool {
	if n.IsRoot() {
		return n == e.root
	}
	cached, ok := e.cache.Get(n.item)
	return ok && cached == n
}

// violation handles a broken invariant: panic in strict mode, log
// otherwise and carry on with a degraded tree.
func (e *Engine) violation(err error, fields logrus.Fields) {
	if e.strict {
		panic(err)
	}
	e.logger.WithFields(fields).WithError(err).Error("Tree consistency violation")
}
