package models

import "fmt"

// EventKind discriminates domain change notifications.
type EventKind int

const (
	// EventAdded fires on the container's listeners when an item joins it.
	EventAdded EventKind = iota
	// EventRemoved fires on the container's listeners when an item leaves it.
	EventRemoved
	// EventGroupingKeyChanged fires on the old container's listeners when an
	// episode's season/episode number changes or it stops being a placeholder.
	EventGroupingKeyChanged
	// EventFieldChanged fires on the item's own listeners.
	EventFieldChanged
	// EventCountChanged signals an aggregate recompute on the item.
	EventCountChanged
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventGroupingKeyChanged:
		return "grouping-key-changed"
	case EventFieldChanged:
		return "field-changed"
	case EventCountChanged:
		return "count-changed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is the payload delivered to listeners.
//
// For EventRemoved, Old holds the container the item was removed from. For
// EventGroupingKeyChanged, Old and New hold the previous and current season.
// For field and count changes they hold the previous and current values.
type Event struct {
	Kind  EventKind
	Item  Item
	Field string
	Old   any
	New   any
}

func (e Event) String() string {
	if e.Item == nil {
		return e.Kind.String()
	}
	if e.Field != "" {
		return fmt.Sprintf("%s %s %q (%s)", e.Kind, e.Item.Kind(), e.Item.ItemID(), e.Field)
	}
	return fmt.Sprintf("%s %s %q", e.Kind, e.Item.Kind(), e.Item.ItemID())
}
