package library

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-shows/pkg/models"
)

var (
	ErrNotFound  = errors.New("item not found")
	ErrDuplicate = errors.New("item already exists")
)

// ListenerID identifies a registered listener so it can be removed again.
type ListenerID uint64

// Listener receives domain events.
type Listener func(models.Event)

type listenerEntry struct {
	id ListenerID
	fn Listener
}

// Library is the domain repository: it owns every show, season and episode,
// applies mutations and notifies listeners. It is not safe for concurrent
// use; callers serialise access.
type Library struct {
	shows     []*models.Show
	index     map[string]models.Item
	root      []listenerEntry
	listeners map[models.Item][]listenerEntry
	nextID    ListenerID
	logger    *logrus.Entry
	now       func() time.Time
}

// New creates an empty library.
func New(logger *logrus.Entry) *Library {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Library{
		index:     make(map[string]models.Item),
		listeners: make(map[models.Item][]listenerEntry),
		logger:    logger.WithField("component", "library"),
		now:       time.Now,
	}
}

// Option configures a Library built by FromShows.
type Option func(*Library)

// WithLogger sets the logger used for event tracing.
func WithLogger(logger *logrus.Entry) Option {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger.WithField("component", "library")
		}
	}
}

// WithClock overrides the clock used to classify placeholders.
func WithClock(now func() time.Time) Option {
	return func(l *Library) {
		l.now = now
	}
}

// Shows returns the shows in insertion order.
func (l *Library) Shows() []*models.Show {
	out := make([]*models.Show, len(l.shows))
	copy(out, l.shows)
	return out
}

// Lookup finds any item by ID.
func (l *Library) Lookup(id string) (models.Item, bool) {
	it, ok := l.index[id]
	return it, ok
}

// AddListener registers fn for events addressed to item. A nil item
// addresses the library root, which receives show additions and removals.
func (l *Library) AddListener(item models.Item, fn Listener) ListenerID {
	l.nextID++
	entry := listenerEntry{id: l.nextID, fn: fn}
	if item == nil {
		l.root = append(l.root, entry)
	} else {
		l.listeners[item] = append(l.listeners[item], entry)
	}
	return entry.id
}

// RemoveListener unregisters a listener. Unknown IDs are ignored.
func (l *Library) RemoveListener(item models.Item, id ListenerID) {
	if item == nil {
		l.root = without(l.root, id)
		return
	}
	remaining := without(l.listeners[item], id)
	if len(remaining) == 0 {
		delete(l.listeners, item)
		return
	}
	l.listeners[item] = remaining
}

// ListenerCount reports how many listeners are registered on item.
func (l *Library) ListenerCount(item models.Item) int {
	if item == nil {
		return len(l.root)
	}
	return len(l.listeners[item])
}

func without(entries []listenerEntry, id ListenerID) []listenerEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}

// emit delivers ev to the listeners of target (nil = root) in registration
// order. The slice is copied so listeners may unsubscribe while handling.
func (l *Library) emit(target models.Item, ev models.Event) {
	var entries []listenerEntry
	if target == nil {
		entries = append(entries, l.root...)
	} else {
		entries = append(entries, l.listeners[target]...)
	}
	l.logger.WithFields(logrus.Fields{
		"event":     ev.Kind.String(),
		"item":      itemID(ev.Item),
		"listeners": len(entries),
	}).Debug("Dispatching domain event")
	for _, e := range entries {
		e.fn(ev)
	}
}

func itemID(it models.Item) string {
	if it == nil {
		return ""
	}
	return it.ItemID()
}

// AddShow adds a show together with any seasons and episodes it already
// holds. Missing IDs are derived from titles and numbers.
func (l *Library) AddShow(show *models.Show) error {
	if show == nil {
		return fmt.Errorf("add show: nil show")
	}
	Normalize(show, l.now())
	if err := l.checkFree(show); err != nil {
		return fmt.Errorf("add show %q: %w", show.ID, err)
	}
	l.shows = append(l.shows, show)
	l.indexShow(show)
	l.emit(nil, models.Event{Kind: models.EventAdded, Item: show})
	return nil
}

// RemoveShow removes a show and everything under it.
func (l *Library) RemoveShow(show *models.Show) error {
	i := indexOf(l.shows, show)
	if i < 0 {
		return fmt.Errorf("remove show: %w", ErrNotFound)
	}
	l.shows = append(l.shows[:i], l.shows[i+1:]...)
	l.unindexShow(show)
	l.emit(nil, models.Event{Kind: models.EventRemoved, Item: show})
	return nil
}

// AddSeason adds a season (and its episodes) to show.
func (l *Library) AddSeason(show *models.Show, season *models.Season) error {
	if indexOf(l.shows, show) < 0 {
		return fmt.Errorf("add season: show %w", ErrNotFound)
	}
	if show.SeasonByNumber(season.Number) != nil {
		return fmt.Errorf("add season %d to %q: %w", season.Number, show.ID, ErrDuplicate)
	}
	season.Show = show
	normalizeSeason(show, season, l.now())
	if err := l.checkSeasonFree(season); err != nil {
		return fmt.Errorf("add season %q: %w", season.ID, err)
	}
	show.Seasons = append(show.Seasons, season)
	sortSeasons(show)
	l.indexSeason(season)
	l.emit(show, models.Event{Kind: models.EventAdded, Item: season})
	return nil
}

// RemoveSeason removes a season and its episodes.
func (l *Library) RemoveSeason(season *models.Season) error {
	show := season.Show
	if show == nil {
		return fmt.Errorf("remove season: %w", ErrNotFound)
	}
	i := indexOf(show.Seasons, season)
	if i < 0 {
		return fmt.Errorf("remove season: %w", ErrNotFound)
	}
	show.Seasons = append(show.Seasons[:i], show.Seasons[i+1:]...)
	l.unindexSeason(season)
	l.emit(show, models.Event{Kind: models.EventRemoved, Item: season, Old: show})
	l.emit(show, models.Event{Kind: models.EventCountChanged, Item: show, Field: "episodes"})
	return nil
}

// AddEpisode adds ep to season, keeping episodes ordered by number.
func (l *Library) AddEpisode(season *models.Season, ep *models.Episode) error {
	if season.Show == nil || indexOf(season.Show.Seasons, season) < 0 {
		return fmt.Errorf("add episode: season %w", ErrNotFound)
	}
	ep.Season = season
	normalizeEpisode(season, ep, l.now())
	if _, taken := l.index[ep.ID]; taken {
		return fmt.Errorf("add episode %q: %w", ep.ID, ErrDuplicate)
	}
	season.Episodes = append(season.Episodes, ep)
	sortEpisodes(season)
	l.index[ep.ID] = ep
	l.emit(season, models.Event{Kind: models.EventAdded, Item: ep})
	l.countsChanged(season)
	return nil
}

// RemoveEpisode removes ep from its season. The episode keeps its Season
// pointer so late observers can still see where it lived.
func (l *Library) RemoveEpisode(ep *models.Episode) error {
	season := ep.Season
	if season == nil {
		return fmt.Errorf("remove episode: %w", ErrNotFound)
	}
	i := indexOf(season.Episodes, ep)
	if i < 0 {
		return fmt.Errorf("remove episode %q: %w", ep.ID, ErrNotFound)
	}
	season.Episodes = append(season.Episodes[:i], season.Episodes[i+1:]...)
	delete(l.index, ep.ID)
	l.forget(ep)
	l.emit(season, models.Event{Kind: models.EventRemoved, Item: ep, Old: season})
	l.countsChanged(season)
	return nil
}

// Renumber moves ep to the given season and episode number, creating the
// season if the show has none with that number.
func (l *Library) Renumber(ep *models.Episode, seasonNumber, episodeNumber int) error {
	from := ep.Season
	if from == nil || from.Show == nil || indexOf(from.Episodes, ep) < 0 {
		return fmt.Errorf("renumber episode: %w", ErrNotFound)
	}
	if from.Number == seasonNumber && ep.Number == episodeNumber {
		return nil
	}
	show := from.Show
	to := show.SeasonByNumber(seasonNumber)

	// A derived ID follows the episode to its new number so the old one
	// can be reused. Explicit IDs are left alone.
	id := ep.ID
	if id == episodeID(from.ID, ep.Number, ep.Placeholder) {
		toID := seasonID(show, seasonNumber)
		if to != nil {
			toID = to.ID
		}
		id = episodeID(toID, episodeNumber, ep.Placeholder)
		if _, taken := l.index[id]; taken {
			return fmt.Errorf("renumber episode %q to %q: %w", ep.ID, id, ErrDuplicate)
		}
	}
	if to == nil {
		to = &models.Season{Number: seasonNumber}
		if err := l.AddSeason(show, to); err != nil {
			return fmt.Errorf("renumber episode: %w", err)
		}
	}

	old := [2]int{from.Number, ep.Number}
	if to != from {
		i := indexOf(from.Episodes, ep)
		from.Episodes = append(from.Episodes[:i], from.Episodes[i+1:]...)
		to.Episodes = append(to.Episodes, ep)
		ep.Season = to
	}
	ep.Number = episodeNumber
	if id != ep.ID {
		delete(l.index, ep.ID)
		ep.ID = id
		l.index[id] = ep
	}
	if ep.Placeholder {
		ep.Category = models.ClassifyPlaceholder(ep, l.now())
	}
	sortEpisodes(to)

	l.emit(from, models.Event{
		Kind:  models.EventGroupingKeyChanged,
		Item:  ep,
		Field: "number",
		Old:   from,
		New:   to,
	})
	l.logger.WithFields(logrus.Fields{
		"episode": ep.ID,
		"from":    fmt.Sprintf("%dx%02d", old[0], old[1]),
		"to":      fmt.Sprintf("%dx%02d", seasonNumber, episodeNumber),
	}).Debug("Renumbered episode")
	l.countsChanged(from)
	if to != from {
		l.countsChanged(to)
	}
	return nil
}

// AttachMedia records media files for ep. A placeholder that receives media
// becomes a real episode, which is a structural change.
func (l *Library) AttachMedia(ep *models.Episode, files ...string) error {
	season := ep.Season
	if season == nil || indexOf(season.Episodes, ep) < 0 {
		return fmt.Errorf("attach media: %w", ErrNotFound)
	}
	old := ep.MediaFiles
	ep.MediaFiles = append([]string(nil), files...)
	if ep.Placeholder && len(files) > 0 {
		ep.Placeholder = false
		ep.Category = models.CategoryNone
		l.emit(season, models.Event{
			Kind:  models.EventGroupingKeyChanged,
			Item:  ep,
			Field: "placeholder",
			Old:   season,
			New:   season,
		})
	} else {
		l.emit(ep, models.Event{Kind: models.EventFieldChanged, Item: ep, Field: "media_files", Old: old, New: ep.MediaFiles})
	}
	l.countsChanged(season)
	return nil
}

// SetWatched flips the watched flag of ep.
func (l *Library) SetWatched(ep *models.Episode, watched bool) error {
	if ep.Season == nil || indexOf(ep.Season.Episodes, ep) < 0 {
		return fmt.Errorf("set watched: %w", ErrNotFound)
	}
	if ep.Watched == watched {
		return nil
	}
	old := ep.Watched
	ep.Watched = watched
	l.emit(ep, models.Event{Kind: models.EventFieldChanged, Item: ep, Field: "watched", Old: old, New: watched})
	l.countsChanged(ep.Season)
	return nil
}

// countsChanged signals aggregate recomputation for a season and its show.
func (l *Library) countsChanged(season *models.Season) {
	l.emit(season, models.Event{Kind: models.EventCountChanged, Item: season, Field: "episodes"})
	if season.Show != nil {
		l.emit(season.Show, models.Event{Kind: models.EventCountChanged, Item: season.Show, Field: "episodes"})
	}
}

func (l *Library) checkFree(show *models.Show) error {
	if _, taken := l.index[show.ID]; taken {
		return ErrDuplicate
	}
	for _, season := range show.Seasons {
		if err := l.checkSeasonFree(season); err != nil {
			return err
		}
	}
	return nil
}

func (l *Library) checkSeasonFree(season *models.Season) error {
	if _, taken := l.index[season.ID]; taken {
		return ErrDuplicate
	}
	for _, ep := range season.Episodes {
		if _, taken := l.index[ep.ID]; taken {
			return ErrDuplicate
		}
	}
	return nil
}

func (l *Library) indexShow(show *models.Show) {
	l.index[show.ID] = show
	for _, season := range show.Seasons {
		l.indexSeason(season)
	}
}

func (l *Library) indexSeason(season *models.Season) {
	l.index[season.ID] = season
	for _, ep := range season.Episodes {
		l.index[ep.ID] = ep
	}
}

func (l *Library) unindexShow(show *models.Show) {
	delete(l.index, show.ID)
	l.forget(show)
	for _, season := range show.Seasons {
		l.unindexSeason(season)
	}
}

func (l *Library) unindexSeason(season *models.Season) {
	delete(l.index, season.ID)
	l.forget(season)
	for _, ep := range season.Episodes {
		delete(l.index, ep.ID)
		l.forget(ep)
	}
}

// forget drops listeners of a departed item once its removal event has been
// delivered to the container; listeners on the item itself can never fire
// again.
func (l *Library) forget(it models.Item) {
	delete(l.listeners, it)
}

func indexOf[T comparable](items []T, target T) int {
	for i, it := range items {
		if it == target {
			return i
		}
	}
	return -1
}

func sortSeasons(show *models.Show) {
	sort.SliceStable(show.Seasons, func(i, j int) bool {
		return show.Seasons[i].Number < show.Seasons[j].Number
	})
}

func sortEpisodes(season *models.Season) {
	sort.SliceStable(season.Episodes, func(i, j int) bool {
		return season.Episodes[i].Number < season.Episodes[j].Number
	})
}
