// Package store persists a show library in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mattsolo1/grove-shows/pkg/library"
	"github.com/mattsolo1/grove-shows/pkg/models"
)

// DBName is the database file created inside the data directory.
const DBName = "shows.db"

// Store manages the library database
type Store struct {
	db      *sql.DB
	dataDir string
}

// Open opens (creating if needed) the database in dataDir
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, DBName)+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, dataDir: dataDir}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	return s, nil
}

// init creates the database schema
func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS shows (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		original_title TEXT,
		note TEXT,
		rating REAL,
		first_aired TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS seasons (
		id TEXT PRIMARY KEY,
		show_id TEXT NOT NULL REFERENCES shows(id) ON DELETE CASCADE,
		number INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS episodes (
		id TEXT PRIMARY KEY,
		season_id TEXT NOT NULL REFERENCES seasons(id) ON DELETE CASCADE,
		number INTEGER NOT NULL,
		title TEXT,
		original_title TEXT,
		note TEXT,
		air_date TIMESTAMP,
		watched BOOLEAN NOT NULL DEFAULT 0,
		media_files TEXT,
		placeholder BOOLEAN NOT NULL DEFAULT 0,
		category TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_seasons_show ON seasons(show_id);
	CREATE INDEX IF NOT EXISTS idx_episodes_season ON episodes(season_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return filepath.Join(s.dataDir, DBName)
}

// Save replaces the stored library with shows.
func (s *Store) Save(shows []*models.Show) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, table := range []string{"episodes", "seasons", "shows"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for i, show := range shows {
		if err := saveShow(tx, i, show); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveShow inserts or replaces a single show and everything under it.
func (s *Store) SaveShow(show *models.Show) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var position int
	err = tx.QueryRow("SELECT position FROM shows WHERE id = ?", show.ID).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRow("SELECT COALESCE(MAX(position) + 1, 0) FROM shows").Scan(&position)
	}
	if err != nil {
		return fmt.Errorf("locate show %q: %w", show.ID, err)
	}
	if _, err := deleteShow(tx, show.ID); err != nil {
		return err
	}
	if err := saveShow(tx, position, show); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteShow removes a show with its seasons and episodes.
func (s *Store) DeleteShow(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	n, err := deleteShow(tx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("delete show %q: %w", id, library.ErrNotFound)
	}
	return tx.Commit()
}

// deleteShow removes a show's rows bottom-up and reports how many show rows
// went.
func deleteShow(tx *sql.Tx, id string) (int64, error) {
	if _, err := tx.Exec(
		"DELETE FROM episodes WHERE season_id IN (SELECT id FROM seasons WHERE show_id = ?)", id,
	); err != nil {
		return 0, fmt.Errorf("delete episodes of %q: %w", id, err)
	}
	if _, err := tx.Exec("DELETE FROM seasons WHERE show_id = ?", id); err != nil {
		return 0, fmt.Errorf("delete seasons of %q: %w", id, err)
	}
	res, err := tx.Exec("DELETE FROM shows WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("delete show %q: %w", id, err)
	}
	return res.RowsAffected()
}

func saveShow(tx *sql.Tx, position int, show *models.Show) error {
	_, err := tx.Exec(`
		INSERT INTO shows (id, position, title, original_title, note, rating, first_aired, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, show.ID, position, show.Title, show.OriginalTitle, show.Note,
		nullFloat(show.Rating), nullTime(show.FirstAired), time.Now())
	if err != nil {
		return fmt.Errorf("insert show %q: %w", show.ID, err)
	}

	for _, season := range show.Seasons {
		if _, err := tx.Exec(
			"INSERT INTO seasons (id, show_id, number) VALUES (?, ?, ?)",
			season.ID, show.ID, season.Number,
		); err != nil {
			return fmt.Errorf("insert season %q: %w", season.ID, err)
		}
		for _, ep := range season.Episodes {
			media, err := json.Marshal(ep.MediaFiles)
			if err != nil {
				return fmt.Errorf("marshal media files: %w", err)
			}
			_, err = tx.Exec(`
				INSERT INTO episodes (
					id, season_id, number, title, original_title, note, air_date,
					watched, media_files, placeholder, category
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, ep.ID, season.ID, ep.Number, ep.Title, ep.OriginalTitle, ep.Note,
				nullTime(ep.AirDate), ep.Watched, string(media), ep.Placeholder, string(ep.Category))
			if err != nil {
				return fmt.Errorf("insert episode %q: %w", ep.ID, err)
			}
		}
	}
	return nil
}

// Load reads every show with its seasons and episodes, in saved order.
// Back-pointers are wired; the shows are ready for library.FromShows.
func (s *Store) Load() ([]*models.Show, error) {
	rows, err := s.db.Query(`
		SELECT id, title, original_title, note, rating, first_aired
		FROM shows ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query shows: %w", err)
	}
	defer rows.Close()

	var shows []*models.Show
	byID := make(map[string]*models.Show)
	for rows.Next() {
		show := &models.Show{}
		var original, note sql.NullString
		var rating sql.NullFloat64
		var firstAired sql.NullTime
		if err := rows.Scan(&show.ID, &show.Title, &original, &note, &rating, &firstAired); err != nil {
			return nil, fmt.Errorf("scan show: %w", err)
		}
		show.OriginalTitle = original.String
		show.Note = note.String
		if rating.Valid {
			v := rating.Float64
			show.Rating = &v
		}
		if firstAired.Valid {
			t := firstAired.Time
			show.FirstAired = &t
		}
		shows = append(shows, show)
		byID[show.ID] = show
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	seasons, err := s.loadSeasons(byID)
	if err != nil {
		return nil, err
	}
	if err := s.loadEpisodes(seasons); err != nil {
		return nil, err
	}
	return shows, nil
}

// Get loads one show by ID.
func (s *Store) Get(id string) (*models.Show, error) {
	shows, err := s.Load()
	if err != nil {
		return nil, err
	}
	for _, show := range shows {
		if show.ID == id {
			return show, nil
		}
	}
	return nil, fmt.Errorf("show %q: %w", id, library.ErrNotFound)
}

func (s *Store) loadSeasons(shows map[string]*models.Show) (map[string]*models.Season, error) {
	rows, err := s.db.Query("SELECT id, show_id, number FROM seasons ORDER BY show_id, number")
	if err != nil {
		return nil, fmt.Errorf("query seasons: %w", err)
	}
	defer rows.Close()

	seasons := make(map[string]*models.Season)
	for rows.Next() {
		season := &models.Season{}
		var showID string
		if err := rows.Scan(&season.ID, &showID, &season.Number); err != nil {
			return nil, fmt.Errorf("scan season: %w", err)
		}
		show, ok := shows[showID]
		if !ok {
			continue
		}
		season.Show = show
		show.Seasons = append(show.Seasons, season)
		seasons[season.ID] = season
	}
	return seasons, rows.Err()
}

func (s *Store) loadEpisodes(seasons map[string]*models.Season) error {
	rows, err := s.db.Query(`
		SELECT id, season_id, number, title, original_title, note, air_date,
			watched, media_files, placeholder, category
		FROM episodes ORDER BY season_id, number, id
	`)
	if err != nil {
		return fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ep := &models.Episode{}
		var seasonID string
		var title, original, note, media, category sql.NullString
		var airDate sql.NullTime
		if err := rows.Scan(&ep.ID, &seasonID, &ep.Number, &title, &original, &note,
			&airDate, &ep.Watched, &media, &ep.Placeholder, &category); err != nil {
			return fmt.Errorf("scan episode: %w", err)
		}
		season, ok := seasons[seasonID]
		if !ok {
			continue
		}
		ep.Title = title.String
		ep.OriginalTitle = original.String
		ep.Note = note.String
		ep.Category = models.PlaceholderCategory(category.String)
		if airDate.Valid {
			t := airDate.Time
			ep.AirDate = &t
		}
		if media.Valid && media.String != "" && media.String != "null" {
			if err := json.Unmarshal([]byte(media.String), &ep.MediaFiles); err != nil {
				return fmt.Errorf("unmarshal media files of %q: %w", ep.ID, err)
			}
		}
		ep.Season = season
		season.Episodes = append(season.Episodes, ep)
	}
	return rows.Err()
}

// Stats is a summary of the stored library.
type Stats struct {
	Shows        int
	Seasons      int
	Episodes     int
	Placeholders int
	Watched      int
}

// Stats counts what is stored.
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{}
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM shows),
			(SELECT COUNT(*) FROM seasons),
			(SELECT COUNT(*) FROM episodes WHERE placeholder = 0),
			(SELECT COUNT(*) FROM episodes WHERE placeholder = 1),
			(SELECT COUNT(*) FROM episodes WHERE watched = 1)
	`).Scan(&st.Shows, &st.Seasons, &st.Episodes, &st.Placeholders, &st.Watched)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	return st, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
