// Package backup exports the local collections into portable sqlite
// snapshots. Snapshots are read-only with respect to the live store.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ceritasekitarmu/cerita-server/internal/store"
)

// FormatVersion is the snapshot format version. Increment on breaking
// schema changes.
const FormatVersion = "1.0"

const snapshotExt = ".cerita.db"

const schema = `
CREATE TABLE manifest (
	id TEXT PRIMARY KEY,
	format_version TEXT NOT NULL,
	app_version TEXT NOT NULL,
	created_at TEXT NOT NULL,
	stories INTEGER NOT NULL,
	drafts INTEGER NOT NULL,
	favorites INTEGER NOT NULL
);
CREATE TABLE stories (
	id TEXT PRIMARY KEY,
	name TEXT,
	description TEXT NOT NULL,
	photo_url TEXT,
	lat REAL,
	lon REAL,
	created_at TEXT NOT NULL,
	cached_at TEXT,
	has_location INTEGER NOT NULL
);
CREATE TABLE drafts (
	id INTEGER PRIMARY KEY,
	name TEXT,
	description TEXT NOT NULL,
	photo_url TEXT,
	photo BLOB,
	photo_name TEXT,
	lat REAL,
	lon REAL,
	created_at TEXT NOT NULL,
	synced INTEGER NOT NULL
);
CREATE TABLE favorites (
	story_id TEXT PRIMARY KEY,
	name TEXT,
	description TEXT,
	photo_url TEXT,
	added_at TEXT NOT NULL
);
`

// Service creates and lists snapshots.
type Service struct {
	store      *store.Store
	backupDir  string
	appVersion string
	logger     *slog.Logger
}

// NewService creates a backup service writing into backupDir.
func NewService(s *store.Store, backupDir, appVersion string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: s, backupDir: backupDir, appVersion: appVersion, logger: logger}
}

// Result describes a created snapshot.
type Result struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	Counts    Counts    `json:"counts"`
}

// Counts summarizes what a snapshot holds.
type Counts struct {
	Stories   int `json:"stories"`
	Drafts    int `json:"drafts"`
	Favorites int `json:"favorites"`
}

// Create exports the three collections into a new timestamped snapshot.
func (s *Service) Create(ctx context.Context) (*Result, error) {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	createdAt := time.Now().UTC()
	path := filepath.Join(s.backupDir,
		fmt.Sprintf("backup-%s%s", createdAt.Format("2006-01-02-150405"), snapshotExt))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}

	counts, err := s.export(ctx, db)
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	manifestID := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO manifest (id, format_version, app_version, created_at, stories, drafts, favorites)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		manifestID, FormatVersion, s.appVersion, createdAt.Format(time.RFC3339Nano),
		counts.Stories, counts.Drafts, counts.Favorites)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("finalize snapshot: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	s.logger.Info("backup created",
		"path", path,
		"stories", counts.Stories,
		"drafts", counts.Drafts,
		"favorites", counts.Favorites,
	)

	return &Result{
		ID:        manifestID,
		Path:      path,
		Size:      info.Size(),
		CreatedAt: createdAt,
		Counts:    counts,
	}, nil
}

func (s *Service) export(ctx context.Context, db *sql.DB) (Counts, error) {
	var counts Counts

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	for record, err := range s.store.StreamStories(ctx) {
		if err != nil {
			return counts, fmt.Errorf("stream stories: %w", err)
		}
		var cachedAt any
		if !record.CachedAt.IsZero() {
			cachedAt = record.CachedAt.Format(time.RFC3339Nano)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO stories (id, name, description, photo_url, lat, lon, created_at, cached_at, has_location)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID, record.Name, record.Description, record.PhotoURL,
			nullable(record.Lat), nullable(record.Lon),
			record.CreatedAt.Format(time.RFC3339Nano), cachedAt, record.HasLocation)
		if err != nil {
			return counts, fmt.Errorf("export story %s: %w", record.ID, err)
		}
		counts.Stories++
	}

	for draft, err := range s.store.StreamDrafts(ctx) {
		if err != nil {
			return counts, fmt.Errorf("stream drafts: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO drafts (id, name, description, photo_url, photo, photo_name, lat, lon, created_at, synced)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			draft.ID, draft.Name, draft.Description, draft.PhotoURL, draft.Photo, draft.PhotoName,
			nullable(draft.Lat), nullable(draft.Lon),
			draft.CreatedAt.Format(time.RFC3339Nano), draft.Synced)
		if err != nil {
			return counts, fmt.Errorf("export draft %d: %w", draft.ID, err)
		}
		counts.Drafts++
	}

	for fav, err := range s.store.StreamFavorites(ctx) {
		if err != nil {
			return counts, fmt.Errorf("stream favorites: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO favorites (story_id, name, description, photo_url, added_at)
			 VALUES (?, ?, ?, ?, ?)`,
			fav.StoryID, fav.Name, fav.Description, fav.PhotoURL,
			fav.AddedAt.Format(time.RFC3339Nano))
		if err != nil {
			return counts, fmt.Errorf("export favorite %s: %w", fav.StoryID, err)
		}
		counts.Favorites++
	}

	if err := tx.Commit(); err != nil {
		return counts, fmt.Errorf("commit snapshot: %w", err)
	}
	return counts, nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// Snapshot is one existing snapshot on disk.
type Snapshot struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// List returns existing snapshots, newest first.
func (s *Service) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var snapshots []Snapshot
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), snapshotExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			Path:      filepath.Join(s.backupDir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	return snapshots, nil
}
