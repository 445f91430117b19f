package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
)

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Cerita/data")
	}
	dbPath := filepath.Join(dataPath, "db")

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	storyCount := 0
	withLocation := 0
	draftCount := 0
	unsyncedDrafts := 0
	favoriteCount := 0
	indexKeys := 0

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())

			switch {
			case strings.HasPrefix(key, "idx:"):
				indexKeys++
			case strings.HasPrefix(key, "story:"):
				err := item.Value(func(val []byte) error {
					var story domain.StoryRecord
					if err := json.Unmarshal(val, &story); err != nil {
						return err
					}
					storyCount++
					if story.HasLocation {
						withLocation++
					}
					return nil
				})
				if err != nil {
					return fmt.Errorf("decode %s: %w", key, err)
				}
			case strings.HasPrefix(key, "draft:"):
				err := item.Value(func(val []byte) error {
					var draft domain.OfflineDraft
					if err := json.Unmarshal(val, &draft); err != nil {
						return err
					}
					draftCount++
					if !draft.Synced {
						unsyncedDrafts++
					}
					return nil
				})
				if err != nil {
					return fmt.Errorf("decode %s: %w", key, err)
				}
			case strings.HasPrefix(key, "fav:"):
				favoriteCount++
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Inspection failed: %v", err)
	}

	fmt.Printf("Stories:   %d (%d with location)\n", storyCount, withLocation)
	fmt.Printf("Drafts:    %d (%d unsynced)\n", draftCount, unsyncedDrafts)
	fmt.Printf("Favorites: %d\n", favoriteCount)
	fmt.Printf("Index keys: %d\n", indexKeys)
}
