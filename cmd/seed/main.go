// Package main provides a tool to seed the local database with test stories.
//
// This fills the story cache and the draft queue with realistic data to
// exercise search, filtering and sync without a live API.
//
// Usage:
//
//	DATA_PATH=~/Cerita/data go run ./cmd/seed
//	DATA_PATH=~/Cerita/data go run ./cmd/seed --drafts 5
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
	"github.com/ceritasekitarmu/cerita-server/internal/id"
	"github.com/ceritasekitarmu/cerita-server/internal/store"
)

var (
	storyCount = flag.Int("stories", 25, "Number of stories to seed")
	draftCount = flag.Int("drafts", 3, "Number of offline drafts to queue")
)

var names = []string{"Dina", "Bayu", "Sari", "Agus", "Putri", "Rudi", "Maya", "Tono"}

var sentences = []string{
	"Senja di pantai selatan, langitnya jingga sekali",
	"Hujan deras baru reda, jalanan masih basah",
	"Kopi pagi di warung dekat stasiun",
	"Gunung terlihat jelas dari balkon hari ini",
	"Pasar malam ramai sekali akhir pekan ini",
	"Sawah menguning, sebentar lagi panen",
	"Kucing kampung tidur di atas motor",
	"Jalan kaki menyusuri kota tua",
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Cerita/data")
	}
	dbPath := filepath.Join(dataPath, "db")

	fmt.Printf("Opening database at: %s\n", dbPath)

	s := store.New(dbPath, nil)
	ctx := context.Background()
	if err := s.Open(ctx); err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	records := make([]domain.StoryRecord, 0, *storyCount)
	for i := 0; i < *storyCount; i++ {
		record := domain.StoryRecord{
			ID:          id.MustGenerate("story"),
			Name:        names[rng.Intn(len(names))],
			Description: sentences[rng.Intn(len(sentences))],
			PhotoURL:    fmt.Sprintf("https://picsum.photos/seed/%d/640/480", rng.Intn(10000)),
			CreatedAt:   time.Now().UTC().Add(-time.Duration(rng.Intn(72)) * time.Hour),
		}
		// Roughly half the stories carry a location, around Yogyakarta.
		if rng.Intn(2) == 0 {
			lat := -7.8 + rng.Float64()*0.4
			lon := 110.2 + rng.Float64()*0.4
			record.Lat = &lat
			record.Lon = &lon
		}
		record.DeriveLocation()
		records = append(records, record)
	}

	if err := s.ReplaceAllStories(ctx, records); err != nil {
		log.Fatalf("Failed to seed stories: %v", err)
	}
	fmt.Printf("Seeded %d stories\n", len(records))

	for i := 0; i < *draftCount; i++ {
		draftID, err := s.AddOfflineDraft(ctx, domain.NewDraft{
			Name:        names[rng.Intn(len(names))],
			Description: sentences[rng.Intn(len(sentences))],
		})
		if err != nil {
			log.Fatalf("Failed to queue draft: %v", err)
		}
		fmt.Printf("Queued draft %d\n", draftID)
	}

	// Favorite a few of the seeded stories.
	for i := 0; i < 3 && i < len(records); i++ {
		fav := domain.FavoriteFromStory(&records[i], time.Now().UTC())
		if err := s.AddFavorite(ctx, records[i].ID, fav); err != nil {
			log.Fatalf("Failed to add favorite: %v", err)
		}
	}

	stats, err := s.ComputeStats(ctx)
	if err != nil {
		log.Fatalf("Failed to compute stats: %v", err)
	}
	fmt.Printf("\nDone: %d stories (%d with location), %d unsynced drafts, %d favorites\n",
		stats.TotalStories, stats.WithLocation, stats.UnsyncedDrafts, stats.Favorites)
}
