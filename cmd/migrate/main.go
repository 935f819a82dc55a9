package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/2beens/trainor/internal/config"
	"github.com/2beens/trainor/internal/db"
	"github.com/2beens/trainor/internal/schema"
)

// runs the schema migrations and optionally seeds the exercise catalog
func main() {
	fmt.Println("starting db migrations ...")

	envFile := flag.String("env-file", ".env", "optional env file with DATABASE_URL")
	seedPath := flag.String("seed", "", "optional JSON file with exercises to seed")
	flag.Parse()

	config.LoadDotEnv(*envFile)

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Println("DATABASE_URL not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := db.Migrate(ctx, databaseURL); err != nil {
		fmt.Printf("migrate failed: %s\n", err)
		os.Exit(1)
	}
	fmt.Println("migrations completed")

	if *seedPath == "" {
		return
	}

	added, skipped, err := seed(ctx, databaseURL, *seedPath)
	if err != nil {
		fmt.Printf("seed failed: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("seed completed: %d added, %d already present\n", added, skipped)
}

func seed(ctx context.Context, databaseURL, path string) (added, skipped int, err error) {
	seedBytes, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read seed file: %w", err)
	}

	var exercises []schema.ExerciseInsert
	if err := json.Unmarshal(seedBytes, &exercises); err != nil {
		return 0, 0, fmt.Errorf("unmarshal seed file: %w", err)
	}

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{DatabaseURL: databaseURL})
	if err != nil {
		return 0, 0, fmt.Errorf("new db pool: %w", err)
	}
	defer dbPool.Close()

	repo := db.NewCatalogRepo(dbPool)
	for _, e := range exercises {
		if _, err := repo.InsertExercise(ctx, e); err != nil {
			if errors.Is(err, db.ErrExerciseExists) {
				skipped++
				continue
			}
			return added, skipped, fmt.Errorf("insert exercise [%s]: %w", e.Name, err)
		}
		added++
	}

	return added, skipped, nil
}
