//go:build integration_test || all_tests

package db_test

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/2beens/trainor/internal/db"
	"github.com/2beens/trainor/internal/schema"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testDatabaseURL string
	testPool        *pgxpool.Pool
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	dockerPool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("could not create new dockertest pool: %s", err)
	}
	if err := dockerPool.Client.Ping(); err != nil {
		log.Fatalf("could not ping dockertest pool: %s", err)
	}

	pgResource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=trainor",
			"POSTGRES_HOST_AUTH_METHOD=trust",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		log.Fatalf("dockerpool run postgres: %s", err)
	}
	_ = pgResource.Expire(120)

	testDatabaseURL = fmt.Sprintf(
		"postgres://postgres@localhost:%s/trainor?sslmode=disable",
		pgResource.GetPort("5432/tcp"),
	)

	if err := dockerPool.Retry(func() error {
		conn, err := sql.Open("postgres", testDatabaseURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		return conn.Ping()
	}); err != nil {
		_ = pgResource.Close()
		log.Fatalf("connect to db: %s", err)
	}

	if err := db.Migrate(ctx, testDatabaseURL); err != nil {
		_ = pgResource.Close()
		log.Fatalf("migrate: %s", err)
	}

	testPool, err = db.NewDBPool(ctx, db.NewDBPoolParams{DatabaseURL: testDatabaseURL})
	if err != nil {
		_ = pgResource.Close()
		log.Fatalf("new db pool: %s", err)
	}

	code := m.Run()

	testPool.Close()
	if err := pgResource.Close(); err != nil {
		fmt.Printf("postgres teardown: %s\n", err)
	}
	os.Exit(code)
}

func strPtr(s string) *string {
	return &s
}

func TestMigrate_Idempotent(t *testing.T) {
	require.NoError(t, db.Migrate(context.Background(), testDatabaseURL))

	conn, err := sql.Open("postgres", testDatabaseURL)
	require.NoError(t, err)
	defer conn.Close()

	for _, table := range []string{
		schema.TableProfiles, schema.TableExercises, schema.TableWorkouts, schema.TableWorkoutExercises,
		schema.TableWorkoutLogs, schema.TableExerciseLogs, schema.TableProgressLogs,
	} {
		var exists bool
		err := conn.QueryRow(
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`,
			table,
		).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}
}

func TestCatalogRepo_ListExercises(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := testPool.Exec(ctx, `TRUNCATE exercises CASCADE`)
	require.NoError(t, err)

	repo := db.NewCatalogRepo(testPool)
	seed := []schema.ExerciseInsert{
		{
			Name: "Squat", Description: strPtr("Barbell back squat"), Category: schema.ExerciseCategoryStrength,
			MuscleGroups: []string{"legs", "glutes"}, DifficultyLevel: schema.FitnessLevelIntermediate,
			EquipmentNeeded: strPtr("barbell"),
		},
		{
			Name: "Push Up", Description: strPtr("Classic bodyweight press"), Category: schema.ExerciseCategoryBodyweight,
			MuscleGroups: []string{"chest", "triceps"}, DifficultyLevel: schema.FitnessLevelBeginner,
		},
		{
			Name: "Burpee", Description: strPtr("Squat thrust with a push-up and jump"), Category: schema.ExerciseCategoryCardio,
			MuscleGroups: []string{"full body", "chest"}, DifficultyLevel: schema.FitnessLevelIntermediate,
		},
		{
			Name: "100% Plank", Description: strPtr("Hold_it"), Category: schema.ExerciseCategoryBodyweight,
			MuscleGroups: []string{"core"}, DifficultyLevel: schema.FitnessLevelBeginner,
		},
	}
	for _, e := range seed {
		id, err := repo.InsertExercise(ctx, e)
		require.NoError(t, err)
		require.NotEmpty(t, id)
	}

	squatID := uuid.NewString()
	_, err = repo.InsertExercise(ctx, schema.ExerciseInsert{
		ID: &squatID, Name: "Front Squat", Category: schema.ExerciseCategoryStrength,
		MuscleGroups: []string{"legs"}, DifficultyLevel: schema.FitnessLevelAdvanced,
	})
	require.NoError(t, err)
	_, err = repo.InsertExercise(ctx, schema.ExerciseInsert{
		ID: &squatID, Name: "Front Squat again", Category: schema.ExerciseCategoryStrength,
		DifficultyLevel: schema.FitnessLevelAdvanced,
	})
	require.ErrorIs(t, err, db.ErrExerciseExists)
	_, err = testPool.Exec(ctx, `DELETE FROM exercises WHERE id = $1`, squatID)
	require.NoError(t, err)

	names := func(exercises []schema.Exercise) []string {
		out := make([]string, 0, len(exercises))
		for _, e := range exercises {
			out = append(out, e.Name)
		}
		return out
	}

	testCases := []struct {
		name    string
		filters schema.ExerciseFilters
		want    []string
	}{
		{"no filters", schema.ExerciseFilters{}, []string{"100% Plank", "Burpee", "Push Up", "Squat"}},
		{"search", schema.ExerciseFilters{Search: "push"}, []string{"Burpee", "Push Up"}},
		{"search trimmed", schema.ExerciseFilters{Search: "  SQUAT "}, []string{"Burpee", "Squat"}},
		{"search wildcard is literal", schema.ExerciseFilters{Search: "%"}, []string{"100% Plank"}},
		{"search underscore is literal", schema.ExerciseFilters{Search: "h_u"}, []string{}},
		{"muscle group", schema.ExerciseFilters{MuscleGroup: "chest"}, []string{"Burpee", "Push Up"}},
		{"difficulty", schema.ExerciseFilters{Difficulty: schema.FitnessLevelBeginner}, []string{"100% Plank", "Push Up"}},
		{"equipment", schema.ExerciseFilters{Equipment: "barbell"}, []string{"Squat"}},
		{"all filters", schema.ExerciseFilters{
			MuscleGroup: "chest", Difficulty: schema.FitnessLevelIntermediate, Search: "jump",
		}, []string{"Burpee"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			exercises, err := repo.ListExercises(ctx, tc.filters)
			require.NoError(t, err)
			assert.Equal(t, tc.want, names(exercises))
		})
	}

	exercises, err := repo.ListExercises(ctx, schema.ExerciseFilters{Search: "push up"})
	require.NoError(t, err)
	require.Len(t, exercises, 1)
	assert.Equal(t, schema.ExerciseCategoryBodyweight, exercises[0].Category)
	assert.Equal(t, schema.FitnessLevelBeginner, exercises[0].DifficultyLevel)
	assert.Equal(t, []string{"chest", "triceps"}, exercises[0].MuscleGroups)
	assert.Nil(t, exercises[0].EquipmentNeeded)
	assert.False(t, exercises[0].CreatedAt.IsZero())
}
