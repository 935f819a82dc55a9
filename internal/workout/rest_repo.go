package workout

import (
	"context"
	"fmt"

	"github.com/2beens/trainor/internal/schema"
	"github.com/2beens/trainor/internal/supabase"
)

var (
	_ catalogSource = (*RestRepo)(nil)
	_ workoutWriter = (*RestRepo)(nil)
)

// RestRepo reads the catalog and writes workouts through the row endpoints.
type RestRepo struct {
	client *supabase.Client
}

func NewRestRepo(client *supabase.Client) *RestRepo {
	return &RestRepo{
		client: client,
	}
}

func (r *RestRepo) ListExercises(ctx context.Context, filters schema.ExerciseFilters) ([]schema.Exercise, error) {
	filters = filters.Normalized()

	q := r.client.From(schema.TableExercises).Select("*")
	if filters.MuscleGroup != "" {
		q = q.Contains("muscle_groups", filters.MuscleGroup)
	}
	if filters.Difficulty != "" {
		q = q.Eq("difficulty_level", string(filters.Difficulty))
	}
	if filters.Equipment != "" {
		q = q.Eq("equipment_needed", filters.Equipment)
	}
	if filters.Search != "" {
		q = q.Or(supabase.OrILike(filters.Search, "name", "description"))
	}

	exercises := make([]schema.Exercise, 0)
	if err := q.Order("name", true).Execute(ctx, &exercises); err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	return exercises, nil
}

func (r *RestRepo) InsertWorkout(ctx context.Context, insert schema.WorkoutInsert) (*schema.Workout, error) {
	var inserted []schema.Workout
	if err := r.client.From(schema.TableWorkouts).Insert(insert).Execute(ctx, &inserted); err != nil {
		return nil, fmt.Errorf("insert workout: %w", err)
	}
	if len(inserted) != 1 {
		return nil, fmt.Errorf("insert workout: %w", supabase.ErrNoRowsReturned)
	}
	return &inserted[0], nil
}

func (r *RestRepo) InsertWorkoutExercises(ctx context.Context, inserts []schema.WorkoutExerciseInsert) ([]schema.WorkoutExercise, error) {
	inserted := make([]schema.WorkoutExercise, 0, len(inserts))
	if err := r.client.From(schema.TableWorkoutExercises).Insert(inserts).Execute(ctx, &inserted); err != nil {
		return nil, fmt.Errorf("insert workout exercises: %w", err)
	}
	return inserted, nil
}

func (r *RestRepo) DeleteWorkout(ctx context.Context, id string) error {
	if err := r.client.From(schema.TableWorkouts).Delete().Eq("id", id).Execute(ctx, nil); err != nil {
		return fmt.Errorf("delete workout [%s]: %w", id, err)
	}
	return nil
}
