//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/2beens/trainor/internal/schema"
	"github.com/2beens/trainor/internal/workout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

var catalogSeed = []schema.ExerciseInsert{
	{
		Name: "Kettlebell Swing", Description: strPtr("Hip hinge power drill"), Category: schema.ExerciseCategoryStrength,
		MuscleGroups: []string{"glutes", "hamstrings"}, DifficultyLevel: schema.FitnessLevelIntermediate,
		EquipmentNeeded: strPtr("kettlebell"),
	},
	{
		Name: "Mountain Climber", Description: strPtr("Plank with alternating knee drives"), Category: schema.ExerciseCategoryCardio,
		MuscleGroups: []string{"core", "full body"}, DifficultyLevel: schema.FitnessLevelBeginner,
	},
	{
		Name: "Pigeon Pose", Description: strPtr("Deep hip opener"), Category: schema.ExerciseCategoryFlexibility,
		MuscleGroups: []string{"glutes"}, DifficultyLevel: schema.FitnessLevelBeginner, EquipmentNeeded: strPtr("mat"),
	},
}

func (s *IntegrationTestSuite) listExercises(ctx context.Context, query url.Values) []schema.Exercise {
	t := s.T()
	resp, env := DoJSON(ctx, t, serverEndpoint, http.MethodGet, "/exercises?"+query.Encode(), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)

	var exercises []schema.Exercise
	require.NoError(t, json.Unmarshal(env.Data, &exercises))
	return exercises
}

func exerciseNames(exercises []schema.Exercise) []string {
	names := make([]string, 0, len(exercises))
	for _, e := range exercises {
		names = append(names, e.Name)
	}
	return names
}

func (s *IntegrationTestSuite) TestCatalog_FromPostgres() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.Equal(t,
		[]string{"Kettlebell Swing", "Mountain Climber", "Pigeon Pose"},
		exerciseNames(s.listExercises(ctx, url.Values{})),
	)
	assert.Equal(t,
		[]string{"Kettlebell Swing", "Pigeon Pose"},
		exerciseNames(s.listExercises(ctx, url.Values{"muscle_group": {"glutes"}})),
	)
	assert.Equal(t,
		[]string{"Mountain Climber"},
		exerciseNames(s.listExercises(ctx, url.Values{"muscle_group": {"full body"}})),
	)
	assert.Equal(t,
		[]string{"Pigeon Pose"},
		exerciseNames(s.listExercises(ctx, url.Values{"difficulty": {"beginner"}, "equipment": {"mat"}})),
	)
	assert.Equal(t,
		[]string{"Mountain Climber"},
		exerciseNames(s.listExercises(ctx, url.Values{"search": {"KNEE"}})),
	)
	assert.Empty(t, s.listExercises(ctx, url.Values{"search": {"%"}}))
}

func (s *IntegrationTestSuite) TestWorkout_Save() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exercises := s.listExercises(ctx, url.Values{"difficulty": {"beginner"}})
	require.Len(t, exercises, 2)

	composed := workout.ComposedWorkout{
		Name: "Morning flow",
		Exercises: []workout.ComposedExercise{
			{Exercise: exercises[0], Duration: 60, Order: 0},
			{Exercise: exercises[1], Duration: 90, Order: 1},
		},
		TotalDuration: 150,
	}

	resp, env := DoJSON(ctx, t, serverEndpoint, http.MethodPost, "/workouts", composed, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, env.Error)

	s.signIn(ctx, "198.51.100.20")
	defer s.signOut(ctx)

	resp, env = DoJSON(ctx, t, serverEndpoint, http.MethodPost, "/workouts", composed, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error)

	var saved workout.SavedWorkout
	require.NoError(t, json.Unmarshal(env.Data, &saved))
	assert.Equal(t, "Morning flow", saved.Workout.Name)
	assert.Equal(t, 3, saved.Workout.DurationMinutes)
	require.Len(t, saved.Exercises, 2)
	assert.Equal(t, exercises[0].ID, saved.Exercises[0].ExerciseID)
	assert.Equal(t, exercises[1].ID, saved.Exercises[1].ExerciseID)

	assert.Len(t, s.backend.Rows(schema.TableWorkouts), 1)
	assert.Len(t, s.backend.Rows(schema.TableWorkoutExercises), 2)
}

func (s *IntegrationTestSuite) TestMetrics() {
	t := s.T()

	resp, err := httpClient.Get("http://" + serverHost + ":9101/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	metrics := string(body)
	assert.True(t, strings.Contains(metrics, "trainor_main_life_signal 1"))
	assert.True(t, strings.Contains(metrics, "pgxpool_"))
	assert.True(t, strings.Contains(metrics, "trainor_main_service_calls"))
	assert.True(t, strings.Contains(metrics, `trainor_build_info{version=`))
}
