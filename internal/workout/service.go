package workout

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/2beens/trainor/internal/api"
	"github.com/2beens/trainor/internal/result"
	"github.com/2beens/trainor/internal/schema"
	"github.com/2beens/trainor/internal/supabase"
	"github.com/2beens/trainor/internal/telemetry/metrics"
	"github.com/2beens/trainor/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=workout_mocks_test.go -package=workout_test

type catalogSource interface {
	ListExercises(ctx context.Context, filters schema.ExerciseFilters) ([]schema.Exercise, error)
}

type workoutWriter interface {
	InsertWorkout(ctx context.Context, insert schema.WorkoutInsert) (*schema.Workout, error)
	InsertWorkoutExercises(ctx context.Context, inserts []schema.WorkoutExerciseInsert) ([]schema.WorkoutExercise, error)
	DeleteWorkout(ctx context.Context, id string) error
}

type userSource interface {
	GetUser(ctx context.Context) (*supabase.User, error)
}

type Service struct {
	catalog catalogSource
	writer  workoutWriter
	users   userSource
	metrics *metrics.Manager
	newID   func() string
}

func NewService(
	catalog catalogSource,
	writer workoutWriter,
	users userSource,
	metricsManager *metrics.Manager,
) *Service {
	return &Service{
		catalog: catalog,
		writer:  writer,
		users:   users,
		metrics: metricsManager,
		newID:   uuid.NewString,
	}
}

// GetExercises returns the whole catalog ordered by name.
func (s *Service) GetExercises(ctx context.Context) (res result.Result[[]schema.Exercise]) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workout.getExercises")
	start := time.Now()
	defer func() {
		s.observe("get_exercises", res, start)
		tracing.EndSpanWithErrCheck(span, res.Err())
	}()
	defer result.Recover(&res, "get exercises")

	return s.listExercises(ctx, schema.ExerciseFilters{})
}

// GetFilteredExercises applies all present filters at once, ordered by name.
func (s *Service) GetFilteredExercises(ctx context.Context, filters schema.ExerciseFilters) (res result.Result[[]schema.Exercise]) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workout.getFilteredExercises")
	start := time.Now()
	defer func() {
		s.observe("get_filtered_exercises", res, start)
		tracing.EndSpanWithErrCheck(span, res.Err())
	}()
	defer result.Recover(&res, "filter exercises")

	filters = filters.Normalized()
	if filters.Difficulty != "" && !filters.Difficulty.IsValid() {
		return result.Fail[[]schema.Exercise](fmt.Errorf("%w: unknown difficulty %q", api.ErrInvalidInput, filters.Difficulty))
	}

	return s.listExercises(ctx, filters)
}

func (s *Service) listExercises(ctx context.Context, filters schema.ExerciseFilters) result.Result[[]schema.Exercise] {
	exercises, err := s.catalog.ListExercises(ctx, filters)
	if err != nil {
		log.Errorf("list exercises %+v: %s", filters, err)
		return result.Fail[[]schema.Exercise](err)
	}
	if exercises == nil {
		exercises = []schema.Exercise{}
	}
	return result.Ok(exercises)
}

// SaveWorkout stores the workout and its exercises for the signed in user. If
// the exercises cannot be stored, the workout row is removed again.
func (s *Service) SaveWorkout(ctx context.Context, w ComposedWorkout) (res result.Result[*SavedWorkout]) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workout.saveWorkout")
	start := time.Now()
	defer func() {
		s.observe("save_workout", res, start)
		tracing.EndSpanWithErrCheck(span, res.Err())
	}()
	defer result.Recover(&res, "save workout")

	user, err := s.users.GetUser(ctx)
	if err != nil || user == nil {
		if err != nil {
			log.Debugf("save workout, get user: %s", err)
		}
		return result.Fail[*SavedWorkout](api.ErrNotAuthenticated)
	}

	if err := validateWorkout(w); err != nil {
		return result.Fail[*SavedWorkout](err)
	}

	entries := make([]ComposedExercise, len(w.Exercises))
	copy(entries, w.Exercises)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Order < entries[j].Order
	})

	totalDuration := CalculateTotalDuration(entries)
	if w.TotalDuration != 0 && w.TotalDuration != totalDuration {
		log.Debugf("save workout [%s]: given total %d differs from computed %d", w.Name, w.TotalDuration, totalDuration)
	}

	difficulty := w.DifficultyLevel
	if difficulty == "" {
		difficulty = deriveDifficulty(entries)
	}
	category := w.Category
	if category == "" {
		category = deriveCategory(entries)
	}

	workoutID := s.newID()
	isTemplate := false
	saved, err := s.writer.InsertWorkout(ctx, schema.WorkoutInsert{
		ID:              &workoutID,
		Name:            strings.TrimSpace(w.Name),
		Description:     w.Description,
		DurationMinutes: (totalDuration + 59) / 60,
		DifficultyLevel: difficulty,
		Category:        category,
		IsTemplate:      &isTemplate,
		CreatedBy:       &user.ID,
	})
	if err != nil {
		log.Errorf("save workout [%s] for [%s]: %s", w.Name, user.ID, err)
		return result.Fail[*SavedWorkout](err)
	}

	inserts := make([]schema.WorkoutExerciseInsert, 0, len(entries))
	for i, e := range entries {
		insert := schema.WorkoutExerciseInsert{
			WorkoutID:  saved.ID,
			ExerciseID: e.Exercise.ID,
			OrderIndex: i,
		}
		if e.Duration > 0 {
			duration := e.Duration
			insert.DurationSeconds = &duration
		}
		inserts = append(inserts, insert)
	}

	savedExercises, err := s.writer.InsertWorkoutExercises(ctx, inserts)
	if err != nil {
		log.Errorf("save workout [%s] exercises: %s, removing workout", saved.ID, err)
		if delErr := s.writer.DeleteWorkout(ctx, saved.ID); delErr != nil {
			log.Errorf("remove partially saved workout [%s]: %s", saved.ID, delErr)
		}
		return result.Fail[*SavedWorkout](err)
	}

	log.Infof("workout [%s] saved for [%s] with %d exercises", saved.ID, user.ID, len(savedExercises))
	return result.Ok(&SavedWorkout{
		Workout:   *saved,
		Exercises: savedExercises,
	})
}

func (s *Service) observe(op string, res interface{ Success() bool }, start time.Time) {
	s.metrics.ObserveServiceCall("workout."+op, res.Success(), time.Since(start).Seconds())
}

func validateWorkout(w ComposedWorkout) error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: workout name is empty", api.ErrInvalidInput)
	}
	if len(w.Exercises) == 0 {
		return fmt.Errorf("%w: workout has no exercises", api.ErrInvalidInput)
	}
	if w.DifficultyLevel != "" && !w.DifficultyLevel.IsValid() {
		return fmt.Errorf("%w: unknown difficulty %q", api.ErrInvalidInput, w.DifficultyLevel)
	}
	if w.Category != "" && !w.Category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", api.ErrInvalidInput, w.Category)
	}
	for i, e := range w.Exercises {
		if e.Exercise.ID == "" {
			return fmt.Errorf("%w: exercise #%d has no id", api.ErrInvalidInput, i)
		}
		if e.Duration < 0 {
			return fmt.Errorf("%w: exercise #%d has negative duration", api.ErrInvalidInput, i)
		}
	}
	return nil
}
