package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2beens/trainor/internal/schema"
	"github.com/2beens/trainor/internal/telemetry/tracing"
	"github.com/2beens/trainor/pkg"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrExerciseExists = errors.New("exercise already exists")

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// CatalogRepo reads the exercise catalog straight from Postgres.
type CatalogRepo struct {
	db *pgxpool.Pool
}

func NewCatalogRepo(db *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{
		db: db,
	}
}

// ListExercises applies every non empty filter, ordered by name. Search
// matches name or description, case insensitive.
func (r *CatalogRepo) ListExercises(ctx context.Context, filters schema.ExerciseFilters) (_ []schema.Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.db.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	filters = filters.Normalized()
	if filters.MuscleGroup != "" {
		span.SetAttributes(attribute.String("params.muscleGroup", filters.MuscleGroup))
	}
	if filters.Difficulty != "" {
		span.SetAttributes(attribute.String("params.difficulty", string(filters.Difficulty)))
	}
	if filters.Equipment != "" {
		span.SetAttributes(attribute.String("params.equipment", filters.Equipment))
	}

	var searchPattern string
	if filters.Search != "" {
		span.SetAttributes(attribute.String("params.search", filters.Search))
		searchPattern = "%" + likeEscaper.Replace(filters.Search) + "%"
	}

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
			    id::text, name, description, instructions, category, muscle_groups,
			    difficulty_level, equipment_needed, video_url, image_url, created_at, updated_at
			FROM exercises
			WHERE ($1::text = '' OR muscle_groups @> ARRAY[$1::text])
			  AND ($2::text = '' OR difficulty_level = $2)
			  AND ($3::text = '' OR equipment_needed = $3)
			  AND ($4::text = '' OR name ILIKE $4 OR description ILIKE $4)
			ORDER BY name ASC
		`,
		filters.MuscleGroup,
		string(filters.Difficulty),
		filters.Equipment,
		searchPattern,
	)
	if err != nil {
		return nil, fmt.Errorf("exercises [query]: %w", err)
	}
	defer rows.Close()

	exercises := make([]schema.Exercise, 0)
	for rows.Next() {
		var (
			exercise   schema.Exercise
			category   string
			difficulty string
		)
		err := rows.Scan(
			&exercise.ID,
			&exercise.Name,
			&exercise.Description,
			&exercise.Instructions,
			&category,
			&exercise.MuscleGroups,
			&difficulty,
			&exercise.EquipmentNeeded,
			&exercise.VideoURL,
			&exercise.ImageURL,
			&exercise.CreatedAt,
			&exercise.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("exercises [rows scan]: %w", err)
		}
		exercise.Category = schema.ExerciseCategory(category)
		exercise.DifficultyLevel = schema.FitnessLevel(difficulty)
		exercises = append(exercises, exercise)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("exercises [rows error]: %w", err)
	}

	span.SetAttributes(attribute.Int("exercises.count", len(exercises)))
	return exercises, nil
}

// InsertExercise adds a catalog row, used to seed the catalog.
func (r *CatalogRepo) InsertExercise(ctx context.Context, insert schema.ExerciseInsert) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.db.exercises.insert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	muscleGroups := insert.MuscleGroups
	if muscleGroups == nil {
		muscleGroups = []string{}
	}

	var id string
	err = r.db.QueryRow(
		ctx,
		`
			INSERT INTO exercises (
			    id, name, description, instructions, category, muscle_groups,
			    difficulty_level, equipment_needed, video_url, image_url
			)
			VALUES (COALESCE($1::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id::text
		`,
		insert.ID,
		insert.Name,
		insert.Description,
		insert.Instructions,
		string(insert.Category),
		muscleGroups,
		string(insert.DifficultyLevel),
		insert.EquipmentNeeded,
		insert.VideoURL,
		insert.ImageURL,
	).Scan(&id)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return "", ErrExerciseExists
		}
		return "", fmt.Errorf("insert exercise [query row]: %w", err)
	}

	return id, nil
}
