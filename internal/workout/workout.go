package workout

import (
	"github.com/2beens/trainor/internal/schema"
)

// ComposedExercise is one entry of a workout being composed: the catalog
// exercise, how long it runs (seconds) and its requested position.
type ComposedExercise struct {
	Exercise schema.Exercise `json:"exercise"`
	Duration int             `json:"duration"`
	Order    int             `json:"order"`
}

// ComposedWorkout is an in-memory workout before it is saved. Difficulty and
// category are derived from the exercises when left empty.
type ComposedWorkout struct {
	Name            string                 `json:"name"`
	Description     *string                `json:"description,omitempty"`
	Exercises       []ComposedExercise     `json:"exercises"`
	TotalDuration   int                    `json:"total_duration"`
	DifficultyLevel schema.FitnessLevel    `json:"difficulty_level,omitempty"`
	Category        schema.WorkoutCategory `json:"category,omitempty"`
}

type SavedWorkout struct {
	Workout   schema.Workout           `json:"workout"`
	Exercises []schema.WorkoutExercise `json:"exercises"`
}

var difficultyRank = map[schema.FitnessLevel]int{
	schema.FitnessLevelBeginner:     1,
	schema.FitnessLevelIntermediate: 2,
	schema.FitnessLevelAdvanced:     3,
}

// deriveDifficulty picks the hardest exercise level, beginner for none.
func deriveDifficulty(exercises []ComposedExercise) schema.FitnessLevel {
	level := schema.FitnessLevelBeginner
	for _, e := range exercises {
		if difficultyRank[e.Exercise.DifficultyLevel] > difficultyRank[level] {
			level = e.Exercise.DifficultyLevel
		}
	}
	return level
}

// deriveCategory keeps a single shared exercise category, full body otherwise.
func deriveCategory(exercises []ComposedExercise) schema.WorkoutCategory {
	var shared schema.ExerciseCategory
	for i, e := range exercises {
		if i == 0 {
			shared = e.Exercise.Category
			continue
		}
		if e.Exercise.Category != shared {
			return schema.WorkoutCategoryFullBody
		}
	}

	switch shared {
	case schema.ExerciseCategoryStrength:
		return schema.WorkoutCategoryStrength
	case schema.ExerciseCategoryCardio:
		return schema.WorkoutCategoryCardio
	case schema.ExerciseCategoryFlexibility:
		return schema.WorkoutCategoryFlexibility
	default:
		return schema.WorkoutCategoryFullBody
	}
}
