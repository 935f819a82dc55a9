// Package schema mirrors the remote relational schema. Row types describe
// what a select returns, Insert types what a caller may send on insert
// (server defaulted columns are optional) and Update types what a patch may
// carry (nil means unchanged).
package schema

import (
	"time"
)

const (
	TableProfiles         = "profiles"
	TableExercises        = "exercises"
	TableWorkouts         = "workouts"
	TableWorkoutExercises = "workout_exercises"
	TableWorkoutLogs      = "workout_logs"
	TableExerciseLogs     = "exercise_logs"
	TableProgressLogs     = "progress_logs"
)

// profiles

type Profile struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	FullName     *string      `json:"full_name"`
	Username     *string      `json:"username"`
	AvatarURL    *string      `json:"avatar_url"`
	FitnessLevel FitnessLevel `json:"fitness_level"`
	PrimaryGoal  PrimaryGoal  `json:"primary_goal"`
	Weight       *float64     `json:"weight"`
	Height       *float64     `json:"height"`
	DateOfBirth  *string      `json:"date_of_birth"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type ProfileInsert struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	FullName     *string       `json:"full_name,omitempty"`
	Username     *string       `json:"username,omitempty"`
	AvatarURL    *string       `json:"avatar_url,omitempty"`
	FitnessLevel *FitnessLevel `json:"fitness_level,omitempty"`
	PrimaryGoal  *PrimaryGoal  `json:"primary_goal,omitempty"`
	Weight       *float64      `json:"weight,omitempty"`
	Height       *float64      `json:"height,omitempty"`
	DateOfBirth  *string       `json:"date_of_birth,omitempty"`
}

type ProfileUpdate struct {
	Email        *string       `json:"email,omitempty"`
	FullName     *string       `json:"full_name,omitempty"`
	Username     *string       `json:"username,omitempty"`
	AvatarURL    *string       `json:"avatar_url,omitempty"`
	FitnessLevel *FitnessLevel `json:"fitness_level,omitempty"`
	PrimaryGoal  *PrimaryGoal  `json:"primary_goal,omitempty"`
	Weight       *float64      `json:"weight,omitempty"`
	Height       *float64      `json:"height,omitempty"`
	DateOfBirth  *string       `json:"date_of_birth,omitempty"`
	UpdatedAt    *time.Time    `json:"updated_at,omitempty"`
}

// exercises

type Exercise struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     *string          `json:"description"`
	Instructions    string           `json:"instructions"`
	Category        ExerciseCategory `json:"category"`
	MuscleGroups    []string         `json:"muscle_groups"`
	DifficultyLevel FitnessLevel     `json:"difficulty_level"`
	EquipmentNeeded *string          `json:"equipment_needed"`
	VideoURL        *string          `json:"video_url"`
	ImageURL        *string          `json:"image_url"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type ExerciseInsert struct {
	ID              *string          `json:"id,omitempty"`
	Name            string           `json:"name"`
	Description     *string          `json:"description,omitempty"`
	Instructions    string           `json:"instructions"`
	Category        ExerciseCategory `json:"category"`
	MuscleGroups    []string         `json:"muscle_groups"`
	DifficultyLevel FitnessLevel     `json:"difficulty_level"`
	EquipmentNeeded *string          `json:"equipment_needed,omitempty"`
	VideoURL        *string          `json:"video_url,omitempty"`
	ImageURL        *string          `json:"image_url,omitempty"`
}

type ExerciseUpdate struct {
	Name            *string           `json:"name,omitempty"`
	Description     *string           `json:"description,omitempty"`
	Instructions    *string           `json:"instructions,omitempty"`
	Category        *ExerciseCategory `json:"category,omitempty"`
	MuscleGroups    []string          `json:"muscle_groups,omitempty"`
	DifficultyLevel *FitnessLevel     `json:"difficulty_level,omitempty"`
	EquipmentNeeded *string           `json:"equipment_needed,omitempty"`
	VideoURL        *string           `json:"video_url,omitempty"`
	ImageURL        *string           `json:"image_url,omitempty"`
}

// workouts

type Workout struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     *string         `json:"description"`
	DurationMinutes int             `json:"duration_minutes"`
	DifficultyLevel FitnessLevel    `json:"difficulty_level"`
	Category        WorkoutCategory `json:"category"`
	IsTemplate      bool            `json:"is_template"`
	CreatedBy       *string         `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type WorkoutInsert struct {
	ID              *string         `json:"id,omitempty"`
	Name            string          `json:"name"`
	Description     *string         `json:"description,omitempty"`
	DurationMinutes int             `json:"duration_minutes"`
	DifficultyLevel FitnessLevel    `json:"difficulty_level"`
	Category        WorkoutCategory `json:"category"`
	IsTemplate      *bool           `json:"is_template,omitempty"`
	CreatedBy       *string         `json:"created_by,omitempty"`
}

type WorkoutUpdate struct {
	Name            *string          `json:"name,omitempty"`
	Description     *string          `json:"description,omitempty"`
	DurationMinutes *int             `json:"duration_minutes,omitempty"`
	DifficultyLevel *FitnessLevel    `json:"difficulty_level,omitempty"`
	Category        *WorkoutCategory `json:"category,omitempty"`
	IsTemplate      *bool            `json:"is_template,omitempty"`
}

// workout_exercises

type WorkoutExercise struct {
	ID              string    `json:"id"`
	WorkoutID       string    `json:"workout_id"`
	ExerciseID      string    `json:"exercise_id"`
	Sets            *int      `json:"sets"`
	Reps            *int      `json:"reps"`
	DurationSeconds *int      `json:"duration_seconds"`
	RestSeconds     *int      `json:"rest_seconds"`
	Weight          *float64  `json:"weight"`
	Notes           *string   `json:"notes"`
	OrderIndex      int       `json:"order_index"`
	CreatedAt       time.Time `json:"created_at"`
}

type WorkoutExerciseInsert struct {
	ID              *string  `json:"id,omitempty"`
	WorkoutID       string   `json:"workout_id"`
	ExerciseID      string   `json:"exercise_id"`
	Sets            *int     `json:"sets,omitempty"`
	Reps            *int     `json:"reps,omitempty"`
	DurationSeconds *int     `json:"duration_seconds,omitempty"`
	RestSeconds     *int     `json:"rest_seconds,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
	OrderIndex      int      `json:"order_index"`
}

type WorkoutExerciseUpdate struct {
	Sets            *int     `json:"sets,omitempty"`
	Reps            *int     `json:"reps,omitempty"`
	DurationSeconds *int     `json:"duration_seconds,omitempty"`
	RestSeconds     *int     `json:"rest_seconds,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
	OrderIndex      *int     `json:"order_index,omitempty"`
}

// workout_logs

type WorkoutLog struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	WorkoutID       string     `json:"workout_id"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	DurationMinutes *int       `json:"duration_minutes"`
	CaloriesBurned  *int       `json:"calories_burned"`
	Notes           *string    `json:"notes"`
	Rating          *int       `json:"rating"`
	CreatedAt       time.Time  `json:"created_at"`
}

type WorkoutLogInsert struct {
	ID              *string    `json:"id,omitempty"`
	UserID          string     `json:"user_id"`
	WorkoutID       string     `json:"workout_id"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	CaloriesBurned  *int       `json:"calories_burned,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	Rating          *int       `json:"rating,omitempty"`
}

type WorkoutLogUpdate struct {
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	CaloriesBurned  *int       `json:"calories_burned,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	Rating          *int       `json:"rating,omitempty"`
}

// exercise_logs

type ExerciseLog struct {
	ID              string    `json:"id"`
	WorkoutLogID    string    `json:"workout_log_id"`
	ExerciseID      string    `json:"exercise_id"`
	SetsCompleted   int       `json:"sets_completed"`
	RepsCompleted   *int      `json:"reps_completed"`
	DurationSeconds *int      `json:"duration_seconds"`
	WeightUsed      *float64  `json:"weight_used"`
	RestSeconds     *int      `json:"rest_seconds"`
	Notes           *string   `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
}

type ExerciseLogInsert struct {
	ID              *string  `json:"id,omitempty"`
	WorkoutLogID    string   `json:"workout_log_id"`
	ExerciseID      string   `json:"exercise_id"`
	SetsCompleted   int      `json:"sets_completed"`
	RepsCompleted   *int     `json:"reps_completed,omitempty"`
	DurationSeconds *int     `json:"duration_seconds,omitempty"`
	WeightUsed      *float64 `json:"weight_used,omitempty"`
	RestSeconds     *int     `json:"rest_seconds,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

type ExerciseLogUpdate struct {
	SetsCompleted   *int     `json:"sets_completed,omitempty"`
	RepsCompleted   *int     `json:"reps_completed,omitempty"`
	DurationSeconds *int     `json:"duration_seconds,omitempty"`
	WeightUsed      *float64 `json:"weight_used,omitempty"`
	RestSeconds     *int     `json:"rest_seconds,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

// progress_logs

type ProgressLog struct {
	ID                string             `json:"id"`
	UserID            string             `json:"user_id"`
	Date              string             `json:"date"`
	Weight            *float64           `json:"weight"`
	BodyFatPercentage *float64           `json:"body_fat_percentage"`
	MuscleMass        *float64           `json:"muscle_mass"`
	Measurements      map[string]float64 `json:"measurements"`
	Photos            []string           `json:"photos"`
	Notes             *string            `json:"notes"`
	CreatedAt         time.Time          `json:"created_at"`
}

type ProgressLogInsert struct {
	ID                *string            `json:"id,omitempty"`
	UserID            string             `json:"user_id"`
	Date              string             `json:"date"`
	Weight            *float64           `json:"weight,omitempty"`
	BodyFatPercentage *float64           `json:"body_fat_percentage,omitempty"`
	MuscleMass        *float64           `json:"muscle_mass,omitempty"`
	Measurements      map[string]float64 `json:"measurements,omitempty"`
	Photos            []string           `json:"photos,omitempty"`
	Notes             *string            `json:"notes,omitempty"`
}

type ProgressLogUpdate struct {
	Date              *string            `json:"date,omitempty"`
	Weight            *float64           `json:"weight,omitempty"`
	BodyFatPercentage *float64           `json:"body_fat_percentage,omitempty"`
	MuscleMass        *float64           `json:"muscle_mass,omitempty"`
	Measurements      map[string]float64 `json:"measurements,omitempty"`
	Photos            []string           `json:"photos,omitempty"`
	Notes             *string            `json:"notes,omitempty"`
}
