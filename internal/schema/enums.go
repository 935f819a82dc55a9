package schema

type FitnessLevel string

const (
	FitnessLevelBeginner     FitnessLevel = "beginner"
	FitnessLevelIntermediate FitnessLevel = "intermediate"
	FitnessLevelAdvanced     FitnessLevel = "advanced"
)

var FitnessLevels = []FitnessLevel{
	FitnessLevelBeginner,
	FitnessLevelIntermediate,
	FitnessLevelAdvanced,
}

func (l FitnessLevel) IsValid() bool {
	switch l {
	case FitnessLevelBeginner, FitnessLevelIntermediate, FitnessLevelAdvanced:
		return true
	}
	return false
}

type PrimaryGoal string

const (
	PrimaryGoalStrength    PrimaryGoal = "strength"
	PrimaryGoalEndurance   PrimaryGoal = "endurance"
	PrimaryGoalFlexibility PrimaryGoal = "flexibility"
	PrimaryGoalWeightLoss  PrimaryGoal = "weight_loss"
	PrimaryGoalMuscleGain  PrimaryGoal = "muscle_gain"
)

func (g PrimaryGoal) IsValid() bool {
	switch g {
	case PrimaryGoalStrength, PrimaryGoalEndurance, PrimaryGoalFlexibility,
		PrimaryGoalWeightLoss, PrimaryGoalMuscleGain:
		return true
	}
	return false
}

type ExerciseCategory string

const (
	ExerciseCategoryBodyweight  ExerciseCategory = "bodyweight"
	ExerciseCategoryCardio      ExerciseCategory = "cardio"
	ExerciseCategoryFlexibility ExerciseCategory = "flexibility"
	ExerciseCategoryStrength    ExerciseCategory = "strength"
)

func (c ExerciseCategory) IsValid() bool {
	switch c {
	case ExerciseCategoryBodyweight, ExerciseCategoryCardio,
		ExerciseCategoryFlexibility, ExerciseCategoryStrength:
		return true
	}
	return false
}

type WorkoutCategory string

const (
	WorkoutCategoryStrength    WorkoutCategory = "strength"
	WorkoutCategoryCardio      WorkoutCategory = "cardio"
	WorkoutCategoryFlexibility WorkoutCategory = "flexibility"
	WorkoutCategoryFullBody    WorkoutCategory = "full_body"
	WorkoutCategoryUpperBody   WorkoutCategory = "upper_body"
	WorkoutCategoryLowerBody   WorkoutCategory = "lower_body"
)

func (c WorkoutCategory) IsValid() bool {
	switch c {
	case WorkoutCategoryStrength, WorkoutCategoryCardio, WorkoutCategoryFlexibility,
		WorkoutCategoryFullBody, WorkoutCategoryUpperBody, WorkoutCategoryLowerBody:
		return true
	}
	return false
}
