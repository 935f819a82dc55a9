package schema

import (
	"strings"
)

// ExerciseFilters narrows the exercise catalog. Empty fields put no constraint.
type ExerciseFilters struct {
	MuscleGroup string       `json:"muscle_group,omitempty"`
	Difficulty  FitnessLevel `json:"difficulty,omitempty"`
	Equipment   string       `json:"equipment,omitempty"`
	Search      string       `json:"search,omitempty"`
}

func (f ExerciseFilters) Normalized() ExerciseFilters {
	return ExerciseFilters{
		MuscleGroup: strings.TrimSpace(f.MuscleGroup),
		Difficulty:  FitnessLevel(strings.TrimSpace(string(f.Difficulty))),
		Equipment:   strings.TrimSpace(f.Equipment),
		Search:      strings.TrimSpace(f.Search),
	}
}

func (f ExerciseFilters) IsEmpty() bool {
	n := f.Normalized()
	return n.MuscleGroup == "" && n.Difficulty == "" && n.Equipment == "" && n.Search == ""
}
