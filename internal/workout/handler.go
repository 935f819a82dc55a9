package workout

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/2beens/trainor/internal/api"
	"github.com/2beens/trainor/internal/result"
	"github.com/2beens/trainor/internal/schema"
	"github.com/2beens/trainor/pkg"
)

type DurationResponse struct {
	Seconds   int    `json:"seconds"`
	Formatted string `json:"formatted"`
}

type durationRequest struct {
	Exercises []ComposedExercise `json:"exercises"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

// HandleExercises lists the catalog, filtered when any of muscle_group,
// difficulty, equipment or search is given.
func (handler *Handler) HandleExercises(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters := schema.ExerciseFilters{
		MuscleGroup: query.Get("muscle_group"),
		Difficulty:  schema.FitnessLevel(query.Get("difficulty")),
		Equipment:   query.Get("equipment"),
		Search:      query.Get("search"),
	}

	if filters.IsEmpty() {
		api.WriteResult(w, handler.service.GetExercises(r.Context()))
		return
	}
	api.WriteResult(w, handler.service.GetFilteredExercises(r.Context(), filters))
}

func (handler *Handler) HandleSaveWorkout(w http.ResponseWriter, r *http.Request) {
	var composed ComposedWorkout
	if err := api.DecodeJSON(r, &composed); err != nil {
		api.WriteError(w, err)
		return
	}

	res := handler.service.SaveWorkout(r.Context(), composed)
	if !res.Success() {
		api.WriteResult(w, res)
		return
	}
	pkg.WriteJSON(w, http.StatusCreated, res)
}

// HandleTotalDuration sums up the durations of a workout being composed.
func (handler *Handler) HandleTotalDuration(w http.ResponseWriter, r *http.Request) {
	var req durationRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}

	for i, e := range req.Exercises {
		if e.Duration < 0 {
			api.WriteError(w, fmt.Errorf("%w: exercise #%d has negative duration", api.ErrInvalidInput, i))
			return
		}
	}

	total := CalculateTotalDuration(req.Exercises)
	api.WriteResult(w, result.Ok(DurationResponse{
		Seconds:   total,
		Formatted: FormatDuration(total),
	}))
}

// HandleDuration parses ?input= or formats ?seconds=.
func (handler *Handler) HandleDuration(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var seconds int
	switch {
	case query.Has("input"):
		seconds = ParseTimeInput(query.Get("input"))
	case query.Has("seconds"):
		parsed, err := strconv.Atoi(query.Get("seconds"))
		if err != nil || parsed < 0 {
			api.WriteError(w, fmt.Errorf("%w: seconds must be a non negative integer", api.ErrInvalidInput))
			return
		}
		seconds = parsed
	default:
		api.WriteError(w, fmt.Errorf("%w: input or seconds required", api.ErrInvalidInput))
		return
	}

	api.WriteResult(w, result.Ok(DurationResponse{
		Seconds:   seconds,
		Formatted: FormatDuration(seconds),
	}))
}
