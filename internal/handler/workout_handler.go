package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"socialposts/internal/requestctx"
	"socialposts/internal/service"
)

func (h *Handlers) GetWorkouts(w http.ResponseWriter, r *http.Request) {
	workouts, err := h.WorkoutService.ListByUser(r.Context(), requestctx.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, workouts, http.StatusOK)
}

func (h *Handlers) CreateWorkout(w http.ResponseWriter, r *http.Request) {
	var req service.CreateWorkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Validate.Struct(req); err != nil {
		WriteError(w, "title is required, reps and load must not be negative", http.StatusBadRequest)
		return
	}

	workout, err := h.WorkoutService.Create(r.Context(), requestctx.UserID(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, workout, http.StatusCreated)
}

func (h *Handlers) GetWorkout(w http.ResponseWriter, r *http.Request) {
	workout, err := h.WorkoutService.Get(r.Context(), mux.Vars(r)["id"], requestctx.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, workout, http.StatusOK)
}

func (h *Handlers) UpdateWorkout(w http.ResponseWriter, r *http.Request) {
	var patch service.WorkoutPatch
	if err := decodeJSON(r, &patch); err != nil {
		WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	workout, err := h.WorkoutService.Update(r.Context(), mux.Vars(r)["id"], patch, requestctx.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, workout, http.StatusOK)
}

func (h *Handlers) DeleteWorkout(w http.ResponseWriter, r *http.Request) {
	if err := h.WorkoutService.Delete(r.Context(), mux.Vars(r)["id"], requestctx.UserID(r.Context())); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
