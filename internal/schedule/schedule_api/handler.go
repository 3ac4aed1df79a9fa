package schedule_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"ms-queueskip/internal/logger"
	"ms-queueskip/internal/models"
	"ms-queueskip/internal/schedule"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	ScheduleService *schedule.Service
	Logger          *logger.Logger
}

func NewHandler(scheduleService *schedule.Service, log *logger.Logger) *Handler {
	return &Handler{
		ScheduleService: scheduleService,
		Logger:          log,
	}
}

func (h *Handler) ListVenues(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "ListVenues: received request")

	venues, err := h.ScheduleService.ListVenues(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListVenues: failed to list venues: %v", err))
		http.Error(w, "Failed to retrieve venues: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(venues); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListVenues: failed to encode response: %v", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("ListVenues: returned %d venues", len(venues)))
}

func (h *Handler) GetVenue(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "venueId")
	h.Logger.Info("API", fmt.Sprintf("GetVenue: venueId=%s", venueID))

	venue, err := h.ScheduleService.GetVenueWithSchedule(r.Context(), venueID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetVenue: venue not found: %v", err))
		http.Error(w, "Venue not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(venue); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetVenue: failed to encode response: %v", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("GetVenue: response sent for venue %s", venueID))
}

func (h *Handler) UpsertDaySchedule(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "venueId")
	h.Logger.Info("API", fmt.Sprintf("UpsertDaySchedule: venueId=%s", venueID))

	var req struct {
		DayOfWeek      int  `json:"day_of_week"`
		SlotsPerPeriod int  `json:"slots_per_period"`
		IsActive       bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpsertDaySchedule: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	day, err := h.ScheduleService.UpsertDaySchedule(r.Context(), venueID, req.DayOfWeek, req.SlotsPerPeriod, req.IsActive)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpsertDaySchedule: failed to upsert: %v", err))
		http.Error(w, "Failed to save day schedule: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(day); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpsertDaySchedule: failed to encode response: %v", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("UpsertDaySchedule: saved day %d for venue %s", req.DayOfWeek, venueID))
}

func (h *Handler) UpsertHourWindow(w http.ResponseWriter, r *http.Request) {
	dayScheduleID, err := strconv.ParseInt(chi.URLParam(r, "dayScheduleId"), 10, 64)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpsertHourWindow: invalid dayScheduleId: %v", err))
		http.Error(w, "Invalid day schedule id", http.StatusBadRequest)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("UpsertHourWindow: dayScheduleId=%d", dayScheduleID))

	var req struct {
		StartTime     string `json:"start_time"`
		EndTime       string `json:"end_time"`
		SlotsOverride int    `json:"slots_override"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpsertHourWindow: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	windows, err := h.ScheduleService.UpsertHourWindow(r.Context(), dayScheduleID, req.StartTime, req.EndTime, req.SlotsOverride)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpsertHourWindow: failed to upsert: %v", err))
		http.Error(w, "Failed to save hour window: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(windows); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpsertHourWindow: failed to encode response: %v", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("UpsertHourWindow: saved %d window(s) under day schedule %d", len(windows), dayScheduleID))
}

func (h *Handler) ApplyTimeSlots(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "venueId")
	h.Logger.Info("API", fmt.Sprintf("ApplyTimeSlots: venueId=%s", venueID))

	var req struct {
		TimeSlots []models.TimeSlotEntry `json:"time_slots"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ApplyTimeSlots: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.TimeSlots) == 0 {
		h.Logger.Warn("API", "ApplyTimeSlots: no time slots in request")
		http.Error(w, "time_slots cannot be empty", http.StatusBadRequest)
		return
	}

	if err := h.ScheduleService.ApplyTimeSlots(r.Context(), venueID, req.TimeSlots); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ApplyTimeSlots: failed to apply: %v", err))
		http.Error(w, "Failed to apply time slots: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message":"Time slots applied successfully"}`))
	h.Logger.Info("API", fmt.Sprintf("ApplyTimeSlots: applied %d entries for venue %s", len(req.TimeSlots), venueID))
}

func (h *Handler) ToggleDayActive(w http.ResponseWriter, r *http.Request) {
	dayScheduleID, err := strconv.ParseInt(chi.URLParam(r, "dayScheduleId"), 10, 64)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ToggleDayActive: invalid dayScheduleId: %v", err))
		http.Error(w, "Invalid day schedule id", http.StatusBadRequest)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("ToggleDayActive: dayScheduleId=%d", dayScheduleID))

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ToggleDayActive: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.ScheduleService.ToggleDayActive(r.Context(), dayScheduleID, req.IsActive); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ToggleDayActive: failed to toggle: %v", err))
		http.Error(w, "Failed to toggle day schedule: "+err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"message":"Day schedule updated"}`))
	h.Logger.Info("API", fmt.Sprintf("ToggleDayActive: day schedule %d set active=%t", dayScheduleID, req.IsActive))
}

func (h *Handler) DeleteDaySchedule(w http.ResponseWriter, r *http.Request) {
	dayScheduleID, err := strconv.ParseInt(chi.URLParam(r, "dayScheduleId"), 10, 64)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteDaySchedule: invalid dayScheduleId: %v", err))
		http.Error(w, "Invalid day schedule id", http.StatusBadRequest)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("DeleteDaySchedule: dayScheduleId=%d", dayScheduleID))

	if err := h.ScheduleService.DeleteDaySchedule(r.Context(), dayScheduleID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteDaySchedule: failed to delete: %v", err))
		http.Error(w, "Could not delete day schedule: "+err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
	h.Logger.Info("API", fmt.Sprintf("DeleteDaySchedule: day schedule %d deleted", dayScheduleID))
}
