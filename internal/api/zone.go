package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/floorwatch/floorwatch/internal/db"
	"github.com/floorwatch/floorwatch/internal/geo"
	"github.com/floorwatch/floorwatch/internal/zones"
)

func (s *Server) listZones(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid floorplan id")
		return
	}
	zs, err := s.db.GetZonesForFloorplan(r.Context(), id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, zs)
}

func (s *Server) createZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid floorplan id")
		return
	}
	var req struct {
		Name   string      `json:"name"`
		Points []geo.Point `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		s.writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	z, err := s.db.CreateZone(r.Context(), id, req.Name, req.Points)
	if errors.Is(err, zones.ErrTooFewPoints) {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(z)
}

func (s *Server) getZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid zone id")
		return
	}
	z, err := s.db.GetZone(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "zone not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, z)
}

// updateZone accepts a new name, a new point set, or both.
func (s *Server) updateZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid zone id")
		return
	}
	var req struct {
		Name   string      `json:"name"`
		Points []geo.Point `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" && req.Points == nil {
		s.writeJSONError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if req.Name != "" {
		err := s.db.RenameZone(r.Context(), id, req.Name)
		if errors.Is(err, db.ErrNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "zone not found")
			return
		}
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if req.Points != nil {
		_, err := s.db.UpdateZonePoints(r.Context(), id, req.Points)
		if errors.Is(err, zones.ErrTooFewPoints) {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, db.ErrNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "zone not found")
			return
		}
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	z, err := s.db.GetZone(r.Context(), id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, z)
}

func (s *Server) deleteZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid zone id")
		return
	}
	err := s.db.DeleteZone(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "zone not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid zone id")
		return
	}
	scheds, err := s.db.GetSchedulesForZone(r.Context(), id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, scheds)
}

func (s *Server) createSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid zone id")
		return
	}
	var sched zones.Schedule
	if err := json.NewDecoder(r.Body).Decode(&sched); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sched.ZoneID = id
	if msg, ok := validateSchedule(sched); !ok {
		s.writeJSONError(w, http.StatusBadRequest, msg)
		return
	}
	sched, err := s.db.CreateSchedule(r.Context(), sched)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sched)
}

func (s *Server) updateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}
	var sched zones.Schedule
	if err := json.NewDecoder(r.Body).Decode(&sched); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sched.ID = id
	if msg, ok := validateSchedule(sched); !ok {
		s.writeJSONError(w, http.StatusBadRequest, msg)
		return
	}
	err := s.db.UpdateSchedule(r.Context(), sched)
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "schedule not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sched, err = s.db.GetSchedule(r.Context(), id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, sched)
}

func (s *Server) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}
	err := s.db.DeleteSchedule(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "schedule not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validateSchedule(s zones.Schedule) (string, bool) {
	switch s.Type {
	case zones.ScheduleRecurring:
		if len(s.Days) == 0 || s.Start == "" || s.End == "" {
			return "recurring schedules need days, start and end", false
		}
		if s.SpansNextDay == nil {
			return "recurring schedules need spans_next_day", false
		}
	case zones.ScheduleOneTime:
		if s.StartDateTime == nil || s.EndDateTime == nil {
			return "one-time schedules need start_datetime and end_datetime", false
		}
		if !s.EndDateTime.After(*s.StartDateTime) {
			return "end_datetime must be after start_datetime", false
		}
	default:
		return "type must be recurring or one-time", false
	}
	return "", true
}
