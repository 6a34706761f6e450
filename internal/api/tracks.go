package api

import (
	"net/http"
	"strconv"

	"github.com/floorwatch/floorwatch/internal/fusion"
)

func (s *Server) listActiveTracks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{
		"count":  s.fuser.TrackCount(),
		"tracks": s.fuser.ActiveTracks(),
	})
}

func (s *Server) trackHistory(w http.ResponseWriter, r *http.Request) {
	trackID := r.PathValue("id")
	if trackID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "invalid track id")
		return
	}
	positions, err := s.db.PositionsForTrack(r.Context(), trackID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, positions)
}

func (s *Server) trackStats(w http.ResponseWriter, r *http.Request) {
	trackID := r.PathValue("id")
	if trackID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "invalid track id")
		return
	}
	positions, err := s.db.PositionsForTrack(r.Context(), trackID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	samples := make([]fusion.Sample, len(positions))
	for i, p := range positions {
		samples[i].Point.X = p.X
		samples[i].Point.Y = p.Y
		samples[i].At = p.RecordedAt
	}
	s.writeJSON(w, ComputeStatsResponse{
		TrackID: trackID,
		Stats:   fusion.ComputeStats(samples),
	})
}

type ComputeStatsResponse struct {
	TrackID string `json:"track_id"`
	fusion.Stats
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	events, err := s.db.RecentDecisions(r.Context(), limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, events)
}
