package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/floorwatch/floorwatch/internal/db"
)

func (s *Server) listCameras(w http.ResponseWriter, r *http.Request) {
	cams, err := s.db.ListCameras(r.Context())
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, cams)
}

func (s *Server) createCamera(w http.ResponseWriter, r *http.Request) {
	var cam db.Camera
	if err := json.NewDecoder(r.Body).Decode(&cam); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if cam.Serial == "" {
		s.writeJSONError(w, http.StatusBadRequest, "serial is required")
		return
	}
	cam, err := s.db.CreateCamera(r.Context(), cam)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(cam)
}

func (s *Server) updateCamera(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid camera id")
		return
	}
	var cam db.Camera
	if err := json.NewDecoder(r.Body).Decode(&cam); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	cam.ID = id
	err := s.db.UpdateCamera(r.Context(), cam)
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "camera not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, cam)
}

func (s *Server) deleteCamera(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid camera id")
		return
	}
	err := s.db.DeleteCamera(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "camera not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
