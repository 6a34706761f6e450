package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/floorwatch/floorwatch/internal/db"
	"github.com/floorwatch/floorwatch/internal/fov"
	"github.com/floorwatch/floorwatch/internal/geo"
)

func (s *Server) listFloorplans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.db.ListFloorplans(r.Context())
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, plans)
}

func (s *Server) createFloorplan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string  `json:"name"`
		WidthM    float64 `json:"width_m"`
		DepthM    float64 `json:"depth_m"`
		ImagePath string  `json:"image_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.WidthM <= 0 || req.DepthM <= 0 {
		s.writeJSONError(w, http.StatusBadRequest, "name, width_m and depth_m are required")
		return
	}
	fp, err := s.db.CreateFloorplan(r.Context(), db.Floorplan{
		Name:      req.Name,
		WidthM:    req.WidthM,
		DepthM:    req.DepthM,
		ImagePath: req.ImagePath,
	})
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(fp)
}

func (s *Server) getFloorplan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid floorplan id")
		return
	}
	fp, err := s.db.GetFloorplan(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "floorplan not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, fp)
}

func (s *Server) deleteFloorplan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid floorplan id")
		return
	}
	err := s.db.DeleteFloorplan(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "floorplan not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.walls.Invalidate(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) placeCamera(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid floorplan id")
		return
	}
	var req struct {
		CameraID int64   `json:"camera_id"`
		X        float64 `json:"x"`
		Y        float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CameraID <= 0 {
		s.writeJSONError(w, http.StatusBadRequest, "camera_id is required")
		return
	}
	fp, err := s.db.PlaceCamera(r.Context(), id, req.CameraID, req.X, req.Y)
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "floorplan or camera not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, fp)
}

func (s *Server) removeCamera(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid floorplan id")
		return
	}
	cameraID, ok := pathID(r, "cameraID")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid camera id")
		return
	}
	err := s.db.RemoveCamera(r.Context(), id, cameraID)
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "placement not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getWalls(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid floorplan id")
		return
	}
	fp, err := s.db.GetFloorplan(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "floorplan not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if fp.ImagePath == "" {
		s.writeJSONError(w, http.StatusConflict, "floorplan has no image")
		return
	}
	polys, err := s.walls.WallPolygons(fp.ID, fp.ImagePath, fp.WidthM, fp.DepthM)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, map[string]any{"walls": polys})
}

func (s *Server) getOccludedFOV(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid floorplan id")
		return
	}
	cameraID, ok := pathID(r, "cameraID")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "invalid camera id")
		return
	}
	fp, err := s.db.GetFloorplan(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "floorplan not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	x, y, placed := fp.Placements.Position(cameraID)
	if !placed {
		s.writeJSONError(w, http.StatusNotFound, "camera is not placed on this floorplan")
		return
	}
	cam, err := s.db.GetCamera(r.Context(), cameraID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var wallPolys [][]geo.Point
	if fp.ImagePath != "" {
		wallPolys, err = s.walls.WallPolygons(fp.ID, fp.ImagePath, fp.WidthM, fp.DepthM)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	boundary := fov.BoundaryPolygon(fp.WidthM, fp.DepthM)
	poly := fov.VisibilityPolygon(geo.Point{X: x, Y: y}, cam.HeadingDeg, wallPolys, boundary, s.fovCfg)
	s.writeJSON(w, map[string]any{
		"camera_id":   cameraID,
		"heading_deg": cam.HeadingDeg,
		"polygon":     poly,
	})
}
