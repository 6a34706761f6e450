// Package api is the HTTP surface: floorplan, camera, zone and schedule
// configuration plus live track and event queries.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/floorwatch/floorwatch/internal/db"
	"github.com/floorwatch/floorwatch/internal/fov"
	"github.com/floorwatch/floorwatch/internal/fusion"
	"github.com/floorwatch/floorwatch/internal/monitoring"
	"github.com/floorwatch/floorwatch/internal/walls"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db     *db.DB
	fuser  *fusion.Fuser
	walls  *walls.Vectorizer
	fovCfg fov.Config
}

func NewServer(store *db.DB, fuser *fusion.Fuser, vectorizer *walls.Vectorizer, fovCfg fov.Config) *Server {
	return &Server{
		db:     store,
		fuser:  fuser,
		walls:  vectorizer,
		fovCfg: fovCfg,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/floorplans", s.listFloorplans)
	mux.HandleFunc("POST /api/floorplans", s.createFloorplan)
	mux.HandleFunc("GET /api/floorplans/{id}", s.getFloorplan)
	mux.HandleFunc("DELETE /api/floorplans/{id}", s.deleteFloorplan)
	mux.HandleFunc("POST /api/floorplans/{id}/cameras", s.placeCamera)
	mux.HandleFunc("DELETE /api/floorplans/{id}/cameras/{cameraID}", s.removeCamera)
	mux.HandleFunc("GET /api/floorplans/{id}/walls", s.getWalls)
	mux.HandleFunc("GET /api/floorplans/{id}/cameras/{cameraID}/occluded_fov", s.getOccludedFOV)
	mux.HandleFunc("GET /api/floorplans/{id}/zones", s.listZones)
	mux.HandleFunc("POST /api/floorplans/{id}/zones", s.createZone)

	mux.HandleFunc("GET /api/cameras", s.listCameras)
	mux.HandleFunc("POST /api/cameras", s.createCamera)
	mux.HandleFunc("PUT /api/cameras/{id}", s.updateCamera)
	mux.HandleFunc("DELETE /api/cameras/{id}", s.deleteCamera)

	mux.HandleFunc("GET /api/zones/{id}", s.getZone)
	mux.HandleFunc("PUT /api/zones/{id}", s.updateZone)
	mux.HandleFunc("DELETE /api/zones/{id}", s.deleteZone)
	mux.HandleFunc("GET /api/zones/{id}/schedules", s.listSchedules)
	mux.HandleFunc("POST /api/zones/{id}/schedules", s.createSchedule)
	mux.HandleFunc("PUT /api/schedules/{id}", s.updateSchedule)
	mux.HandleFunc("DELETE /api/schedules/{id}", s.deleteSchedule)

	mux.HandleFunc("GET /api/tracks", s.listActiveTracks)
	mux.HandleFunc("GET /api/tracks/{id}/history", s.trackHistory)
	mux.HandleFunc("GET /api/tracks/{id}/stats", s.trackStats)
	mux.HandleFunc("GET /api/events", s.listEvents)

	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("api: write response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// pathID parses the named path segment as an integer id.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
