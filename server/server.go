// Package server exposes the planner over HTTP for a map loaded at startup.
package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"goji.io"
	"goji.io/pat"

	"motion-planner/occupancy"
	"motion-planner/overlay"
	"motion-planner/planner"
	"motion-planner/raster"
)

// maxMapBytes bounds the size of an uploaded map.
const maxMapBytes = 64 << 20

// RouteRequest asks for a path between two pixels of the loaded map.
type RouteRequest struct {
	Start          planner.State `json:"start"`
	End            planner.State `json:"end"`
	Seed           *int64        `json:"seed,omitempty"`
	TimeoutSeconds float64       `json:"timeoutSeconds,omitempty"`
}

// RouteResponse carries the planned path.
type RouteResponse struct {
	Path         []planner.State `json:"path"`
	Success      bool            `json:"success"`
	Status       string          `json:"status,omitempty"`
	Message      string          `json:"message,omitempty"`
	LengthPixels float64         `json:"lengthPixels,omitempty"`
	Iterations   int             `json:"iterations,omitempty"`
}

// workspace is one loaded map. It is replaced as a whole, never modified.
type workspace struct {
	pix    []byte
	width  int
	height int
	field  *occupancy.Field
}

// Server answers route requests on the current map.
type Server struct {
	opts   planner.Options
	render overlay.Options
	logger golog.Logger

	mu sync.RWMutex
	ws *workspace
}

// New creates a server planning with opts and drawing with render. A map must be set with SetMap
// or uploaded before routes can be answered.
func New(opts planner.Options, render overlay.Options, logger golog.Logger) (*Server, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = golog.Global()
	}
	return &Server{opts: opts, render: render, logger: logger}, nil
}

// SetMap replaces the map routes are planned on. pix is owned by the server afterwards.
func (s *Server) SetMap(pix []byte, width, height int) error {
	field, err := occupancy.New(pix, width, height, uint8(s.opts.FreeThreshold))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ws = &workspace{pix: pix, width: width, height: height, field: field}
	s.mu.Unlock()
	return nil
}

func (s *Server) current() *workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ws
}

// Handler returns the HTTP handler with CORS enabled for all origins.
//
//	POST /route    - plan a path between two pixels
//	GET  /overlay  - PNG of the map with the path drawn (?sx=&sy=&gx=&gy=)
//	POST /map      - replace the map with the uploaded image
//	GET  /health   - server status
func (s *Server) Handler() http.Handler {
	mux := goji.NewMux()
	mux.HandleFunc(pat.Post("/route"), s.routeHandler)
	mux.HandleFunc(pat.Get("/overlay"), s.overlayHandler)
	mux.HandleFunc(pat.Post("/map"), s.mapHandler)
	mux.HandleFunc(pat.Get("/health"), s.healthHandler)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}

func (s *Server) plan(r *http.Request, req *RouteRequest) (*workspace, *planner.Result, error) {
	ws := s.current()
	if ws == nil {
		return nil, nil, errNoMap
	}
	opts := s.opts
	if req.Seed != nil {
		opts.Seed(*req.Seed)
	}
	if req.TimeoutSeconds > 0 {
		opts.TimeBudget = req.TimeoutSeconds
	}
	result, err := planner.Plan(r.Context(), ws.field, req.Start, req.End, &opts, s.logger)
	return ws, result, err
}

var errNoMap = errors.New("no map loaded, POST an image to /map first")

func (s *Server) routeHandler(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Debugw("invalid route request body", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	s.logger.Infow("route request", "start", req.Start, "end", req.End)

	_, result, err := s.plan(r, &req)
	if err != nil {
		s.writePlanError(w, err)
		return
	}

	response := RouteResponse{
		Path:       result.Path,
		Success:    result.Solved(),
		Status:     result.Status.String(),
		Iterations: result.Iterations,
	}
	if result.Solved() {
		response.LengthPixels = result.Length()
		s.logger.Infow("path found", "waypoints", len(result.Path), "length", response.LengthPixels, "iterations", result.Iterations)
	} else {
		response.Path = []planner.State{}
		response.Message = "No path found within the planning budget"
		s.logger.Infow("no path found", "status", result.Status, "iterations", result.Iterations)
	}
	writeJSON(w, http.StatusOK, response)
}

// writePlanError maps planning errors to responses. Blocked endpoints are an answer, not a failure.
func (s *Server) writePlanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNoMap):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case planner.IsInputError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, planner.ErrInfeasibleStart), errors.Is(err, planner.ErrInfeasibleGoal):
		s.logger.Infow("blocked endpoint", "error", err)
		writeJSON(w, http.StatusOK, RouteResponse{Path: []planner.State{}, Message: err.Error()})
	default:
		s.logger.Errorw("planning failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) overlayHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var coords [4]float64
	for i, key := range []string{"sx", "sy", "gx", "gy"} {
		v, err := strconv.ParseFloat(q.Get(key), 64)
		if err != nil {
			http.Error(w, "query parameter "+key+" must be a number", http.StatusBadRequest)
			return
		}
		coords[i] = v
	}
	req := RouteRequest{
		Start: planner.State{X: coords[0], Y: coords[1]},
		End:   planner.State{X: coords[2], Y: coords[3]},
	}
	if seed := q.Get("seed"); seed != "" {
		v, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			http.Error(w, "query parameter seed must be an integer", http.StatusBadRequest)
			return
		}
		req.Seed = &v
	}

	ws, result, err := s.plan(r, &req)
	if err != nil {
		s.writePlanError(w, err)
		return
	}
	if !result.Solved() {
		http.Error(w, "no path found: "+result.Status.String(), http.StatusNotFound)
		return
	}

	img, err := raster.ToImage(ws.pix, ws.width, ws.height)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := overlay.RenderImage(result.Path, img, s.render); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := raster.EncodeTo(&buf, img); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	//nolint:errcheck
	w.Write(buf.Bytes())
}

func (s *Server) mapHandler(w http.ResponseWriter, r *http.Request) {
	pix, width, height, err := raster.DecodeReader("upload", http.MaxBytesReader(w, r.Body, maxMapBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.SetMap(pix, width, height); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Infow("map replaced", "width", width, "height", height)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"width":   width,
		"height":  height,
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ws := s.current()
	status := "ready"
	body := map[string]interface{}{"hasMap": ws != nil}
	if ws == nil {
		status = "waiting for map"
	} else {
		body["width"] = ws.width
		body["height"] = ws.height
		body["freePixels"] = ws.field.FreeCount()
	}
	body["status"] = status
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	//nolint:errcheck
	json.NewEncoder(w).Encode(v)
}
