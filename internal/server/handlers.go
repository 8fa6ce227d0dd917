package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/roach88/causalrt/internal/engine"
	"github.com/roach88/causalrt/internal/plugin"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// QueryRequest is the body of /query and /compile.
type QueryRequest = engine.Request

// EstimateRequest is the body of /estimate.
type EstimateRequest = engine.EstimateRequest

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

type PluginsResponse struct {
	Plugins []plugin.Info `json:"plugins"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{OK: true})
}

func (s *Server) Plugins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PluginsResponse{Plugins: s.engine.Plugins().List()})
}

func (s *Server) Compile(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Query == "" {
		writeBadRequest(w, errors.New("query is required"))
		return
	}
	c, err := s.engine.Compile(req.Query, req.Backend)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Query == "" {
		writeBadRequest(w, errors.New("query is required"))
		return
	}
	res, err := s.engine.Run(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) Estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if !s.decode(w, r, &req) {
		return
	}
	switch {
	case req.Query == "":
		writeBadRequest(w, errors.New("query is required"))
		return
	case req.Plugin == "":
		writeBadRequest(w, errors.New("plugin is required"))
		return
	}
	res, err := s.engine.Estimate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decode reads a JSON body into v, answering 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeBadRequest(w, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// StatusFor maps an engine error onto an HTTP status.
func StatusFor(err error) int {
	switch engine.Classify(err) {
	case engine.KindNone:
		return http.StatusOK
	case engine.KindParse:
		return http.StatusBadRequest
	case engine.KindPlan, engine.KindCompile:
		return http.StatusUnprocessableEntity
	case engine.KindExecution:
		return http.StatusBadGateway
	case engine.KindTimeout:
		return http.StatusGatewayTimeout
	case engine.KindPlugin:
		if errors.Is(err, plugin.ErrUnknown) {
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	kind := engine.Classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "kind", kind, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind.String()})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "BadRequest"})
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
