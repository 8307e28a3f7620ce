package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/martinemde/lexdraft/drafting"
	"github.com/martinemde/lexdraft/unifiedllm"
)

// DocumentResponse is the body of a successful POST /v1/documents.
type DocumentResponse struct {
	Document string `json:"document"`
}

// StreamLine is one NDJSON line of POST /v1/documents/stream. A line carries
// either a chunk, a restart notice or an error.
type StreamLine struct {
	*unifiedllm.StreamChunk
	Restart *unifiedllm.Endpoint `json:"restart,omitempty"`
	Error   string               `json:"error,omitempty"`
	Kind    string               `json:"kind,omitempty"`
}

func decodeDraftRequest(w http.ResponseWriter, r *http.Request) (drafting.DraftRequest, error) {
	var req drafting.DraftRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, errors.New("request body is empty")
		}
		return req, errors.New("invalid request body: " + err.Error())
	}
	return req, nil
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDraftRequest(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if safe, _ := strconv.ParseBool(r.URL.Query().Get("safe")); safe {
		s.writeJSON(w, http.StatusOK, DocumentResponse{Document: s.drafter.GenerateDocumentSafe(r.Context(), req)})
		return
	}

	text, err := s.drafter.GenerateDocument(r.Context(), req)
	if err != nil {
		s.writeJSON(w, statusFor(err), newErrorBody(err))
		return
	}
	s.writeJSON(w, http.StatusOK, DocumentResponse{Document: text})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDraftRequest(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	started := false
	write := func(line StreamLine) {
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := enc.Encode(line); err != nil {
			s.logger.Debug("stream write failed", "error", err)
			return
		}
		_ = rc.Flush()
	}

	_, err = s.drafter.StreamDocument(r.Context(), req,
		func(delta string, done bool) {
			write(StreamLine{StreamChunk: &unifiedllm.StreamChunk{Text: delta, Done: done}})
		},
		drafting.OnRestart(func(next unifiedllm.Endpoint) {
			write(StreamLine{Restart: &next})
		}),
	)
	if err == nil {
		return
	}
	body := newErrorBody(err)
	if !started {
		s.writeJSON(w, statusFor(err), body)
		return
	}
	write(StreamLine{Error: body.Error, Kind: body.Kind})
}

func (s *Server) handleDocumentTypes(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, drafting.DocumentTypes)
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.drafter.Models())
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "ok"}
	status := http.StatusOK
	for _, name := range names {
		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(names))
		}
		if err := s.checks[name](ctx); err != nil {
			s.logger.Warn("health check failed", "check", name, "error", err)
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	s.writeJSON(w, status, resp)
}
