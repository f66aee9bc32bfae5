// File: internal/server/handlers.go
// Description: Request handlers for the autofill and generation endpoints.

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/autofill"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AutofillRequest is the panel's submission for a scanned page.
type AutofillRequest struct {
	SessionID      string                  `json:"sessionId,omitempty"`
	Fields         []schemas.DetectedField `json:"fields"`
	Profile        schemas.UserProfile     `json:"profile"`
	JobDescription string                  `json:"jobDescription,omitempty"`
	ResumeText     string                  `json:"resumeText,omitempty"`
	KnowledgeBase  string                  `json:"knowledgeBase,omitempty"`
}

// AutofillResponse carries the annotated fields plus the flat instruction
// list the content script applies to the DOM.
type AutofillResponse struct {
	SessionID    string                    `json:"sessionId"`
	Fields       []schemas.DetectedField   `json:"fields"`
	Instructions []schemas.FillInstruction `json:"instructions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAutofill(w http.ResponseWriter, r *http.Request) {
	var req AutofillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	log := s.logger.With(zap.String("session_id", req.SessionID))
	log.Info("Processing autofill request", zap.Int("field_count", len(req.Fields)))

	fields, err := s.service.Process(r.Context(), autofill.Request{
		Fields:         req.Fields,
		Profile:        req.Profile,
		JobDescription: req.JobDescription,
		ResumeText:     req.ResumeText,
		KnowledgeBase:  req.KnowledgeBase,
	})
	if err != nil {
		log.Error("Autofill processing failed", zap.Error(err))
		writeGatewayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AutofillResponse{
		SessionID:    req.SessionID,
		Fields:       fields,
		Instructions: autofill.FillInstructions(fields),
	})
}

// handleGenerate is the relay target. Panel-side relay providers forward
// their generation calls here so the credential never leaves this process.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
		Stream bool   `json:"stream,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "prompt is required"})
		return
	}

	if req.Stream {
		s.streamGenerate(w, r, req.Prompt)
		return
	}

	text, err := s.gateway.Generate(r.Context(), req.Prompt)
	if err != nil {
		s.logger.Warn("Generation failed", zap.Error(err))
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) streamGenerate(w http.ResponseWriter, r *http.Request, prompt string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	_, err := s.gateway.GenerateStream(r.Context(), prompt, func(token string) {
		fmt.Fprint(w, token)
		flusher.Flush()
	})
	if err != nil {
		// Headers are already out. Log and terminate the stream.
		s.logger.Warn("Streaming generation failed", zap.Error(err))
	}
}

// writeGatewayError maps gateway failures onto HTTP statuses so the relay
// provider on the far side can reconstruct them.
func writeGatewayError(w http.ResponseWriter, err error) {
	if errors.Is(err, schemas.ErrNotConfigured) {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	if retryAfter, ok := schemas.AsRateLimit(err); ok {
		if retryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		}
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
