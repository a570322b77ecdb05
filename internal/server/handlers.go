package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"docqa/internal/domain"
)

type askRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type resetRequest struct {
	SessionID string `json:"session_id"`
}

type askResponse struct {
	Answer  string            `json:"answer"`
	Sources []domain.Citation `json:"sources"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		if errors.Is(err, http.ErrNotMultipart) {
			writeError(w, http.StatusBadRequest, "No files uploaded")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid upload: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	var docs []domain.Document
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to process PDFs: %v", err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to process PDFs: %v", err))
			return
		}
		docs = append(docs, domain.Document{Source: fh.Filename, Data: data})
	}

	res, err := s.svc.Upload(r.Context(), docs)
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "No files uploaded")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to process PDFs: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": res.SessionID,
		"message":    "PDFs indexed successfully.",
		"documents":  res.Documents,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Question must not be empty.")
		return
	}

	answer, err := s.svc.Ask(r.Context(), req.SessionID, req.Question)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusBadRequest, "Invalid session_id. Upload PDFs first.")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("LLM error: %v", err))
		return
	}
	sources := answer.Citations
	if sources == nil {
		sources = []domain.Citation{}
	}
	writeJSON(w, http.StatusOK, askResponse{Answer: answer.Text, Sources: sources})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := s.svc.Reset(r.Context(), req.SessionID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session_id")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "History cleared."})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	history, err := s.svc.History(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Invalid session_id")
		return
	}
	if history == nil {
		history = []domain.Turn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "history": history})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
