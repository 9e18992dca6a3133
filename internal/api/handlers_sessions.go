package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docfill/internal/parser"
	"github.com/dgallion1/docfill/internal/pipeline"
	"github.com/dgallion1/docfill/internal/placeholder"
	"github.com/go-chi/chi/v5"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// maxJSONBody bounds chat, generate and preview request bodies.
const maxJSONBody = 4 << 20

type chatRequest struct {
	Message             string             `json:"message"`
	ConversationHistory []placeholder.Turn `json:"conversation_history"`
}

type historyRequest struct {
	ConversationHistory []placeholder.Turn `json:"conversation_history"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	res, err := s.orchestrator.Upload(filename, data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.orchestrator.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.orchestrator.Delete(chi.URLParam(r, "sessionID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	history := withMessage(req.ConversationHistory, req.Message)

	res, err := s.orchestrator.Chat(r.Context(), chi.URLParam(r, "sessionID"), history)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req historyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.orchestrator.Generate(chi.URLParam(r, "sessionID"), req.ConversationHistory)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=completed_document.docx")
	w.Header().Set("X-Filled-Count", fmt.Sprint(out.FilledCount))
	w.Header().Set("X-Total-Count", fmt.Sprint(out.TotalCount))
	w.WriteHeader(http.StatusOK)
	w.Write(out.Data)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req historyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	pv, err := s.orchestrator.Preview(chi.URLParam(r, "sessionID"), req.ConversationHistory)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pv)
}

func (s *Server) handlePreviewHTML(w http.ResponseWriter, r *http.Request) {
	var req historyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	pv, err := s.orchestrator.PreviewHTML(chi.URLParam(r, "sessionID"), req.ConversationHistory)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pv)
}

// withMessage appends message as the newest user turn unless the client
// already sent it as the tail of history.
func withMessage(history []placeholder.Turn, message string) []placeholder.Turn {
	if message == "" {
		return history
	}
	if n := len(history); n > 0 && history[n-1].Role == placeholder.RoleUser && history[n-1].Message == message {
		return history
	}
	return append(history, placeholder.Turn{Role: placeholder.RoleUser, Message: message})
}

// decodeBody reads an optional JSON body. An empty body leaves v zeroed.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
	return false
}

// writeError maps orchestrator errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		formatErr *parser.InputFormatError
		sizeErr   *pipeline.FileTooLargeError
	)
	switch {
	case errors.Is(err, pipeline.ErrSessionNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, pipeline.ErrNoDocument), errors.Is(err, pipeline.ErrUnsupportedFile):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &formatErr):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &sizeErr):
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
	default:
		s.log.Error("request failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
