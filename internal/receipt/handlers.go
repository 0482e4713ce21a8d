package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON encodes body as the JSON response
func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes {"error": message} with the given status
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// writeVerdict answers the chat workflow: the accepted amount, or false
func writeVerdict(w http.ResponseWriter, v *Validation) {
	if v == nil {
		writeJSON(w, http.StatusOK, false)
		return
	}
	outcome := v.Outcome()
	if !outcome.Accepted || outcome.Amount == nil {
		writeJSON(w, http.StatusOK, false)
		return
	}
	writeJSON(w, http.StatusOK, *outcome.Amount)
}

// uploadError is a request problem worth reporting to the client
type uploadError struct {
	message string
	err     error
}

func (e *uploadError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

func (e *uploadError) Unwrap() error {
	return e.err
}

// readUpload reads the multipart "file" field of a request
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &uploadError{message: fmt.Sprintf("File is too large. Maximum size is %dMB.", s.maxUploadSize>>20), err: err}
		}
		return nil, &uploadError{message: "Error parsing form", err: err}
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		return nil, &uploadError{message: "No file was selected. Please choose a file to upload.", err: err}
	}
	defer f.Close()

	if header.Filename == "" {
		return nil, &uploadError{message: "The uploaded file has no name."}
	}
	if header.Size > s.maxUploadSize {
		return nil, &uploadError{message: fmt.Sprintf("File is too large. Maximum size is %dMB.", s.maxUploadSize>>20)}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading file data: %w", err)
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" {
		contentType = contentTypeFor(header.Filename)
	}

	return &Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Source:      "upload",
		Data:        data,
	}, nil
}

// contentTypeFor guesses a MIME type from the file extension
func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".heic":
		return "image/heic"
	default:
		return "application/octet-stream"
	}
}

// handleHealth reports that the process is serving
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "API funcionando"})
}

// statusResponse is the body of GET /
type statusResponse struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	AcceptedAmounts []int  `json:"accepted_amounts"`
	Today           string `json:"today"`
}

// handleStatus describes the running validator
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:          "online",
		Message:         "Payment receipt validation API",
		AcceptedAmounts: s.service.AcceptedAmounts().Values(),
		Today:           s.service.ReferenceDate().String(),
	})
}

// handleValidate validates an uploaded receipt for the chat workflow.
// Every failure is answered with false and status 200.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	upload, err := s.readUpload(w, r)
	if err != nil {
		slog.Warn("Rejecting unreadable upload", "error", err)
		writeVerdict(w, nil)
		return
	}

	writeVerdict(w, s.service.Validate(r.Context(), *upload))
}

// validateURLRequest is the body of POST /validar-url
type validateURLRequest struct {
	URL string `json:"url"`
}

// handleValidateURL downloads a receipt and validates it for the chat workflow
func (s *Server) handleValidateURL(w http.ResponseWriter, r *http.Request) {
	var req validateURLRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		slog.Warn("Rejecting invalid url request", "error", err)
		writeVerdict(w, nil)
		return
	}

	v, err := s.service.ValidateURL(r.Context(), req.URL)
	if err != nil {
		slog.Warn("Rejecting receipt url", "url", req.URL, "error", err)
		writeVerdict(w, nil)
		return
	}

	writeVerdict(w, v)
}

// handleCreateValidation validates an uploaded receipt and returns the full record
func (s *Server) handleCreateValidation(w http.ResponseWriter, r *http.Request) {
	upload, err := s.readUpload(w, r)
	if err != nil {
		slog.Error("Error reading upload", "error", err)
		var uErr *uploadError
		if errors.As(err, &uErr) {
			jsonError(w, uErr.message, http.StatusBadRequest)
			return
		}
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, s.service.Validate(r.Context(), *upload))
}

// handleListValidations returns the validation history
func (s *Server) handleListValidations(w http.ResponseWriter, r *http.Request) {
	validations, err := s.service.ListValidations()
	if err != nil {
		slog.Error("Error listing validations", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, validations)
}

// handleGetValidation returns a single validation record
func (s *Server) handleGetValidation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	v, err := s.service.GetValidation(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			corsError(w, "Validation not found", http.StatusNotFound)
			return
		}
		slog.Error("Error getting validation", "id", id, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// handleGetValidationFile serves the archived upload of a validation as a download
func (s *Server) handleGetValidationFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	file, err := s.service.GetValidationFile(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			corsError(w, "File not found", http.StatusNotFound)
			return
		}
		slog.Error("Error getting validation file", "id", id, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": file.Name})
	if disposition == "" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		slog.Error("Error writing file", "id", id, "error", err)
	}
}
