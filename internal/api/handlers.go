package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"

	"github.com/astlabs/run-portal/internal/auth"
	"github.com/astlabs/run-portal/internal/blob"
	"github.com/astlabs/run-portal/internal/draft"
	"github.com/astlabs/run-portal/internal/fabric"
	"github.com/astlabs/run-portal/internal/runs"
	"github.com/astlabs/run-portal/pkg/models"
)

// JobRunner submits a notebook job and returns the parsed result.
type JobRunner interface {
	RunNotebook(ctx context.Context, params map[string]any) (fabric.SubmitResult, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	gate      *auth.Gate
	uploader  blob.Uploader
	jobs      JobRunner
	records   runs.Store
	drafts    *draft.Store
	staticDir string
}

// NewHandler creates a new HTTP handler
func NewHandler(gate *auth.Gate, uploader blob.Uploader, jobs JobRunner, records runs.Store, drafts *draft.Store, staticDir string) *Handler {
	return &Handler{
		gate:      gate,
		uploader:  uploader,
		jobs:      jobs,
		records:   records,
		drafts:    drafts,
		staticDir: staticDir,
	}
}

// Login handles POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password is required")
		return
	}

	token, err := h.gate.Authenticate(req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	h.gate.SetCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Authentication successful",
	})
}

// Logout handles POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.gate.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// UploadFile handles POST /api/blob/upload-file
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	var req models.UploadFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.FileAsBase64 == "" || req.FileName == "" || req.FileType == "" || req.RunID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid request body",
			"details": "Missing or invalid required fields: fileAsBase64, fileName, fileType, runID",
		})
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.FileAsBase64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid request body",
			"details": "fileAsBase64 is not valid base64",
		})
		return
	}

	handle, err := h.uploader.Upload(r.Context(), req.RunID, req.FileName, req.FileType, data)
	if err != nil {
		log.Printf("upload failed for run %s: %v", req.RunID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to upload file",
			"details": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, models.UploadFileResponse{
		Message:  "File uploaded successfully",
		BlobName: handle.BlobName,
		URL:      handle.URL,
		ETag:     handle.ETag,
	})
}

// RunNotebook handles POST /api/fabric/run-notebook
func (h *Handler) RunNotebook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Params map[string]any `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.jobs.RunNotebook(r.Context(), req.Params)
	if err != nil {
		log.Printf("notebook run failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to execute notebook")
		return
	}

	if err := h.insertRecord(r.Context(), req.Params, result); err != nil {
		log.Printf("record run failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to record run")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(result.RawBody)
}

func (h *Handler) insertRecord(ctx context.Context, params map[string]any, result fabric.SubmitResult) error {
	runID, _ := params["runID"].(string)
	encoded, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return h.records.Insert(ctx, models.RunRecord{
		RunID:          runID,
		Location:       result.Location,
		JobInstanceID:  result.JobInstanceID,
		JobWorkspaceID: result.JobWorkspaceID,
		Parameters:     string(encoded),
	})
}

// ListRuns handles GET /api/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	records, err := h.records.List(r.Context())
	if err != nil {
		log.Printf("list runs failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if records == nil {
		records = []models.RunRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
