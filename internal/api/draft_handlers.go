package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/astlabs/run-portal/internal/spreadsheet"
	"github.com/astlabs/run-portal/pkg/models"
)

// CreateDraft handles POST /api/runs/drafts. It validates the workbook and
// stores the draft for the review step.
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RunName == "" || req.FileName == "" || req.FileType == "" || req.FileAsBase64 == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: runName, fileName, fileType, fileAsBase64")
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.FileAsBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "fileAsBase64 is not valid base64")
		return
	}

	summary, err := spreadsheet.Parse(data, spreadsheet.RequiredSheets)
	if err != nil {
		var missing *spreadsheet.MissingSheetError
		if errors.As(err, &missing) {
			writeError(w, http.StatusBadRequest, missing.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "Could not read the uploaded file as a spreadsheet")
		return
	}

	d := models.RunDraft{
		RunID:        uuid.New().String(),
		RunName:      req.RunName,
		Client:       req.Client,
		Description:  req.Description,
		FileName:     req.FileName,
		FileSize:     int64(len(data)),
		FileType:     req.FileType,
		FileAsBase64: req.FileAsBase64,
		ExcelData:    summary,
		CreatedAt:    time.Now(),
	}
	h.drafts.Put(d)

	writeJSON(w, http.StatusCreated, d)
}

// GetDraft handles GET /api/runs/drafts/{id} for the review page.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	d, err := h.drafts.Peek(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "No run data found. Please start over.")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ConfirmDraft handles POST /api/runs/drafts/{id}/confirm. The draft is
// consumed before any network call starts, then the file is uploaded and
// the notebook job submitted, strictly in that order.
func (h *Handler) ConfirmDraft(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	d, err := h.drafts.Claim(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "No run data found. Please start over.")
		return
	}

	data, err := base64.StdEncoding.DecodeString(d.FileAsBase64)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Stored draft is corrupted")
		return
	}

	handle, err := h.uploader.Upload(r.Context(), d.RunID, d.FileName, d.FileType, data)
	if err != nil {
		log.Printf("upload failed for run %s: %v", d.RunID, err)
		writeError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	params := map[string]any{
		"runID":          d.RunID,
		"runName":        d.RunName,
		"runDescription": d.Description,
		"runClient":      d.Client,
		"runFileSize":    d.FileSize,
		"runFileType":    d.FileType,
		"runBlobName":    handle.BlobName,
	}

	result, err := h.jobs.RunNotebook(r.Context(), params)
	if err != nil {
		log.Printf("notebook run failed for run %s: %v", d.RunID, err)
		writeError(w, http.StatusInternalServerError, "Failed to execute notebook")
		return
	}

	if err := h.insertRecord(r.Context(), params, result); err != nil {
		log.Printf("record run failed for run %s: %v", d.RunID, err)
		writeError(w, http.StatusInternalServerError, "Failed to record run")
		return
	}

	log.Printf("run %s submitted: job instance %s", d.RunID, result.JobInstanceID)

	writeJSON(w, http.StatusOK, models.ConfirmRunResponse{
		RunID:          d.RunID,
		BlobName:       handle.BlobName,
		JobInstanceID:  result.JobInstanceID,
		JobWorkspaceID: result.JobWorkspaceID,
		Redirect:       "/dashboard",
	})
}
