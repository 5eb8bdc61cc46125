package models

import "time"

// SheetSummary holds the parsed shape of the two required workbook sheets.
// Headers come from the sheet's header row; counts are data rows only.
type SheetSummary struct {
	LotsHeaders    []string `json:"lotsHeaders"`
	PatentsHeaders []string `json:"patentsHeaders"`
	LotsCount      int      `json:"lotsCount"`
	PatentsCount   int      `json:"patentsCount"`
}

// RunDraft is an in-progress run held between the creation and review steps.
// It is consumed (deleted) the moment submission begins and never persisted.
type RunDraft struct {
	RunID        string       `json:"runID"`
	RunName      string       `json:"runName"`
	Client       string       `json:"client,omitempty"`
	Description  string       `json:"description,omitempty"`
	FileName     string       `json:"fileName"`
	FileSize     int64        `json:"fileSize"`
	FileType     string       `json:"fileType"`
	FileAsBase64 string       `json:"fileAsBase64"`
	ExcelData    SheetSummary `json:"excelData"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// RunRecord is the persisted result of a submitted run.
type RunRecord struct {
	RunID          string    `json:"runId"`
	Location       string    `json:"location"`
	JobInstanceID  string    `json:"jobInstanceId"`
	JobWorkspaceID string    `json:"jobWorkspaceId"`
	Parameters     string    `json:"parameters"`
	CreatedAt      time.Time `json:"createdAt"`
}

// CreateDraftRequest is the payload for POST /api/runs/drafts.
type CreateDraftRequest struct {
	RunName      string `json:"runName"`
	Client       string `json:"client,omitempty"`
	Description  string `json:"description,omitempty"`
	FileName     string `json:"fileName"`
	FileType     string `json:"fileType"`
	FileAsBase64 string `json:"fileAsBase64"`
}

// UploadFileRequest is the payload for POST /api/blob/upload-file.
type UploadFileRequest struct {
	FileAsBase64 string `json:"fileAsBase64"`
	FileName     string `json:"fileName"`
	FileType     string `json:"fileType"`
	RunID        string `json:"runID"`
}

// UploadFileResponse mirrors the blob endpoint's success body.
type UploadFileResponse struct {
	Message  string `json:"message"`
	BlobName string `json:"blobName"`
	URL      string `json:"url"`
	ETag     string `json:"etag"`
}

// ConfirmRunResponse is returned once upload and job submission succeed.
type ConfirmRunResponse struct {
	RunID          string `json:"runID"`
	BlobName       string `json:"blobName"`
	JobInstanceID  string `json:"jobInstanceId"`
	JobWorkspaceID string `json:"jobWorkspaceId"`
	Redirect       string `json:"redirect"`
}
