package dto

import (
	"encoding/json"

	"github.com/noah-isme/special-ed-api/internal/models"
)

// RecordChangeRequest is one entry of a dashboard save batch.
type RecordChangeRequest struct {
	Kind   models.ChangeKind `json:"kind" binding:"required"`
	Record json.RawMessage   `json:"record" binding:"required"`
}

// UploadResponse reports the outcome of a spreadsheet upload.
type UploadResponse struct {
	Message        string   `json:"message"`
	Entity         string   `json:"entity"`
	Table          string   `json:"table"`
	RowsRead       int      `json:"rows_read"`
	RowsStaged     int      `json:"rows_staged"`
	RowsSkipped    int      `json:"rows_skipped"`
	RowsAffected   int64    `json:"rows_affected"`
	InvalidDates   int      `json:"invalid_dates"`
	DroppedColumns []string `json:"dropped_columns"`
}

// ReadinessResponse describes dependency health.
type ReadinessResponse struct {
	Status     string            `json:"status"`
	BackendURL string            `json:"backend_url"`
	Checks     map[string]string `json:"checks"`
}
