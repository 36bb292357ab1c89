package domain

import (
	"path/filepath"
	"strings"
	"time"
)

type ReviewJobStatus string

const (
	JobStatusQueued     ReviewJobStatus = "queued"
	JobStatusProcessing ReviewJobStatus = "processing"
	JobStatusCompleted  ReviewJobStatus = "completed"
	JobStatusFailed     ReviewJobStatus = "failed"
)

// ReviewJob tracks an uploaded manuscript that is reviewed asynchronously by the worker.
type ReviewJob struct {
	ID          string             `json:"id"`
	Filename    string             `json:"filename"`
	MimeType    string             `json:"mime_type"`
	StoragePath string             `json:"storage_path"`
	Genre       string             `json:"genre,omitempty"`
	Status      ReviewJobStatus    `json:"status"`
	Error       string             `json:"error,omitempty"`
	Review      *SeniorAgentReview `json:"review,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type ManuscriptFormat string

const (
	FormatPlainText ManuscriptFormat = "text"
	FormatPDF       ManuscriptFormat = "pdf"
)

// DetectFormat picks the manuscript format from the MIME type, falling back
// to the file extension.
func DetectFormat(filename, mimeType string) (ManuscriptFormat, bool) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "application/pdf":
		return FormatPDF, true
	case "text/plain", "text/markdown":
		return FormatPlainText, true
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, true
	case ".txt", ".md", ".markdown", ".text":
		return FormatPlainText, true
	}
	return "", false
}
