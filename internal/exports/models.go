package exports

import (
	"time"

	"github.com/google/uuid"
)

// Export is a rendered copy of a user's active plan.
type Export struct {
	ID        uuid.UUID
	UserID    string
	PlanID    string
	Format    string // "pdf" or "csv"
	ObjectKey *string
	SizeBytes int64
	CreatedAt time.Time
	Data      []byte // Only used in memory mode
}

// CreateExportRequest is the request to render the active plan
type CreateExportRequest struct {
	Format string `json:"format"` // "pdf" or "csv"
}

// ExportDTO is the response representation of an export
type ExportDTO struct {
	ID          uuid.UUID `json:"id"`
	PlanID      string    `json:"plan_id"`
	Format      string    `json:"format"`
	DownloadURL string    `json:"download_url"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExportsResponse is the list response
type ExportsResponse struct {
	Exports []ExportDTO `json:"exports"`
}

const (
	FormatPDF = "pdf"
	FormatCSV = "csv"
)

func contentTypeFor(format string) string {
	if format == FormatCSV {
		return "text/csv"
	}
	return "application/pdf"
}
