package receipt

import (
	"time"

	"github.com/zombor/receipt-check/internal/validation"
)

// Upload is a receipt file as handed to the service, from a form or a URL.
type Upload struct {
	Filename    string
	ContentType string
	Source      string // "upload" or the URL the file was fetched from
	Data        []byte
}

// Validation records one receipt check and its verdict
type Validation struct {
	ID            string            `json:"id"`
	Filename      string            `json:"filename"`
	ContentType   string            `json:"content_type"`
	Source        string            `json:"source"`
	Size          int               `json:"size"`
	Accepted      bool              `json:"accepted"`
	Amount        *int              `json:"amount,omitempty"` // Whole currency units
	Reason        validation.Reason `json:"reason"`
	ReferenceDate validation.Date   `json:"reference_date"`
	ArchivePath   string            `json:"archive_path,omitempty"` // Path of the stored upload, if archived
	CreatedAt     time.Time         `json:"created_at"`
}

// Outcome returns the verdict part of the record.
func (v *Validation) Outcome() validation.Outcome {
	return validation.Outcome{
		Accepted: v.Accepted,
		Amount:   v.Amount,
		Reason:   v.Reason,
	}
}
