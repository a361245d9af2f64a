package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Document is an ingested file and everything the pipeline learned about it.
type Document struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	BlobPath         string         `db:"blob_path" json:"blob_path"`
	Filename         string         `db:"filename" json:"filename"`
	MimeType         string         `db:"mime_type" json:"mime_type"`
	SizeBytes        int64          `db:"size_bytes" json:"size_bytes"`
	DocumentType     DocumentType   `db:"document_type" json:"document_type"`
	Status           DocumentStatus `db:"status" json:"status"`
	ExtractedData    Fields         `db:"extracted_data" json:"extracted_data"`
	RawExtraction    Fields         `db:"raw_extraction" json:"raw_extraction,omitempty"`
	Confidence       *float64       `db:"confidence" json:"confidence"`
	FieldConfidences Confidences    `db:"field_confidences" json:"field_confidences"`
	RequiresReview   bool           `db:"requires_review" json:"requires_review"`
	Extractor        *ExtractorTag  `db:"extractor" json:"extractor"`
	ProcessingMillis *int64         `db:"processing_ms" json:"processing_ms"`
	ProcessingError  *string        `db:"processing_error" json:"processing_error"`
	ForceSemantic    bool           `db:"force_semantic" json:"force_semantic"`
	UploadedBy       string         `db:"uploaded_by" json:"uploaded_by"`
	ReviewedBy       *string        `db:"reviewed_by" json:"reviewed_by"`
	ReviewedAt       *time.Time     `db:"reviewed_at" json:"reviewed_at"`
	ProcessedAt      *time.Time     `db:"processed_at" json:"processed_at"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// NewDocument returns a PENDING document for a freshly ingested blob.
func NewDocument(blobPath, filename, mimeType string, size int64, uploadedBy string) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:           uuid.New(),
		BlobPath:     blobPath,
		Filename:     filename,
		MimeType:     mimeType,
		SizeBytes:    size,
		DocumentType: TypeUnknown,
		Status:       StatusPending,
		UploadedBy:   uploadedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Exception is a persisted problem that needs human attention.
type Exception struct {
	ID            uuid.UUID         `db:"id" json:"id"`
	DocumentID    uuid.UUID         `db:"document_id" json:"document_id"`
	Category      ExceptionCategory `db:"category" json:"category"`
	Reason        string            `db:"reason" json:"reason"`
	FieldName     *string           `db:"field_name" json:"field_name"`
	ExpectedValue *string           `db:"expected_value" json:"expected_value"`
	ActualValue   *string           `db:"actual_value" json:"actual_value"`
	Priority      Priority          `db:"priority" json:"priority"`
	Status        ExceptionStatus   `db:"status" json:"status"`
	Resolution    json.RawMessage   `db:"resolution" json:"resolution,omitempty"`
	ResolvedBy    *string           `db:"resolved_by" json:"resolved_by"`
	ResolvedAt    *time.Time        `db:"resolved_at" json:"resolved_at"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
}

// AuditLogEntry is an append-only record of something that happened to a document.
type AuditLogEntry struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	DocumentID *uuid.UUID      `db:"document_id" json:"document_id"`
	Action     AuditAction     `db:"action" json:"action"`
	Actor      string          `db:"actor" json:"actor"`
	Details    json.RawMessage `db:"details" json:"details"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// NewSystemAudit builds a pipeline-authored audit entry. Details that fail to
// marshal are recorded as an empty object.
func NewSystemAudit(docID uuid.UUID, action AuditAction, details map[string]interface{}) AuditLogEntry {
	raw, err := json.Marshal(details)
	if err != nil || details == nil {
		raw = json.RawMessage("{}")
	}
	id := docID
	return AuditLogEntry{
		ID:         uuid.New(),
		DocumentID: &id,
		Action:     action,
		Actor:      ActorSystem,
		Details:    raw,
		CreatedAt:  time.Now().UTC(),
	}
}
