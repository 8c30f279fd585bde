package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// UploadedDocument records a document attached to a step submission. Only
// metadata is kept; the bytes live behind the storage url.
type UploadedDocument struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StorageURL string    `json:"storage_url"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// HistoryEvent is one immutable entry of a request's audit trail. The
// engine only ever appends; past events are never edited or removed.
type HistoryEvent struct {
	ID            int64     `json:"id"`
	RequestID     int64     `json:"request_id"`
	StepID        string    `json:"step_id"`
	StepName      string    `json:"step_name"`
	ActorUserID   string    `json:"actor_user_id"`
	ActorName     string    `json:"actor_name"`
	Action        string    `json:"action"`
	Comment       string    `json:"comment,omitempty"`
	FormSnapshot  string    `json:"form_snapshot,omitempty"`
	DocumentsJSON string    `json:"-"`
	Timestamp     time.Time `json:"timestamp"`
}

// Documents decodes the attached document list, empty when none were
// uploaded with the event.
func (e *HistoryEvent) Documents() ([]UploadedDocument, error) {
	if e.DocumentsJSON == "" {
		return nil, nil
	}
	var docs []UploadedDocument
	if err := json.Unmarshal([]byte(e.DocumentsJSON), &docs); err != nil {
		return nil, fmt.Errorf("decode event documents: %w", err)
	}
	return docs, nil
}

// SetDocuments encodes the document list for storage.
func (e *HistoryEvent) SetDocuments(docs []UploadedDocument) error {
	if len(docs) == 0 {
		e.DocumentsJSON = ""
		return nil
	}
	encoded, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode event documents: %w", err)
	}
	e.DocumentsJSON = string(encoded)
	return nil
}
