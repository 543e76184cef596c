package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	ActionFileStore     = "file.store"
	ActionFileDeleteAll = "file.delete_all"
)

// UploadEvent is one row of the upload ledger.
type UploadEvent struct {
	ID             uuid.UUID `json:"id"`
	Action         string    `json:"action"` // file.store, file.delete_all
	Filename       string    `json:"filename,omitempty"`
	Size           int64     `json:"size,omitempty"`
	ChecksumSHA256 string    `json:"checksum_sha256,omitempty"`
	RemoteAddr     string    `json:"remote_addr,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type EventFilter struct {
	Action    *string
	Filename  *string
	Page      int
	PerPage   int
	SortOrder string
}

type EventRepository interface {
	Create(ctx context.Context, event *UploadEvent) error
	List(ctx context.Context, filter EventFilter) ([]*UploadEvent, int, error)
}
