package models

import "io"

// OpenFunc lazily opens the raw bytes of a staged file at upload time
type OpenFunc func() (io.ReadCloser, error)

// PendingFile is a file selected for upload but not yet confirmed by the
// backend. Identity is LocalID; duplicate names are allowed.
type PendingFile struct {
	LocalID   string
	Name      string
	SizeBytes int64
	Open      OpenFunc
}

// StoredDocument mirrors one entry of the backend document listing. The
// backend is the only authority for these; the client never fabricates one.
type StoredDocument struct {
	Filename  string
	SizeBytes int64
	Extension string
}
