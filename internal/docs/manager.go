// Package docs tracks candidate files through the upload and ingestion
// pipeline while keeping the client's view consistent with server truth.
package docs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"rag-console/internal/api"
	"rag-console/internal/helper"
	"rag-console/internal/models"
)

var (
	// ErrNothingStaged means CommitStaged was called with no pending files
	ErrNothingStaged = errors.New("no files staged for upload")
	// ErrCommitInProgress rejects concurrent commits
	ErrCommitInProgress = errors.New("an upload is already in progress")
	// ErrNoDocuments means Ingest was called with an empty stored set
	ErrNoDocuments = errors.New("no documents to ingest")
	// ErrIngestInProgress rejects concurrent ingestion requests
	ErrIngestInProgress = errors.New("ingestion is already in progress")
)

// Backend is the slice of the transport adapter the manager needs
type Backend interface {
	Upload(ctx context.Context, files []api.File) (*api.UploadResult, error)
	Ingest(ctx context.Context) (*api.IngestResult, error)
	Documents(ctx context.Context) (*api.DocumentListing, error)
	DeleteDocument(ctx context.Context, filename string) error
}

// Manager owns the pending file set, the authoritative stored document
// set and the ingestion readiness flag. Stored documents are only ever
// replaced wholesale from a server listing, never patched locally.
type Manager struct {
	backend Backend

	// OnServerChange, when set, runs after any operation that may have
	// changed backend state (upload, delete, ingest). The pipeline
	// mirror hangs off this hook.
	OnServerChange func(ctx context.Context)

	mu              sync.Mutex
	pending         []models.PendingFile
	stored          []models.StoredDocument
	embeddingsReady bool
	committing      bool
	ingesting       bool
}

func NewManager(backend Backend) *Manager {
	return &Manager{backend: backend}
}

// Stage appends files to the pending set. No I/O happens here; duplicates
// by name are allowed because identity is the local id.
func (m *Manager) Stage(files ...models.PendingFile) []models.PendingFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	staged := make([]models.PendingFile, 0, len(files))
	for _, f := range files {
		f.LocalID = helper.GenerateUUID()
		m.pending = append(m.pending, f)
		staged = append(staged, f)
	}
	return staged
}

// StageFromPath stages one file on disk
func (m *Manager) StageFromPath(path string) (models.PendingFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.PendingFile{}, fmt.Errorf("failed to stat %s: %v", path, err)
	}
	if info.IsDir() {
		return models.PendingFile{}, fmt.Errorf("%s is a directory", path)
	}
	staged := m.Stage(models.PendingFile{
		Name:      filepath.Base(path),
		SizeBytes: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	})
	return staged[0], nil
}

// Unstage removes one pending file by local id; absent ids are a no-op
func (m *Manager) Unstage(localID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, f := range m.pending {
		if f.LocalID == localID {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

// CommitStaged uploads every pending file in a single batch. Files the
// server accepted leave the pending set; rejected ones stay staged for
// correction. When the transport gives no response at all, nothing is
// assumed uploaded and the whole pending set survives.
func (m *Manager) CommitStaged(ctx context.Context) (*api.UploadResult, error) {
	m.mu.Lock()
	if m.committing {
		m.mu.Unlock()
		return nil, ErrCommitInProgress
	}
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return nil, ErrNothingStaged
	}
	m.committing = true
	batch := append([]models.PendingFile(nil), m.pending...)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.committing = false
		m.mu.Unlock()
	}()

	files := make([]api.File, 0, len(batch))
	closers := make([]io.Closer, 0, len(batch))
	for _, f := range batch {
		rc, err := f.Open()
		if err != nil {
			closeAll(closers)
			return nil, fmt.Errorf("failed to open %s: %v", f.Name, err)
		}
		closers = append(closers, rc)
		files = append(files, api.File{Name: f.Name, Reader: rc})
	}

	result, err := m.backend.Upload(ctx, files)
	closeAll(closers)
	if err != nil {
		return nil, err
	}

	m.clearUploaded(batch, result.Uploaded)

	if err := m.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("document refresh after upload failed")
	}
	m.notify(ctx)

	if len(result.Errors) > 0 {
		return result, &api.BatchError{Errors: result.Errors}
	}
	return result, nil
}

// clearUploaded drops one pending entry per confirmed upload, matched by
// name in staging order so duplicate names are consumed one at a time.
func (m *Manager) clearUploaded(batch []models.PendingFile, uploaded []api.UploadedFile) {
	confirmed := make(map[string]int, len(uploaded))
	for _, u := range uploaded {
		confirmed[u.Filename]++
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.pending[:0]
	for _, f := range m.pending {
		if confirmed[f.Name] > 0 && inBatch(batch, f.LocalID) {
			confirmed[f.Name]--
			continue
		}
		kept = append(kept, f)
	}
	m.pending = kept
}

func inBatch(batch []models.PendingFile, localID string) bool {
	for _, f := range batch {
		if f.LocalID == localID {
			return true
		}
	}
	return false
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		c.Close()
	}
}

// Remove deletes one stored document by filename. The local set is never
// trimmed optimistically: on any failure it is left exactly as it was.
func (m *Manager) Remove(ctx context.Context, filename string) error {
	if err := m.backend.DeleteDocument(ctx, filename); err != nil {
		return err
	}
	if err := m.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("document refresh after delete failed")
	}
	m.notify(ctx)
	return nil
}

// Refresh replaces the stored set and readiness flag wholesale from the
// server listing. No merging, so repeated refreshes cannot drift.
func (m *Manager) Refresh(ctx context.Context) error {
	listing, err := m.backend.Documents(ctx)
	if err != nil {
		return err
	}
	stored := make([]models.StoredDocument, len(listing.Documents))
	for i, d := range listing.Documents {
		stored[i] = models.StoredDocument{
			Filename:  d.Filename,
			SizeBytes: d.Size,
			Extension: d.Extension,
		}
	}
	m.mu.Lock()
	m.stored = stored
	m.embeddingsReady = listing.HasEmbeddings
	m.mu.Unlock()
	return nil
}

// Ingest asks the backend to parse and embed all stored documents. The
// call can run for a long time; no client-side deadline is imposed and
// re-entrant requests are rejected for its duration. On failure the
// server's own message travels up verbatim.
func (m *Manager) Ingest(ctx context.Context) (*api.IngestResult, error) {
	m.mu.Lock()
	if m.ingesting {
		m.mu.Unlock()
		return nil, ErrIngestInProgress
	}
	if len(m.stored) == 0 {
		m.mu.Unlock()
		return nil, ErrNoDocuments
	}
	m.ingesting = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.ingesting = false
		m.mu.Unlock()
	}()

	result, err := m.backend.Ingest(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.embeddingsReady = true
	m.mu.Unlock()

	if err := m.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("document refresh after ingest failed")
	}
	m.notify(ctx)
	return result, nil
}

// Pending returns a snapshot of the staged files in insertion order
func (m *Manager) Pending() []models.PendingFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PendingFile(nil), m.pending...)
}

// Stored returns a snapshot of the server-known document set
func (m *Manager) Stored() []models.StoredDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.StoredDocument(nil), m.stored...)
}

// EmbeddingsReady reports the last server-reported ingestion state
func (m *Manager) EmbeddingsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embeddingsReady
}

// Ingesting reports whether an ingestion request is in flight
func (m *Manager) Ingesting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ingesting
}

func (m *Manager) notify(ctx context.Context) {
	if m.OnServerChange != nil {
		m.OnServerChange(ctx)
	}
}

// DescribePending renders one staged file for listings
func DescribePending(f models.PendingFile) string {
	return fmt.Sprintf("%s (%s)", f.Name, helper.FormatSize(f.SizeBytes))
}

// HasExtension reports whether name carries one of the allowed extensions
func HasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
