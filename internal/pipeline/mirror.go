// Package pipeline mirrors backend pipeline configuration for display.
package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"rag-console/internal/api"
)

// Backend is the slice of the transport adapter the mirror needs
type Backend interface {
	PipelineDetails(ctx context.Context) (*api.PipelineDetails, error)
}

// Mirror holds the last successfully fetched pipeline snapshot. Its data
// is diagnostic only, so a failed refresh is logged and the prior snapshot
// kept; nothing here ever blocks the user.
type Mirror struct {
	backend Backend

	mu       sync.Mutex
	snapshot *api.PipelineDetails
}

func NewMirror(backend Backend) *Mirror {
	return &Mirror{backend: backend}
}

// Refresh replaces the snapshot wholesale from the backend
func (m *Mirror) Refresh(ctx context.Context) {
	details, err := m.backend.PipelineDetails(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("pipeline details refresh failed, keeping prior snapshot")
		return
	}
	m.mu.Lock()
	m.snapshot = details
	m.mu.Unlock()
}

// Snapshot returns a copy of the last snapshot, or false when none was
// ever fetched.
func (m *Mirror) Snapshot() (api.PipelineDetails, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		return api.PipelineDetails{}, false
	}
	return *m.snapshot, true
}
