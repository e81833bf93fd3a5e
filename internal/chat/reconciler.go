// Package chat owns the conversation transcript and folds the backend's
// incremental answer stream into it.
package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"rag-console/internal/api"
	"rag-console/internal/helper"
	"rag-console/internal/models"
)

// ErrExchangeActive means Submit was called while an assistant turn is
// still pending or streaming. The engine rejects re-entrant submissions
// even though callers are expected to disable them.
var ErrExchangeActive = errors.New("an exchange is already in flight")

// ErrEmptyMessage means the submitted text was blank after trimming
var ErrEmptyMessage = errors.New("message is empty")

// failedAnswer replaces the placeholder content when an exchange fails
// before any fragment arrived.
const failedAnswer = "Sorry, I encountered an error while processing your request."

const welcomeMessage = "Hey! I've connected to my data sources. How can I help you today?"

// EventStream is the reconciler's view of one open answer stream
type EventStream interface {
	Recv() (api.StreamEvent, error)
	Close() error
	Degraded() bool
}

// StreamOpener opens one streaming exchange against the backend
type StreamOpener interface {
	OpenStream(ctx context.Context, req api.ChatRequest) (EventStream, error)
}

// OpenerFunc adapts a function to StreamOpener
type OpenerFunc func(ctx context.Context, req api.ChatRequest) (EventStream, error)

func (f OpenerFunc) OpenStream(ctx context.Context, req api.ChatRequest) (EventStream, error) {
	return f(ctx, req)
}

// Reconciler maintains the transcript and the single active exchange. All
// turn mutation happens here, under the mutex, and only while the turn is
// still the active one; fragments arriving after a teardown are dropped.
type Reconciler struct {
	opener StreamOpener

	// OnUpdate, when set, receives a value copy of the assistant turn
	// after every applied fragment and after finalization.
	OnUpdate func(turn models.Turn)

	mu       sync.Mutex
	turns    []models.Turn
	activeID string
	cancel   context.CancelFunc
}

// NewReconciler seeds the transcript with the welcome greeting
func NewReconciler(opener StreamOpener) *Reconciler {
	return &Reconciler{
		opener: opener,
		turns: []models.Turn{{
			ID:      models.WelcomeTurnID,
			Role:    models.RoleAssistant,
			Content: welcomeMessage,
			Status:  models.TurnComplete,
		}},
	}
}

// Turns returns a value-copy snapshot of the transcript
func (r *Reconciler) Turns() []models.Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Turn, len(r.turns))
	for i, t := range r.turns {
		out[i] = t.Clone()
	}
	return out
}

// Active reports whether an exchange is in flight
func (r *Reconciler) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID != ""
}

// Submit appends a user turn and an assistant placeholder, then blocks
// while folding the answer stream into the placeholder. It returns the
// finalized assistant turn. Rejected outright when text is blank or an
// exchange is already active; the transcript is untouched in both cases.
func (r *Reconciler) Submit(ctx context.Context, text, tone string) (models.Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Turn{}, ErrEmptyMessage
	}

	r.mu.Lock()
	if r.activeID != "" {
		r.mu.Unlock()
		return models.Turn{}, ErrExchangeActive
	}

	history := make([]api.HistoryMessage, 0, len(r.turns))
	for _, t := range r.turns {
		if t.ID == models.WelcomeTurnID {
			continue
		}
		history = append(history, api.HistoryMessage{Role: string(t.Role), Content: t.Content})
	}

	userTurn := models.Turn{
		ID:      helper.GenerateUUID(),
		Role:    models.RoleUser,
		Content: text,
		Status:  models.TurnComplete,
	}
	placeholder := models.Turn{
		ID:      helper.GenerateUUID(),
		Role:    models.RoleAssistant,
		Sources: []string{},
		Status:  models.TurnPending,
	}
	r.turns = append(r.turns, userTurn, placeholder)
	r.activeID = placeholder.ID

	streamCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	defer cancel()
	r.run(streamCtx, placeholder.ID, api.ChatRequest{
		Question: text,
		Tone:     tone,
		History:  history,
	})

	return r.turn(placeholder.ID), nil
}

// Cancel tears the active exchange down: the stream reader is released via
// context cancellation and the slot is cleared so a new submission can
// start. The orphaned turn is never mutated afterwards.
func (r *Reconciler) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeID == "" {
		return
	}
	log.Debug().Str("turn", r.activeID).Msg("cancelling active exchange")
	r.activeID = ""
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// run drives one stream to completion and finalizes the placeholder
func (r *Reconciler) run(ctx context.Context, id string, req api.ChatRequest) {
	stream, err := r.opener.OpenStream(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("failed to open answer stream")
		r.finalize(id)
		return
	}
	defer stream.Close()

	for {
		event, err := stream.Recv()
		if err != nil {
			if err != io.EOF {
				log.Error().Err(err).Msg("answer stream broke mid-read")
			} else if stream.Degraded() {
				log.Warn().Str("turn", id).Msg("stream closed without terminal sentinel")
			}
			r.finalize(id)
			return
		}
		if !r.apply(id, event) {
			// Exchange was torn down while we were reading.
			return
		}
	}
}

// apply folds one event into the placeholder. Returns false when the
// exchange is no longer the active one.
func (r *Reconciler) apply(id string, event api.StreamEvent) bool {
	r.mu.Lock()
	if r.activeID != id {
		r.mu.Unlock()
		return false
	}
	var updated models.Turn
	for i := range r.turns {
		if r.turns[i].ID != id {
			continue
		}
		if r.turns[i].Status == models.TurnPending {
			r.turns[i].Status = models.TurnStreaming
		}
		r.turns[i].Content += event.Answer
		if event.HasSources {
			r.turns[i].Sources = append([]string(nil), event.Sources...)
		}
		updated = r.turns[i].Clone()
		break
	}
	r.mu.Unlock()

	if r.OnUpdate != nil {
		r.OnUpdate(updated)
	}
	return true
}

// finalize completes or fails the placeholder and frees the exchange slot.
// A partial answer still counts as complete; an empty one becomes a failed
// turn carrying a user-facing message.
func (r *Reconciler) finalize(id string) {
	r.mu.Lock()
	if r.activeID != id {
		r.mu.Unlock()
		return
	}
	r.activeID = ""
	r.cancel = nil
	var updated models.Turn
	for i := range r.turns {
		if r.turns[i].ID != id {
			continue
		}
		if r.turns[i].Content != "" {
			r.turns[i].Status = models.TurnComplete
		} else {
			r.turns[i].Status = models.TurnFailed
			r.turns[i].Content = failedAnswer
		}
		updated = r.turns[i].Clone()
		break
	}
	r.mu.Unlock()

	if r.OnUpdate != nil {
		r.OnUpdate(updated)
	}
}

// turn returns a value copy of one turn by id
func (r *Reconciler) turn(id string) models.Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.turns {
		if t.ID == id {
			return t.Clone()
		}
	}
	return models.Turn{}
}
