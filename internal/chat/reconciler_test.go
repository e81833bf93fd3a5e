package chat

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-console/internal/api"
	"rag-console/internal/models"
)

// scriptedStream replays a fixed sequence of events, then ends
type scriptedStream struct {
	events   []api.StreamEvent
	endErr   error
	degraded bool
	closed   bool
	idx      int
}

func (s *scriptedStream) Recv() (api.StreamEvent, error) {
	if s.idx < len(s.events) {
		ev := s.events[s.idx]
		s.idx++
		return ev, nil
	}
	if s.endErr != nil {
		return api.StreamEvent{}, s.endErr
	}
	return api.StreamEvent{}, io.EOF
}

func (s *scriptedStream) Close() error   { s.closed = true; return nil }
func (s *scriptedStream) Degraded() bool { return s.degraded }

func scripted(stream *scriptedStream) StreamOpener {
	return OpenerFunc(func(ctx context.Context, req api.ChatRequest) (EventStream, error) {
		return stream, nil
	})
}

func TestSubmit_FoldsFragmentsIntoOneTurn(t *testing.T) {
	stream := &scriptedStream{events: []api.StreamEvent{
		{Answer: "Hel"},
		{Answer: "lo"},
		{Sources: []string{"a.pdf"}, HasSources: true},
	}}
	rec := NewReconciler(scripted(stream))

	assistant, err := rec.Submit(context.Background(), "hi there", "Casual")
	require.NoError(t, err)

	assert.Equal(t, "Hello", assistant.Content)
	assert.Equal(t, []string{"a.pdf"}, assistant.Sources)
	assert.Equal(t, models.TurnComplete, assistant.Status)
	assert.True(t, stream.closed)

	turns := rec.Turns()
	require.Len(t, turns, 3) // welcome + user + assistant
	assert.Equal(t, models.RoleUser, turns[1].Role)
	assert.Equal(t, "hi there", turns[1].Content)
}

func TestSubmit_SourcesReplacedWholesale(t *testing.T) {
	stream := &scriptedStream{events: []api.StreamEvent{
		{Sources: []string{"a.pdf", "b.pdf"}, HasSources: true},
		{Answer: "text"},
		{Sources: []string{"c.pdf"}, HasSources: true},
	}}
	rec := NewReconciler(scripted(stream))

	assistant, err := rec.Submit(context.Background(), "q", "Corporate")
	require.NoError(t, err)
	assert.Equal(t, []string{"c.pdf"}, assistant.Sources)
}

func TestSubmit_RejectsBlankText(t *testing.T) {
	rec := NewReconciler(scripted(&scriptedStream{}))
	before := len(rec.Turns())

	_, err := rec.Submit(context.Background(), "   \n\t", "Casual")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Len(t, rec.Turns(), before)
}

func TestSubmit_RejectsWhileExchangeActive(t *testing.T) {
	release := make(chan struct{})
	opener := OpenerFunc(func(ctx context.Context, req api.ChatRequest) (EventStream, error) {
		return &blockingStream{ctx: ctx, release: release}, nil
	})
	rec := NewReconciler(opener)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec.Submit(context.Background(), "first", "Casual")
	}()

	require.Eventually(t, rec.Active, time.Second, time.Millisecond)
	lengthDuring := len(rec.Turns())

	_, err := rec.Submit(context.Background(), "second", "Casual")
	assert.ErrorIs(t, err, ErrExchangeActive)
	assert.Len(t, rec.Turns(), lengthDuring)

	close(release)
	wg.Wait()
	assert.False(t, rec.Active())
}

// blockingStream holds Recv open until released or the context dies
type blockingStream struct {
	ctx     context.Context
	release chan struct{}
}

func (s *blockingStream) Recv() (api.StreamEvent, error) {
	select {
	case <-s.release:
		return api.StreamEvent{}, io.EOF
	case <-s.ctx.Done():
		return api.StreamEvent{}, s.ctx.Err()
	}
}

func (s *blockingStream) Close() error   { return nil }
func (s *blockingStream) Degraded() bool { return true }

func TestSubmit_EmptyStreamBecomesFailedTurn(t *testing.T) {
	rec := NewReconciler(scripted(&scriptedStream{}))

	assistant, err := rec.Submit(context.Background(), "q", "Casual")
	require.NoError(t, err)
	assert.Equal(t, models.TurnFailed, assistant.Status)
	assert.NotEmpty(t, assistant.Content)
	assert.False(t, rec.Active())
}

func TestSubmit_PartialAnswerStillCompletes(t *testing.T) {
	stream := &scriptedStream{
		events: []api.StreamEvent{{Answer: "partial answer"}},
		endErr: errors.New("connection reset"),
	}
	rec := NewReconciler(scripted(stream))

	assistant, err := rec.Submit(context.Background(), "q", "Casual")
	require.NoError(t, err)
	assert.Equal(t, models.TurnComplete, assistant.Status)
	assert.Equal(t, "partial answer", assistant.Content)
}

func TestSubmit_OpenFailureFailsTurnAndFreesSlot(t *testing.T) {
	opener := OpenerFunc(func(ctx context.Context, req api.ChatRequest) (EventStream, error) {
		return nil, errors.New("backend down")
	})
	rec := NewReconciler(opener)

	assistant, err := rec.Submit(context.Background(), "q", "Casual")
	require.NoError(t, err)
	assert.Equal(t, models.TurnFailed, assistant.Status)

	// A new submission must be possible after any failure.
	assert.False(t, rec.Active())
}

func TestSubmit_HistoryExcludesWelcomeTurn(t *testing.T) {
	var got api.ChatRequest
	opener := OpenerFunc(func(ctx context.Context, req api.ChatRequest) (EventStream, error) {
		got = req
		return &scriptedStream{events: []api.StreamEvent{{Answer: "a1"}}}, nil
	})
	rec := NewReconciler(opener)

	_, err := rec.Submit(context.Background(), "first", "Casual")
	require.NoError(t, err)
	assert.Empty(t, got.History)

	_, err = rec.Submit(context.Background(), "second", "Casual")
	require.NoError(t, err)
	require.Len(t, got.History, 2)
	assert.Equal(t, "user", got.History[0].Role)
	assert.Equal(t, "first", got.History[0].Content)
	assert.Equal(t, "assistant", got.History[1].Role)
	assert.Equal(t, "a1", got.History[1].Content)
}

func TestCancel_StopsMutationAndFreesSlot(t *testing.T) {
	opener := OpenerFunc(func(ctx context.Context, req api.ChatRequest) (EventStream, error) {
		return &cancelableStream{ctx: ctx}, nil
	})
	rec := NewReconciler(opener)

	applied := make(chan struct{})
	var once sync.Once
	rec.OnUpdate = func(turn models.Turn) {
		once.Do(func() { close(applied) })
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec.Submit(context.Background(), "q", "Casual")
	}()

	<-applied
	rec.Cancel()
	wg.Wait()

	assert.False(t, rec.Active())
	turns := rec.Turns()
	orphan := turns[len(turns)-1]
	// The orphaned turn keeps whatever it had when the exchange died;
	// cancellation must not rewrite it into complete or failed.
	assert.Equal(t, "before cancel", orphan.Content)
	assert.Equal(t, models.TurnStreaming, orphan.Status)

	// And the engine accepts a fresh submission afterwards.
	rec2 := scripted(&scriptedStream{events: []api.StreamEvent{{Answer: "ok"}}})
	rec.opener = rec2
	assistant, err := rec.Submit(context.Background(), "again", "Casual")
	require.NoError(t, err)
	assert.Equal(t, models.TurnComplete, assistant.Status)
}

// cancelableStream emits one fragment, then blocks until its context dies
type cancelableStream struct {
	ctx  context.Context
	sent bool
}

func (s *cancelableStream) Recv() (api.StreamEvent, error) {
	if !s.sent {
		s.sent = true
		return api.StreamEvent{Answer: "before cancel"}, nil
	}
	<-s.ctx.Done()
	return api.StreamEvent{}, s.ctx.Err()
}

func (s *cancelableStream) Close() error   { return nil }
func (s *cancelableStream) Degraded() bool { return true }

func TestOnUpdate_SeesMonotonicContent(t *testing.T) {
	stream := &scriptedStream{events: []api.StreamEvent{
		{Answer: "a"}, {Answer: "b"}, {Answer: "c"},
	}}
	rec := NewReconciler(scripted(stream))

	var seen []string
	rec.OnUpdate = func(turn models.Turn) {
		seen = append(seen, turn.Content)
	}

	_, err := rec.Submit(context.Background(), "q", "Casual")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "ab", "abc", "abc"}, seen)
}
