package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Question string           `json:"question"`
	Tone     string           `json:"tone"`
	History  []HistoryMessage `json:"history"`
}

// StreamEvent is one decoded frame of the answer stream. Answer is a
// fragment to append; Sources, when present, replaces all prior sources.
type StreamEvent struct {
	Answer     string
	Sources    []string
	HasSources bool
}

// ChatStream reads newline-delimited `data: <json>` frames from one
// /api/chat/stream response until `data: [DONE]` or connection close.
type ChatStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	done   bool
}

// ChatStream opens one streaming exchange. The caller owns the returned
// stream and must Close it.
func (c *Client) ChatStream(ctx context.Context, chatReq ChatRequest) (*ChatStream, error) {
	if chatReq.History == nil {
		chatReq.History = []HistoryMessage{}
	}
	jsonData, err := json.Marshal(chatReq)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/stream", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "chat stream", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := decodeDetail(resp.Body)
		resp.Body.Close()
		return nil, &ServerError{Status: resp.StatusCode, Detail: detail}
	}

	return &ChatStream{body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

// Recv returns the next valid event. io.EOF marks stream end, whether the
// terminal sentinel arrived or the connection simply closed; Degraded tells
// the two apart. Malformed frames are skipped, not surfaced: a frame split
// across reads is expected noise. An abrupt close can leave a final frame
// without its trailing newline; such a tail is still parsed before EOF.
func (s *ChatStream) Recv() (StreamEvent, error) {
	for {
		line, readErr := s.reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return StreamEvent{}, readErr
		}
		atEOF := readErr == io.EOF

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			if atEOF {
				return StreamEvent{}, io.EOF
			}
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			s.done = true
			return StreamEvent{}, io.EOF
		}

		var frame struct {
			Answer  string    `json:"answer"`
			Sources *[]string `json:"sources"`
		}
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			log.Debug().Str("frame", data).Msg("skipping malformed stream frame")
			if atEOF {
				return StreamEvent{}, io.EOF
			}
			continue
		}
		event := StreamEvent{Answer: frame.Answer}
		if frame.Sources != nil {
			event.Sources = *frame.Sources
			event.HasSources = true
		}
		return event, nil
	}
}

// Degraded reports whether the stream ended without the terminal sentinel
func (s *ChatStream) Degraded() bool { return !s.done }

// Close releases the underlying connection
func (s *ChatStream) Close() error { return s.body.Close() }
