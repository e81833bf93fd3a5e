package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Client is the typed HTTP adapter for the RAG backend. All session-engine
// components talk to the backend through it and never touch net/http.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given backend origin. A zero timeout
// disables the client-side deadline; ingestion relies on that.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// File is one binary part of a multipart upload
type File struct {
	Name   string
	Reader io.Reader
}

type UploadedFile struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type UploadResult struct {
	Uploaded []UploadedFile `json:"uploaded"`
	Errors   []string       `json:"errors"`
	Message  string         `json:"message"`
}

// Upload posts all files as one multipart batch under the "files" field
func (c *Client) Upload(ctx context.Context, files []File) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to build multipart body: %v", err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, fmt.Errorf("failed to read %s: %v", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result UploadResult
	if err := c.do(req, "upload", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type IngestResult struct {
	Status          string `json:"status"`
	DocumentsLoaded int    `json:"documents_loaded"`
	ChunksCreated   int    `json:"chunks_created"`
	Message         string `json:"message"`
}

// Ingest triggers backend-side parsing and embedding of stored documents.
// The call blocks until the backend answers; there is no client timeout
// beyond the one configured on the underlying http.Client.
func (c *Client) Ingest(ctx context.Context) (*IngestResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ingest", nil)
	if err != nil {
		return nil, err
	}
	var result IngestResult
	if err := c.do(req, "ingest", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type Document struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	Extension string `json:"extension"`
}

type DocumentListing struct {
	Documents     []Document `json:"documents"`
	HasEmbeddings bool       `json:"has_embeddings"`
}

// Documents fetches the full authoritative document listing
func (c *Client) Documents(ctx context.Context) (*DocumentListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/documents", nil)
	if err != nil {
		return nil, err
	}
	var listing DocumentListing
	if err := c.do(req, "list documents", &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// DeleteDocument removes one stored document by its unique filename
func (c *Client) DeleteDocument(ctx context.Context, filename string) error {
	target := c.baseURL + "/api/documents/" + url.PathEscape(filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return err
	}
	return c.do(req, "delete document", nil)
}

type ChunkingDetails struct {
	Strategy    string `json:"strategy"`
	Size        int    `json:"size"`
	Overlap     int    `json:"overlap"`
	TotalChunks int    `json:"total_chunks"`
}

type ModelDetails struct {
	Embeddings string `json:"embeddings"`
	LLM        string `json:"llm"`
}

type DatabaseDetails struct {
	Type             string `json:"type"`
	PersistDirectory string `json:"persist_directory"`
	CollectionName   string `json:"collection_name"`
}

type KeyStatus struct {
	OpenAIAPIKey     bool `json:"openai_api_key"`
	OpenRouterAPIKey bool `json:"openrouter_api_key"`
}

// PipelineDetails mirrors backend pipeline configuration. Booleans only for
// credentials, never the secrets themselves.
type PipelineDetails struct {
	Chunking ChunkingDetails `json:"chunking"`
	Models   ModelDetails    `json:"models"`
	Database DatabaseDetails `json:"database"`
	Status   KeyStatus       `json:"status"`
}

// PipelineDetails fetches the backend pipeline snapshot
func (c *Client) PipelineDetails(ctx context.Context) (*PipelineDetails, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/pipeline/details", nil)
	if err != nil {
		return nil, err
	}
	var details PipelineDetails
	if err := c.do(req, "pipeline details", &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// do executes the request and decodes a 2xx JSON body into out (skipped when
// out is nil). Non-2xx bodies are decoded for their detail message.
func (c *Client) do(req *http.Request, op string, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServerError{Status: resp.StatusCode, Detail: decodeDetail(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %v", op, err)
	}
	return nil
}

// decodeDetail pulls the backend's {detail} message out of an error body
func decodeDetail(r io.Reader) string {
	body, err := io.ReadAll(r)
	if err != nil {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Debug().Str("body", string(body)).Msg("error body is not JSON")
		return ""
	}
	return payload.Detail
}
