package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload_SendsMultipartBatch(t *testing.T) {
	var gotNames []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		for _, fh := range r.MultipartForm.File["files"] {
			gotNames = append(gotNames, fh.Filename)
		}
		json.NewEncoder(w).Encode(UploadResult{
			Uploaded: []UploadedFile{{Filename: "a.pdf", Size: 3}, {Filename: "b.md", Size: 2}},
			Message:  "2 files uploaded",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	result, err := c.Upload(context.Background(), []File{
		{Name: "a.pdf", Reader: strings.NewReader("pdf")},
		{Name: "b.md", Reader: strings.NewReader("md")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.md"}, gotNames)
	assert.Len(t, result.Uploaded, 2)
	assert.Equal(t, "2 files uploaded", result.Message)
}

func TestIngest_SurfacesDetailVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"detail": "no parsable documents found"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Ingest(context.Background())
	require.Error(t, err)

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusInternalServerError, serverErr.Status)
	assert.Equal(t, "no parsable documents found", serverErr.Error())
}

func TestDocuments_DecodesListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		io.WriteString(w, `{"documents":[{"filename":"a.pdf","size":1234,"extension":".pdf"}],"has_embeddings":true}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	listing, err := c.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, listing.Documents, 1)
	assert.Equal(t, "a.pdf", listing.Documents[0].Filename)
	assert.True(t, listing.HasEmbeddings)
}

func TestDeleteDocument_EscapesFilename(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		gotPath = r.URL.EscapedPath()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	require.NoError(t, c.DeleteDocument(context.Background(), "my report.pdf"))
	assert.Equal(t, "/api/documents/my%20report.pdf", gotPath)
}

func TestPipelineDetails_Decodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"chunking":{"strategy":"recursive","size":1000,"overlap":200,"total_chunks":42},
			"models":{"embeddings":"text-embedding-3-small","llm":"gpt-4o-mini"},
			"database":{"type":"chroma","persist_directory":"./chroma_db","collection_name":"docs"},
			"status":{"openai_api_key":true,"openrouter_api_key":false}
		}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	details, err := c.PipelineDetails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, details.Chunking.TotalChunks)
	assert.Equal(t, "gpt-4o-mini", details.Models.LLM)
	assert.True(t, details.Status.OpenAIAPIKey)
	assert.False(t, details.Status.OpenRouterAPIKey)
}

func TestUnreachableBackend_IsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := NewClient(srv.URL, time.Second)
	_, err := c.Documents(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnreachable(err))
}

func TestNonJSONErrorBody_KeepsStatusMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>bad gateway</html>")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.DeleteDocument(context.Background(), "a.pdf")
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusBadGateway, serverErr.Status)
	assert.Equal(t, "request failed: 502", serverErr.Error())
}
