package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewGeminiClient(srv.URL, "test-key", 5*time.Second)
	require.NoError(t, err)
	return c
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient("", "", 0)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestNewGeminiClient_Defaults(t *testing.T) {
	c, err := NewGeminiClient("", "k", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL)
	assert.Equal(t, 60*time.Second, c.HTTPClient.Timeout)
}

func TestGemini_CreateStore(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/fileSearchStores", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "store_1_lab", body["displayName"])
		assert.NotContains(t, body, "name")

		_, _ = w.Write([]byte(`{"name":"fileSearchStores/store1-abc","displayName":"store_1_lab"}`))
	})

	store, err := c.CreateStore(context.Background(), "store_1_lab", "Lab")
	require.NoError(t, err)
	assert.Equal(t, "fileSearchStores/store1-abc", store.Name)
	assert.Equal(t, "store_1_lab", store.DisplayName)
}

func TestGemini_CreateStore_APIError(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	})

	_, err := c.CreateStore(context.Background(), "n", "d")
	require.Error(t, err)
	assert.Equal(t, "API key not valid", err.Error())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "PERMISSION_DENIED", apiErr.Status)
}

func TestGemini_NonJSONError(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := c.DeleteStore(context.Background(), "fileSearchStores/x", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestGemini_DeleteStore_Force(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1beta/fileSearchStores/abc", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("force"))
		_, _ = w.Write([]byte(`{}`))
	})

	require.NoError(t, c.DeleteStore(context.Background(), "fileSearchStores/abc", true))
}

func TestGemini_DeleteDocument(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1beta/fileSearchStores/abc/documents/d1", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("force"))
	})

	require.NoError(t, c.DeleteDocument(context.Background(), "fileSearchStores/abc/documents/d1"))
}

func TestGemini_UploadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o600))

	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/v1beta/fileSearchStores/abc:uploadToFileSearchStore", r.URL.Path)
		assert.Equal(t, "multipart", r.Header.Get("X-Goog-Upload-Protocol"))

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/related", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])

		meta, err := mr.NextPart()
		require.NoError(t, err)
		var metadata map[string]string
		require.NoError(t, json.NewDecoder(meta).Decode(&metadata))
		assert.Equal(t, "notes.txt", metadata["displayName"])
		assert.Equal(t, "text/plain", metadata["mimeType"])

		file, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "text/plain", file.Header.Get("Content-Type"))
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(content))

		_, _ = w.Write([]byte(`{"name":"fileSearchStores/abc/upload/operations/op1","done":false}`))
	})

	res, err := c.UploadDocument(context.Background(), path, "fileSearchStores/abc", "notes.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, UploadPending, res.State)
	assert.Equal(t, "fileSearchStores/abc/upload/operations/op1", res.Operation)
}

func TestGemini_UploadDocument_StreamsBody(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789abcdef"), 256<<10)
	path := filepath.Join(t.TempDir(), "large.bin")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		// A streamed body has no declared length.
		assert.Equal(t, int64(-1), r.ContentLength)

		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		mr := multipart.NewReader(r.Body, params["boundary"])

		_, err = mr.NextPart()
		require.NoError(t, err)
		file, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "application/octet-stream", file.Header.Get("Content-Type"))

		got, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(content, got), "file part differs from the source file")

		_, _ = w.Write([]byte(`{"name":"op1","done":true,"response":{"documentName":"fileSearchStores/abc/documents/d1"}}`))
	})

	res, err := c.UploadDocument(context.Background(), path, "fileSearchStores/abc", "large.bin", "")
	require.NoError(t, err)
	assert.Equal(t, UploadComplete, res.State)
	assert.Equal(t, "fileSearchStores/abc/documents/d1", res.DocumentID)
}

func TestGemini_UploadDocument_UsesUploadTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"name":"op1","done":false}`))
	})
	c.HTTPClient.Timeout = 50 * time.Millisecond

	c.UploadTimeout = 5 * time.Second
	res, err := c.UploadDocument(context.Background(), path, "fileSearchStores/abc", "notes.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, UploadPending, res.State)

	c.UploadTimeout = 50 * time.Millisecond
	_, err = c.UploadDocument(context.Background(), path, "fileSearchStores/abc", "notes.txt", "text/plain")
	assert.Error(t, err)

	assert.Equal(t, 50*time.Millisecond, c.HTTPClient.Timeout)
}

func TestNewGeminiClient_UploadTimeoutDefault(t *testing.T) {
	c, err := NewGeminiClient("", "k", time.Second)
	require.NoError(t, err)
	assert.Equal(t, DefaultUploadTimeout, c.UploadTimeout)
	assert.Equal(t, time.Second, c.HTTPClient.Timeout)
}

func TestGemini_UploadDocument_MissingFile(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.UploadDocument(context.Background(), "/does/not/exist", "s", "d", "")
	assert.Error(t, err)
}

func TestGemini_UploadStatus(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    UploadResult
		wantErr bool
	}{
		{
			name: "pending",
			body: `{"name":"op1"}`,
			want: UploadResult{Operation: "op1", State: UploadPending},
		},
		{
			name: "complete",
			body: `{"name":"op1","done":true,"response":{"@type":"x","documentName":"fileSearchStores/abc/documents/d1"}}`,
			want: UploadResult{Operation: "op1", State: UploadComplete, DocumentID: "fileSearchStores/abc/documents/d1"},
		},
		{
			name: "failed",
			body: `{"name":"op1","done":true,"error":{"code":3,"message":"unsupported file"}}`,
			want: UploadResult{Operation: "op1", State: UploadFailed, Error: "unsupported file"},
		},
		{
			name:    "done without document",
			body:    `{"name":"op1","done":true,"response":{}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/v1beta/fileSearchStores/abc/upload/operations/op1", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := c.UploadStatus(context.Background(), "fileSearchStores/abc/upload/operations/op1")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestGemini_Complete(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)

		var req geminiGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "What is in my notes?", req.Contents[0].Parts[0].Text)
		require.Len(t, req.Tools, 1)
		assert.Equal(t, []string{"fileSearchStores/abc"}, req.Tools[0].FileSearch.FileSearchStoreNames)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Your notes "},{"text":"say hi."}]}}]}`))
	})

	text, err := c.Complete(context.Background(), "fileSearchStores/abc", "What is in my notes?", "models/gemini-2.5-flash")
	require.NoError(t, err)
	assert.Equal(t, "Your notes say hi.", text)
}

func TestGemini_Complete_Blocked(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	})

	_, err := c.Complete(context.Background(), "s", "m", "gemini-2.5-flash")
	assert.ErrorContains(t, err, "SAFETY")
}

func TestGemini_ListModels(t *testing.T) {
	calls := 0
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/v1beta/models", r.URL.Path)

		if r.URL.Query().Get("pageToken") == "" {
			_, _ = w.Write([]byte(`{"models":[
				{"name":"models/gemini-2.5-pro","supportedGenerationMethods":["generateContent","countTokens"]},
				{"name":"models/text-embedding-004","supportedGenerationMethods":["embedContent"]}
			],"nextPageToken":"p2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"models/gemini-2.5-flash","displayName":"Flash","supportedGenerationMethods":["generateContent"]}]}`))
	})

	got, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, got, 2)
	assert.Equal(t, "models/gemini-2.5-flash", got[0].Name)
	assert.Equal(t, "Flash", got[0].DisplayName)
	assert.Equal(t, "models/gemini-2.5-pro", got[1].Name)
}

func TestLazy_BuildsOnce(t *testing.T) {
	builds := 0
	l := NewLazy(func() (Client, error) {
		builds++
		return nil, ErrNoAPIKey
	})

	_, err := l.CreateStore(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.ErrorIs(t, l.DeleteDocument(context.Background(), "d"), ErrNoAPIKey)
	_, err = l.ListModels(context.Background())
	assert.ErrorIs(t, err, ErrNoAPIKey)

	assert.Equal(t, 1, builds)
}

func TestLazy_Delegates(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}`))
	})
	l := NewLazy(func() (Client, error) { return c, nil })

	text, err := l.Complete(context.Background(), "s", "m", "gemini-2.5-flash")
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
}
