package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/plipowczan/google-file-search-agent/internal/models"
)

// DefaultBaseURL is the public Gemini API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// DefaultUploadTimeout bounds a whole document upload request.
const DefaultUploadTimeout = 10 * time.Minute

// GeminiClient talks to the Gemini File Search REST API.
type GeminiClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	// UploadTimeout replaces HTTPClient.Timeout for document uploads. Zero
	// means no limit.
	UploadTimeout time.Duration
	logger        *slog.Logger
}

var _ Client = (*GeminiClient)(nil)

// APIError is a non-2xx answer from the Gemini API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini API returned status %d", e.StatusCode)
	}
	return e.Message
}

type geminiStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type geminiErrorBody struct {
	Error geminiStatus `json:"error"`
}

type geminiStore struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

type geminiOperation struct {
	Name     string        `json:"name"`
	Done     bool          `json:"done"`
	Error    *geminiStatus `json:"error,omitempty"`
	Response *struct {
		DocumentName string `json:"documentName"`
	} `json:"response,omitempty"`
}

type geminiUploadMetadata struct {
	DisplayName string `json:"displayName,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiFileSearch struct {
	FileSearchStoreNames []string `json:"fileSearchStoreNames"`
}

type geminiTool struct {
	FileSearch *geminiFileSearch `json:"fileSearch,omitempty"`
}

type geminiGenerateRequest struct {
	Contents []geminiContent `json:"contents"`
	Tools    []geminiTool    `json:"tools,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type geminiModel struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	Description                string   `json:"description"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

type geminiModelList struct {
	Models        []geminiModel `json:"models"`
	NextPageToken string        `json:"nextPageToken"`
}

// NewGeminiClient returns a client for baseURL. An empty baseURL selects
// DefaultBaseURL.
func NewGeminiClient(baseURL, apiKey string, timeout time.Duration) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &GeminiClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UploadTimeout: DefaultUploadTimeout,
		logger:        slog.Default().With("component", "gemini"),
	}, nil
}

func (c *GeminiClient) CreateStore(ctx context.Context, remoteName, displayName string) (*RemoteStore, error) {
	// The API assigns the resource name. The derived name is sent as the
	// display name.
	reqBody := geminiStore{DisplayName: remoteName}

	var store geminiStore
	if err := c.do(ctx, http.MethodPost, c.apiURL("fileSearchStores", nil), reqBody, &store); err != nil {
		return nil, err
	}
	if store.Name == "" {
		return nil, fmt.Errorf("gemini API returned a store without a name")
	}

	c.logger.Debug("created file search store", "name", store.Name, "display_name", displayName)
	return &RemoteStore{Name: store.Name, DisplayName: store.DisplayName}, nil
}

func (c *GeminiClient) DeleteStore(ctx context.Context, remoteName string, force bool) error {
	var query url.Values
	if force {
		query = url.Values{"force": []string{"true"}}
	}
	return c.do(ctx, http.MethodDelete, c.apiURL(remoteName, query), nil, nil)
}

// UploadDocument streams the file at localPath to the store as a single
// multipart/related request and returns the resulting import operation. The
// request is bounded by UploadTimeout instead of the client timeout.
func (c *GeminiClient) UploadDocument(ctx context.Context, localPath, remoteStoreName, displayName, mimeType string) (*UploadResult, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}

	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	if err := w.SetBoundary("upload-" + uuid.NewString()); err != nil {
		f.Close()
		return nil, err
	}

	go func() {
		defer f.Close()
		pw.CloseWithError(writeUploadBody(w, f, displayName, mimeType))
	}()

	endpoint := c.BaseURL + "/upload/v1beta/" + remoteStoreName + ":uploadToFileSearchStore?uploadType=multipart"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+w.Boundary())
	req.Header.Set("X-Goog-Upload-Protocol", "multipart")

	var op geminiOperation
	if err := c.sendWith(c.uploadClient(), req, &op); err != nil {
		return nil, err
	}

	c.logger.Debug("upload accepted", "store", remoteStoreName, "operation", op.Name, "done", op.Done)
	return op.result()
}

// writeUploadBody writes the metadata part and the file part, then closes w.
func writeUploadBody(w *multipart.Writer, file io.Reader, displayName, mimeType string) error {
	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := w.CreatePart(metaHeader)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(metaPart).Encode(geminiUploadMetadata{DisplayName: displayName, MimeType: mimeType}); err != nil {
		return err
	}

	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Type", mimeType)
	filePart, err := w.CreatePart(fileHeader)
	if err != nil {
		return err
	}
	if _, err := io.Copy(filePart, file); err != nil {
		return fmt.Errorf("reading upload: %w", err)
	}
	return w.Close()
}

// uploadClient shares the transport of HTTPClient with the upload timeout.
func (c *GeminiClient) uploadClient() *http.Client {
	uc := *c.HTTPClient
	uc.Timeout = c.UploadTimeout
	return &uc
}

func (c *GeminiClient) UploadStatus(ctx context.Context, operation string) (*UploadResult, error) {
	var op geminiOperation
	if err := c.do(ctx, http.MethodGet, c.apiURL(operation, nil), nil, &op); err != nil {
		return nil, err
	}
	if op.Name == "" {
		op.Name = operation
	}
	return op.result()
}

func (c *GeminiClient) DeleteDocument(ctx context.Context, remoteDocumentID string) error {
	query := url.Values{"force": []string{"true"}}
	return c.do(ctx, http.MethodDelete, c.apiURL(remoteDocumentID, query), nil, nil)
}

// Complete sends message to modelName with file search restricted to
// remoteStoreName and returns the concatenated text of the first candidate.
func (c *GeminiClient) Complete(ctx context.Context, remoteStoreName, message, modelName string) (string, error) {
	reqBody := geminiGenerateRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: message}},
		}},
		Tools: []geminiTool{{
			FileSearch: &geminiFileSearch{FileSearchStoreNames: []string{remoteStoreName}},
		}},
	}

	path := "models/" + strings.TrimPrefix(modelName, "models/") + ":generateContent"

	var resp geminiGenerateResponse
	if err := c.do(ctx, http.MethodPost, c.apiURL(path, nil), reqBody, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("no response from model")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

// ListModels returns the models that support generateContent, sorted by name.
func (c *GeminiClient) ListModels(ctx context.Context) ([]models.Model, error) {
	result := []models.Model{}

	pageToken := ""
	for {
		query := url.Values{"pageSize": []string{"1000"}}
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		var page geminiModelList
		if err := c.do(ctx, http.MethodGet, c.apiURL("models", query), nil, &page); err != nil {
			return nil, err
		}

		for _, gm := range page.Models {
			m := models.Model{
				Name:              gm.Name,
				DisplayName:       gm.DisplayName,
				Description:       gm.Description,
				GenerationMethods: gm.SupportedGenerationMethods,
			}
			if m.Supports("generateContent") {
				result = append(result, m)
			}
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (op *geminiOperation) result() (*UploadResult, error) {
	res := &UploadResult{Operation: op.Name, State: UploadPending}
	if !op.Done {
		if op.Name == "" {
			return nil, fmt.Errorf("gemini API returned an unfinished operation without a name")
		}
		return res, nil
	}

	if op.Error != nil {
		res.State = UploadFailed
		res.Error = op.Error.Message
		if res.Error == "" {
			res.Error = fmt.Sprintf("document import failed with code %d", op.Error.Code)
		}
		return res, nil
	}

	if op.Response == nil || op.Response.DocumentName == "" {
		return nil, fmt.Errorf("operation %s finished without a document name", op.Name)
	}
	res.State = UploadComplete
	res.DocumentID = op.Response.DocumentName
	return res, nil
}

func (c *GeminiClient) apiURL(path string, query url.Values) string {
	u := c.BaseURL + "/v1beta/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do sends a JSON request and decodes a JSON response into out when out is
// not nil.
func (c *GeminiClient) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *GeminiClient) send(req *http.Request, out any) error {
	return c.sendWith(c.HTTPClient, req, out)
}

func (c *GeminiClient) sendWith(client *http.Client, req *http.Request, out any) error {
	req.Header.Set("x-goog-api-key", c.APIKey)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("gemini request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decoding gemini response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body geminiErrorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		apiErr.Status = body.Error.Status
		apiErr.Message = body.Error.Message
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(data))
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("gemini API returned status: %s", resp.Status)
	}
	return apiErr
}
