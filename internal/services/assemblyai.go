package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultAssemblyAIBaseURL = "https://api.assemblyai.com/v2"

// Transcript job statuses reported by AssemblyAI
const (
	TranscriptQueued     = "queued"
	TranscriptProcessing = "processing"
	TranscriptCompleted  = "completed"
	TranscriptError      = "error"
)

// TranscriptStatus is one poll of a transcription job
type TranscriptStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// TranscriptionClient is the remote asynchronous transcription capability
type TranscriptionClient interface {
	UploadAudio(ctx context.Context, audio []byte) (string, error)
	CreateTranscript(ctx context.Context, audioURL string) (string, error)
	GetTranscript(ctx context.Context, id string) (*TranscriptStatus, error)
}

// AssemblyAIClient talks to the AssemblyAI v2 REST API
type AssemblyAIClient struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

// NewAssemblyAIClient creates a client with sane defaults
func NewAssemblyAIClient(apiKey, baseURL string) *AssemblyAIClient {
	if baseURL == "" {
		baseURL = defaultAssemblyAIBaseURL
	}
	return &AssemblyAIClient{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// UploadAudio uploads raw audio and returns the provider's upload URL
func (c *AssemblyAIClient) UploadAudio(ctx context.Context, audio []byte) (string, error) {
	var resp struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(ctx, http.MethodPost, "/upload", "application/octet-stream", bytes.NewReader(audio), &resp); err != nil {
		return "", err
	}
	if resp.UploadURL == "" {
		return "", fmt.Errorf("upload response missing upload_url")
	}
	return resp.UploadURL, nil
}

// CreateTranscript starts a transcription job with language detection and returns its id
func (c *AssemblyAIClient) CreateTranscript(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(struct {
		AudioURL          string `json:"audio_url"`
		LanguageDetection bool   `json:"language_detection"`
	}{AudioURL: audioURL, LanguageDetection: true})
	if err != nil {
		return "", err
	}

	var resp TranscriptStatus
	if err := c.do(ctx, http.MethodPost, "/transcript", "application/json", bytes.NewReader(body), &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("transcript response missing id")
	}
	return resp.ID, nil
}

// GetTranscript fetches the current state of a transcription job
func (c *AssemblyAIClient) GetTranscript(ctx context.Context, id string) (*TranscriptStatus, error) {
	var resp TranscriptStatus
	if err := c.do(ctx, http.MethodGet, "/transcript/"+id, "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *AssemblyAIClient) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	if c.APIKey == "" {
		return fmt.Errorf("missing assemblyai api key")
	}
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = defaultAssemblyAIBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.APIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, res.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
