package openaibatch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/fudoline/fudoline/internal/pkg/env"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client talks to the OpenAI Files and Batches endpoints. Submitting a
// batch is a two-step dance: upload the JSONL input artifact, then create
// the batch referencing it.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient builds a client from environment configuration.
func NewClient() (*Client, error) {
	apiKey := env.GetEnv("OPENAI_API_KEY", "")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not configured")
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(env.GetEnv("OPENAI_BASE_URL", defaultBaseURL), "/"),
		model:      env.GetEnv("OPENAI_BATCH_MODEL", "gpt-4o"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Model returns the configured completion model.
func (c *Client) Model() string {
	return c.model
}

// UploadBatchFile serializes the requests to JSONL and uploads them as a
// batch-purpose file. Returns the input artifact id.
func (c *Client) UploadBatchFile(ctx context.Context, requests []BatchRequest) (string, error) {
	var jsonl bytes.Buffer
	enc := json.NewEncoder(&jsonl)
	for _, req := range requests {
		if err := enc.Encode(req); err != nil {
			return "", fmt.Errorf("encode batch request: %w", err)
		}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("purpose", "batch"); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("file", "batch_input.jsonl")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(jsonl.Bytes()); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	raw, err := c.do(req)
	if err != nil {
		return "", err
	}

	var file struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return "", fmt.Errorf("decode file response: %w", err)
	}
	log.Infof("[OpenAIBatch] uploaded input artifact %s (%d requests)", file.ID, len(requests))
	return file.ID, nil
}

// CreateBatch creates a batch job over the uploaded input artifact.
func (c *Client) CreateBatch(ctx context.Context, inputFileID string) (*BatchStatus, error) {
	payload := map[string]interface{}{
		"input_file_id":     inputFileID,
		"endpoint":          "/v1/chat/completions",
		"completion_window": "24h",
		"metadata": map[string]string{
			"description": "Property description generation",
		},
	}
	raw, err := c.postJSON(ctx, c.baseURL+"/batches", payload)
	if err != nil {
		return nil, err
	}

	var batch BatchStatus
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("decode batch response: %w", err)
	}
	log.Infof("[OpenAIBatch] created batch %s status=%s", batch.ID, batch.Status)
	return &batch, nil
}

// GetBatch fetches the current remote state of a batch job.
func (c *Client) GetBatch(ctx context.Context, batchID string) (*BatchStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/batches/"+batchID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var batch BatchStatus
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("decode batch response: %w", err)
	}
	return &batch, nil
}

// GetResults downloads the output artifact and parses it line by line.
func (c *Client) GetResults(ctx context.Context, fileID string) ([]Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files/"+fileID+"/content", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("batch api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("batch api status %d: %s", resp.StatusCode, string(detail))
	}

	var outcomes []Outcome
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var outcome Outcome
		if err := json.Unmarshal([]byte(line), &outcome); err != nil {
			return nil, fmt.Errorf("decode result line: %w", err)
		}
		outcomes = append(outcomes, outcome)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read result artifact: %w", err)
	}
	return outcomes, nil
}

// CreateChatCompletion runs one synchronous chat completion. Used by the
// conversational bot path, which cannot wait for a batch window.
func (c *Client) CreateChatCompletion(ctx context.Context, messages []ChatMessage, maxTokens int) (string, int, error) {
	payload := RequestBody{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	}
	raw, err := c.postJSON(ctx, c.baseURL+"/chat/completions", payload)
	if err != nil {
		return "", 0, err
	}

	var body OutcomeBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", 0, fmt.Errorf("decode completion response: %w", err)
	}
	if len(body.Choices) == 0 {
		return "", 0, fmt.Errorf("completion returned no choices")
	}
	return body.Choices[0].Message.Content, body.Usage.TotalTokens, nil
}

// CancelBatch requests cancellation of a running batch job.
func (c *Client) CancelBatch(ctx context.Context, batchID string) error {
	_, err := c.postJSON(ctx, c.baseURL+"/batches/"+batchID+"/cancel", nil)
	return err
}

// DeleteFile removes an uploaded artifact.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/files/"+fileID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	_, err = c.do(req)
	return err
}

func (c *Client) postJSON(ctx context.Context, url string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("batch api request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read batch api response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("batch api status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
