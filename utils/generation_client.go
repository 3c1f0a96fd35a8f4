package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"portraitly/styles"
)

// Backend task states
const (
	TaskStateWaiting    = "waiting"
	TaskStateProcessing = "processing"
	TaskStateSuccess    = "success"
	TaskStateFailed     = "failed"
)

// GenerationClient talks to the external AI rendering backend. The backend
// is asynchronous: a submission creates a task, and the task is polled until
// it settles.
type GenerationClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
}

// SubmitRequest is the payload sent to the rendering backend.
type SubmitRequest struct {
	ContextID      string               `json:"contextId,omitempty"`
	StyleSettings  styles.StyleSettings `json:"styleSettings"`
	Prompt         string               `json:"prompt"`
	SelfieKeys     []string             `json:"selfieKeys"`
	GenerationType string               `json:"generationType"`
	Priority       bool                 `json:"priority,omitempty"`
}

// TaskStatus is one snapshot of a backend task.
type TaskStatus struct {
	TaskID     string   `json:"taskId"`
	State      string   `json:"state"`
	ResultURLs []string `json:"resultUrls,omitempty"`
	FailReason string   `json:"failReason,omitempty"`
}

func NewGenerationClient(baseURL, apiKey string, log *logrus.Logger) *GenerationClient {
	return &GenerationClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// CreateTask submits a generation and returns the backend task id.
func (c *GenerationClient) CreateTask(ctx context.Context, req SubmitRequest) (string, error) {
	var out struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			TaskID string `json:"taskId"`
		} `json:"data"`
	}

	if err := c.postJSON(ctx, "/v1/tasks", req, &out); err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	if out.Data.TaskID == "" {
		return "", fmt.Errorf("create task: backend returned no task id (code %d: %s)", out.Code, out.Message)
	}

	c.log.WithFields(logrus.Fields{
		"task_id": out.Data.TaskID,
		"package": req.StyleSettings.PackageID,
		"selfies": len(req.SelfieKeys),
	}).Info("generation task created")

	return out.Data.TaskID, nil
}

// TaskStatus fetches the current state of a backend task.
func (c *GenerationClient) TaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	endpoint := fmt.Sprintf("%s/v1/tasks/%s", c.baseURL, taskID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get task status: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read status body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("task status %s: unexpected status %d: %s", taskID, resp.StatusCode, truncate(body, 200))
	}

	var out struct {
		Data TaskStatus `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode status body: %w", err)
	}
	if out.Data.TaskID == "" {
		out.Data.TaskID = taskID
	}
	return &out.Data, nil
}

func (c *GenerationClient) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("post %s: unexpected status %d: %s", path, resp.StatusCode, truncate(respBody, 200))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	}
	return nil
}

// Settled reports whether the backend is done with the task.
func (t *TaskStatus) Settled() bool {
	return t.State == TaskStateSuccess || t.State == TaskStateFailed
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
