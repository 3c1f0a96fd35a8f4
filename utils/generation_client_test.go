package utils

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portraitly/styles"
)

func testClientLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestCreateTask(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/tasks", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code": 200, "data": {"taskId": "task-123"}}`))
	}))
	defer srv.Close()

	client := NewGenerationClient(srv.URL, "secret-key", testClientLogger())

	taskID, err := client.CreateTask(context.Background(), SubmitRequest{
		StyleSettings:  styles.DeserializeSettings(styles.PackageHeadshot, nil),
		SelfieKeys:     []string{"a.jpg", "b.jpg"},
		GenerationType: "personal",
	})
	require.NoError(t, err)
	assert.Equal(t, "task-123", taskID)
	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, "personal", gotBody["generationType"])
}

func TestCreateTaskMissingTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 500, "message": "backend overloaded", "data": {}}`))
	}))
	defer srv.Close()

	client := NewGenerationClient(srv.URL, "k", testClientLogger())

	_, err := client.CreateTask(context.Background(), SubmitRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no task id")
	assert.Contains(t, err.Error(), "backend overloaded")
}

func TestCreateTaskHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewGenerationClient(srv.URL, "k", testClientLogger())

	_, err := client.CreateTask(context.Background(), SubmitRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestTaskStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/tasks/task-9", r.URL.Path)
		w.Write([]byte(`{"data": {"taskId": "task-9", "state": "success", "resultUrls": ["https://cdn.example.com/1.png"]}}`))
	}))
	defer srv.Close()

	client := NewGenerationClient(srv.URL, "k", testClientLogger())

	status, err := client.TaskStatus(context.Background(), "task-9")
	require.NoError(t, err)
	assert.Equal(t, "task-9", status.TaskID)
	assert.Equal(t, TaskStateSuccess, status.State)
	assert.Equal(t, []string{"https://cdn.example.com/1.png"}, status.ResultURLs)
	assert.True(t, status.Settled())
}

func TestTaskStatusFillsMissingTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"state": "processing"}}`))
	}))
	defer srv.Close()

	client := NewGenerationClient(srv.URL, "k", testClientLogger())

	status, err := client.TaskStatus(context.Background(), "task-7")
	require.NoError(t, err)
	assert.Equal(t, "task-7", status.TaskID)
	assert.False(t, status.Settled())
}

func TestTaskStatusFailedState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"taskId": "task-1", "state": "failed", "failReason": "faces not detected"}}`))
	}))
	defer srv.Close()

	client := NewGenerationClient(srv.URL, "k", testClientLogger())

	status, err := client.TaskStatus(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, TaskStateFailed, status.State)
	assert.Equal(t, "faces not detected", status.FailReason)
	assert.True(t, status.Settled())
}

func TestTaskStatusHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewGenerationClient(srv.URL, "k", testClientLogger())

	_, err := client.TaskStatus(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClientTrimsTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/tasks", r.URL.Path)
		w.Write([]byte(`{"data": {"taskId": "t"}}`))
	}))
	defer srv.Close()

	client := NewGenerationClient(srv.URL+"/", "k", testClientLogger())

	_, err := client.CreateTask(context.Background(), SubmitRequest{})
	require.NoError(t, err)
}
