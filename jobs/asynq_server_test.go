package jobs

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInspector struct {
	queue    *asynq.QueueInfo
	queueErr error
	task     *asynq.TaskInfo
	taskErr  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.queue, s.queueErr
}

func (s stubInspector) GetTaskInfo(queue, id string) (*asynq.TaskInfo, error) {
	return s.task, s.taskErr
}

func serveJobs(inspector QueueInspector, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(inspector, nil).MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestHealthReportsQueueCounts(t *testing.T) {
	rr := serveJobs(stubInspector{queue: &asynq.QueueInfo{Queue: QueueDefault, Pending: 2, Active: 1}}, "/jobs/health")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":2,"active":1,"scheduled":0,"retry":0,"archived":0}`, rr.Body.String())
}

func TestHealthWithoutInspector(t *testing.T) {
	rr := serveJobs(nil, "/jobs/health")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"queue":"default"`)
}

func TestHealthRedisDown(t *testing.T) {
	rr := serveJobs(stubInspector{queueErr: errors.New("dial tcp: refused")}, "/jobs/health")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestTaskStatus(t *testing.T) {
	done := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rr := serveJobs(stubInspector{task: &asynq.TaskInfo{
		ID:          "abc",
		Type:        TaskGeorefLoad,
		State:       asynq.TaskStateCompleted,
		CompletedAt: done,
	}}, "/jobs/tasks/abc")

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "abc", body["id"])
	assert.Equal(t, TaskGeorefLoad, body["type"])
	assert.Equal(t, "completed", body["state"])
	assert.Equal(t, "2026-03-01T12:00:00Z", body["completed_at"])
}

func TestTaskStatusNotFound(t *testing.T) {
	rr := serveJobs(stubInspector{taskErr: asynq.ErrTaskNotFound}, "/jobs/tasks/missing")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestTaskStatusQueueError(t *testing.T) {
	rr := serveJobs(stubInspector{taskErr: errors.New("redis: connection pool timeout")}, "/jobs/tasks/abc")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}
