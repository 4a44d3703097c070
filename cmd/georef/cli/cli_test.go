package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/alquiler-vehiculos/sucursales/internal/catalog"
	"github.com/alquiler-vehiculos/sucursales/jobs"
)

type stubLoader struct {
	only  string
	stats catalog.LoadStats
	err   error
}

func (s *stubLoader) Load(ctx context.Context, only string) (catalog.LoadStats, error) {
	s.only = only
	return s.stats, s.err
}

type stubEnqueuer struct {
	payload jobs.GeorefLoadPayload
	err     error
}

func (s *stubEnqueuer) EnqueueGeorefLoad(ctx context.Context, payload jobs.GeorefLoadPayload) (*asynq.TaskInfo, error) {
	s.payload = payload
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: jobs.QueueDefault, Type: jobs.TaskGeorefLoad}, nil
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func (s stubInspector) GetTaskInfo(queue, id string) (*asynq.TaskInfo, error) {
	return nil, asynq.ErrTaskNotFound
}

func outputs(asJSON bool) (Output, *bytes.Buffer, *bytes.Buffer) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	return Output{JSON: asJSON, Stdout: stdout, Stderr: stderr}, stdout, stderr
}

func TestLoadCommandText(t *testing.T) {
	loader := &stubLoader{stats: catalog.LoadStats{Provinces: 1, Departments: 26, Localities: 431}}
	cli := &GeorefCLI{Loader: loader}
	out, stdout, stderr := outputs(false)

	code := cli.LoadCommand(context.Background(), LoadArgs{Provincia: "Córdoba"}, out)
	require.Equal(t, 0, code)
	require.Equal(t, "Córdoba", loader.only)
	require.Equal(t, "provincias: 1\ndepartamentos: 26\nlocalidades: 431\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestLoadCommandJSON(t *testing.T) {
	cli := &GeorefCLI{Loader: &stubLoader{stats: catalog.LoadStats{Provinces: 24}}}
	out, stdout, _ := outputs(true)

	require.Equal(t, 0, cli.LoadCommand(context.Background(), LoadArgs{}, out))
	var stats catalog.LoadStats
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &stats))
	require.Equal(t, int64(24), stats.Provinces)
}

func TestLoadCommandFailure(t *testing.T) {
	loader := &stubLoader{err: fmt.Errorf("catalog: province %q: %w", "Atlantis", catalog.ErrNotFound)}
	cli := &GeorefCLI{Loader: loader}
	out, stdout, stderr := outputs(false)

	require.Equal(t, 1, cli.LoadCommand(context.Background(), LoadArgs{Provincia: "Atlantis"}, out))
	require.Empty(t, stdout.String())
	require.Contains(t, stderr.String(), `province "Atlantis"`)
}

func TestEnqueueCommand(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	cli := &GeorefCLI{Enqueuer: enqueuer}
	out, stdout, _ := outputs(false)

	require.Equal(t, 0, cli.EnqueueCommand(context.Background(), EnqueueArgs{Provincia: "Salta"}, out))
	require.Equal(t, "Salta", enqueuer.payload.Provincia)
	require.Equal(t, "enqueued georef:load task-1 on default\n", stdout.String())
}

func TestEnqueueCommandDuplicateIsNotAnError(t *testing.T) {
	cli := &GeorefCLI{Enqueuer: &stubEnqueuer{err: fmt.Errorf("enqueue: %w", asynq.ErrDuplicateTask)}}
	out, _, stderr := outputs(false)

	require.Equal(t, 0, cli.EnqueueCommand(context.Background(), EnqueueArgs{}, out))
	require.Contains(t, stderr.String(), "already queued")
}

func TestEnqueueCommandRedisDown(t *testing.T) {
	cli := &GeorefCLI{Enqueuer: &stubEnqueuer{err: errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")}}
	out, _, stderr := outputs(false)

	require.Equal(t, 1, cli.EnqueueCommand(context.Background(), EnqueueArgs{}, out))
	require.Contains(t, stderr.String(), "connection refused")
}

func TestQueueCommandJSON(t *testing.T) {
	cli := &GeorefCLI{Inspector: stubInspector{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 3, Retry: 1}}}
	out, stdout, _ := outputs(true)

	require.Equal(t, 0, cli.QueueCommand(context.Background(), out))
	require.JSONEq(t, `{"queue":"default","pending":3,"active":0,"scheduled":0,"retry":1,"archived":0}`, stdout.String())
}

func TestQueueCommandEmptyQueue(t *testing.T) {
	cli := &GeorefCLI{Inspector: stubInspector{err: asynq.ErrQueueNotFound}}
	out, stdout, _ := outputs(false)

	require.Equal(t, 0, cli.QueueCommand(context.Background(), out))
	require.Contains(t, stdout.String(), "QUEUE")
	require.Contains(t, stdout.String(), "default")
}

func TestCommandsWithoutDependencies(t *testing.T) {
	var cli *GeorefCLI
	out, _, _ := outputs(false)
	require.Equal(t, 1, cli.LoadCommand(context.Background(), LoadArgs{}, out))
	require.Equal(t, 1, cli.EnqueueCommand(context.Background(), EnqueueArgs{}, out))
	require.Equal(t, 1, cli.QueueCommand(context.Background(), out))
}
