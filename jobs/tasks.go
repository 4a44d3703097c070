package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGeorefLoad is the task type that copies the georef hierarchy into the catalog.
	TaskGeorefLoad = "georef:load"
)

// GeorefLoadPayload restricts a load to one province when Provincia is set.
type GeorefLoadPayload struct {
	Provincia string `json:"provincia,omitempty"`
}

// NewGeorefLoadTask constructs an Asynq task. Loads of the same scope are
// deduplicated while one is still pending.
func NewGeorefLoadTask(payload GeorefLoadPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGeorefLoad, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Unique(time.Hour),
	), nil
}
