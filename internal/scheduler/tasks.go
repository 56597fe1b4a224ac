package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskKPISnapshot = "controlo.kpi_snapshot"

// KPISnapshotPayload narrows a snapshot run to one project. An empty
// ProjectID covers every project.
type KPISnapshotPayload struct {
	ProjectID string `json:"projectId,omitempty"`
}

func NewKPISnapshotTask(payload KPISnapshotPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskKPISnapshot, data), nil
}

func ParseKPISnapshotPayload(task *asynq.Task) (KPISnapshotPayload, error) {
	var payload KPISnapshotPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return KPISnapshotPayload{}, err
	}
	return payload, nil
}
