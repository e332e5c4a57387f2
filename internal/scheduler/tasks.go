package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCallDispatch = "calls.dispatch"

// CallDispatchPayload identifies one lead the sweep selected for redial.
type CallDispatchPayload struct {
	LeadID  string `json:"leadId"`
	Trigger string `json:"trigger"`
}

func NewCallDispatchTask(payload CallDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCallDispatch, data), nil
}

func ParseCallDispatchPayload(task *asynq.Task) (CallDispatchPayload, error) {
	var payload CallDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CallDispatchPayload{}, err
	}
	return payload, nil
}
