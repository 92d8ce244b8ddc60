package notification

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TaskTypeDispatch is the asynq task type for dispatching a notification.
const TaskTypeDispatch = "notification:dispatch"

// DispatchPayload is the serialized form of a DispatchTask.
// The bot token and timeouts are not carried; the worker supplies its own.
type DispatchPayload struct {
	ChatID         string `json:"chat_id"`
	ParseMode      string `json:"parse_mode,omitempty"`
	MaxMessageSize int    `json:"max_message_size"`
	SplitMessage   bool   `json:"split_message"`
	Message        string `json:"message"`
}

// NewDispatchTask creates a new asynq task for a dispatch snapshot.
func NewDispatchTask(task DispatchTask) (*asynq.Task, error) {
	payload, err := json.Marshal(DispatchPayload{
		ChatID:         task.Config.ChatID,
		ParseMode:      task.Config.ParseMode,
		MaxMessageSize: task.Config.MaxMessageSize,
		SplitMessage:   task.Config.SplitMessage,
		Message:        task.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling task payload: %w", err)
	}
	return asynq.NewTask(TaskTypeDispatch, payload), nil
}

// ParseDispatchPayload deserializes the task payload.
func ParseDispatchPayload(data []byte) (*DispatchPayload, error) {
	var p DispatchPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshaling task payload: %w", err)
	}
	return &p, nil
}

// Task rebuilds the snapshot on top of the worker's base configuration.
func (p *DispatchPayload) Task(base DispatchConfig) DispatchTask {
	cfg := base
	cfg.ChatID = p.ChatID
	cfg.ParseMode = p.ParseMode
	cfg.MaxMessageSize = p.MaxMessageSize
	cfg.SplitMessage = p.SplitMessage
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = base.MaxMessageSize
	}
	return DispatchTask{Config: cfg, Message: p.Message}
}
