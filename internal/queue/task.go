package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Task types carried on the stream.
const (
	TypeContactSend    = "contact.send"
	TypeObjectDelete   = "object.delete"
	TypeProjectsDedupe = "projects.dedupe"
	TypeObjectsSweep   = "objects.sweep"
)

var ErrMalformedTask = errors.New("malformed task")

// Task is the stream envelope. Payload is the task-specific JSON document.
type Task struct {
	ID      string
	Type    string
	Payload json.RawMessage
}

type ObjectDeletePayload struct {
	Key string `json:"key"`
}

func (t Task) Decode(out any) error {
	if len(t.Payload) == 0 {
		return fmt.Errorf("%w: %s has no payload", ErrMalformedTask, t.Type)
	}
	if err := json.Unmarshal(t.Payload, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedTask, err)
	}
	return nil
}

func encodeTask(taskType string, payload any) (map[string]any, error) {
	if taskType == "" {
		return nil, fmt.Errorf("%w: empty type", ErrMalformedTask)
	}
	body := []byte("{}")
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
	}
	return map[string]any{
		"type":    taskType,
		"payload": string(body),
	}, nil
}

func decodeMessage(msg redis.XMessage) (Task, error) {
	taskType, _ := msg.Values["type"].(string)
	if taskType == "" {
		return Task{}, fmt.Errorf("%w: message %s has no type", ErrMalformedTask, msg.ID)
	}
	payload, _ := msg.Values["payload"].(string)
	if payload != "" && !json.Valid([]byte(payload)) {
		return Task{}, fmt.Errorf("%w: message %s payload is not json", ErrMalformedTask, msg.ID)
	}
	return Task{
		ID:      msg.ID,
		Type:    taskType,
		Payload: json.RawMessage(payload),
	}, nil
}
