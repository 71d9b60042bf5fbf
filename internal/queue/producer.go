package queue

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

var ErrUnavailable = errors.New("task queue unavailable")

type Producer struct {
	client *redis.Client
	stream string
}

// NewProducer returns a producer for stream. A nil client yields a producer
// whose Enqueue always fails with ErrUnavailable.
func NewProducer(client *redis.Client, stream string) *Producer {
	return &Producer{client: client, stream: stream}
}

func (p *Producer) Enqueue(ctx context.Context, taskType string, payload any) error {
	if p == nil || p.client == nil {
		return ErrUnavailable
	}
	values, err := encodeTask(taskType, payload)
	if err != nil {
		return err
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err()
}
