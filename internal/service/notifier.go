package service

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RecordChannel is the pub/sub channel record changes are published on.
const RecordChannel = "metacatalog:records"

type RecordEvent struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
	UUID string `json:"uuid,omitempty"`
	Body string `json:"body,omitempty"`
}

const (
	EventChanged = "changed"
	EventDeleted = "deleted"
)

// NotifierService publishes record changes to redis. Delivery to remote
// subscribers is their concern.
type NotifierService struct {
	rdb     *redis.Client
	channel string
}

func NewNotifierService(redisClient *redis.Client) *NotifierService {
	return &NotifierService{
		rdb:     redisClient,
		channel: RecordChannel,
	}
}

func (s *NotifierService) OnChange(ctx context.Context, body string, id int64) error {
	return s.publish(ctx, RecordEvent{Type: EventChanged, ID: id, Body: body})
}

func (s *NotifierService) OnDelete(ctx context.Context, id int64, uuid string) error {
	return s.publish(ctx, RecordEvent{Type: EventDeleted, ID: id, UUID: uuid})
}

func (s *NotifierService) publish(ctx context.Context, event RecordEvent) error {
	ctx, span := tracer.Start(ctx, "Notifier.Service.Publish")
	defer span.End()

	jsonstr, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return err
	}

	err = s.rdb.Publish(ctx, s.channel, jsonstr).Err()
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "publish record event")
	}

	return nil
}
