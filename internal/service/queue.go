package service

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const reindexQueueKey = "metacatalog:reindex"

// QueueService keeps the ids waiting for a deferred reindex in a redis set.
// Adding an id twice before it is drained queues it once.
type QueueService struct {
	rdb *redis.Client
	key string
}

func NewQueueService(redisClient *redis.Client) *QueueService {
	return &QueueService{
		rdb: redisClient,
		key: reindexQueueKey,
	}
}

func (s *QueueService) Add(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = strconv.FormatInt(id, 10)
	}
	if err := s.rdb.SAdd(ctx, s.key, members...).Err(); err != nil {
		return errors.Wrap(err, "queue add")
	}
	return nil
}

func (s *QueueService) Pop(ctx context.Context, max int) ([]int64, error) {
	if max <= 0 {
		return nil, nil
	}
	members, err := s.rdb.SPopN(ctx, s.key, int64(max)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "queue pop")
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *QueueService) Len(ctx context.Context) (int64, error) {
	return s.rdb.SCard(ctx, s.key).Result()
}
