package taskstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pcbforge/kicad-mcp/pkg/types"
	"github.com/redis/go-redis/v9"
)

const (
	redisTaskKeyPrefix = "kicadmcp:task:"
	redisTaskIndexKey  = "kicadmcp:tasks"
	redisOpTimeout     = 5 * time.Second
)

// RedisStore 以 Redis 為後端的任務儲存，供多個伺服器實例共用任務登記簿時使用
//
// 任務記錄存於 kicadmcp:task:<id>，ID 集合存於 kicadmcp:tasks。
// 狀態標記檔與日誌仍在檔案系統上（由背景程序寫入），本儲存只負責記錄本身。
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore 建立 Redis 任務儲存
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Create(task *types.Task) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	key := redisTaskKeyPrefix + string(task.ID)
	jsonBytes, err := sonic.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	ok, err := s.rdb.SetNX(ctx, key, jsonBytes, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to write task record: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskExists, task.ID)
	}

	if err := s.rdb.SAdd(ctx, redisTaskIndexKey, string(task.ID)).Err(); err != nil {
		return fmt.Errorf("failed to index task: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(id types.TaskID) (*types.Task, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	jsonBytes, err := s.rdb.Get(ctx, redisTaskKeyPrefix+string(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		return nil, fmt.Errorf("failed to read task record: %w", err)
	}

	var task types.Task
	if err := sonic.Unmarshal(jsonBytes, &task); err != nil {
		return nil, fmt.Errorf("failed to parse task record: %w", err)
	}
	return &task, nil
}

func (s *RedisStore) ListAll() ([]*types.Task, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	ids, err := s.rdb.SMembers(ctx, redisTaskIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	var tasks []*types.Task
	for _, id := range ids {
		task, err := s.Load(types.TaskID(id))
		if err != nil {
			if errors.Is(err, ErrTaskNotFound) {
				continue
			}
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
