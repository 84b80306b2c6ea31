package taskmodel

import (
	"context"
	"converse-backend/config"
	"converse-backend/dao"
	"converse-backend/model"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKey = "task_model"
	cacheTTL = 24 * time.Hour
)

var ErrNoTaskModel = errors.New("no task model configured and no rollback available")

// Ref names an assistant+model pair.
type Ref struct {
	AssistantID string `json:"assistant_id"`
	Model       string `json:"model"`
}

func (r Ref) IsZero() bool {
	return r == Ref{}
}

type Resolved struct {
	Assistant *model.Assistant
	Model     string
}

// Resolver yields the designated task model for auxiliary work, falling
// back to the caller-provided rollback pair when none is configured.
type Resolver interface {
	Resolve(ctx context.Context, rollback Ref) (*Resolved, error)
	Invalidate(ctx context.Context) error
}

// Cache fronts the task_model table with a redis entry so the designation
// is read at most once per TTL window. Administration invalidates the entry
// when the designation changes.
type Cache struct {
	rdb *redis.Client
}

var Instance Resolver

func Init() {
	Instance = &Cache{
		rdb: redis.NewClient(&redis.Options{
			Addr:     config.Cfg.Redis.Addr,
			Password: config.Cfg.Redis.Password,
			DB:       config.Cfg.Redis.DB,
		}),
	}
}

func (c *Cache) Resolve(ctx context.Context, rollback Ref) (*Resolved, error) {
	ref, err := c.cachedRef(ctx)
	if err != nil {
		return nil, err
	}

	if ref == nil {
		if rollback.IsZero() {
			return nil, ErrNoTaskModel
		}
		ref = &rollback
	}

	assistant, err := dao.GetAssistantByID(ref.AssistantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task model assistant: %w", err)
	}

	return &Resolved{Assistant: assistant, Model: ref.Model}, nil
}

func (c *Cache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, cacheKey).Err()
}

func (c *Cache) cachedRef(ctx context.Context) (*Ref, error) {
	val, err := c.rdb.Get(ctx, cacheKey).Result()
	if err == nil {
		var ref Ref
		if err := json.Unmarshal([]byte(val), &ref); err != nil {
			return nil, fmt.Errorf("corrupt task model cache entry: %v", err)
		}
		if ref.IsZero() {
			// Negative entry: no designation exists.
			return nil, nil
		}
		return &ref, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read task model cache: %w", err)
	}

	taskModel, err := dao.GetTaskModel()
	if err != nil {
		return nil, fmt.Errorf("failed to load task model: %w", err)
	}

	ref := Ref{}
	if taskModel != nil {
		ref = Ref{AssistantID: taskModel.AssistantID, Model: taskModel.Model}
	}

	data, err := json.Marshal(ref)
	if err != nil {
		return nil, err
	}
	if err := c.rdb.Set(ctx, cacheKey, data, cacheTTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to write task model cache: %w", err)
	}

	if ref.IsZero() {
		return nil, nil
	}
	return &ref, nil
}
