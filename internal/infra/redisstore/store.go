// Package redisstore implements the job repository on a plain key-value
// store: one JSON document per job under a namespaced key, with a Lua
// compare-and-swap on the version field standing in for the relational
// conditional update.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/titledoctor/pipeline-service/internal/domain/entity"
	"github.com/titledoctor/pipeline-service/internal/domain/port"
)

const (
	keyPrefix = "titledoctor:job:"
	activeSet = "titledoctor:jobs:active"
)

// casScript swaps the stored document only if its version still matches
// the one the caller loaded. Returns -1 when the key is gone, -2 on a
// version mismatch.
var casScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then return -1 end
local obj = cjson.decode(cur)
if obj.version ~= tonumber(ARGV[2]) then return -2 end
redis.call('SET', KEYS[1], ARGV[1])
if ARGV[3] == '1' then
	redis.call('ZREM', KEYS[2], ARGV[4])
else
	redis.call('ZADD', KEYS[2], ARGV[5], ARGV[4])
end
return 1
`)

type JobStore struct {
	client *redis.Client
}

func NewJobStore(client *redis.Client) *JobStore {
	return &JobStore{client: client}
}

func jobKey(id uuid.UUID) string {
	return keyPrefix + id.String()
}

func (s *JobStore) Create(ctx context.Context, job *entity.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	ok, err := s.client.SetNX(ctx, jobKey(job.ID), doc, 0).Result()
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	if !ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}

	err = s.client.ZAdd(ctx, activeSet, redis.Z{
		Score:  float64(job.UpdatedAt.Unix()),
		Member: job.ID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("index job: %w", err)
	}
	return nil
}

func (s *JobStore) Update(ctx context.Context, job *entity.Job) error {
	loadedVersion := job.Version
	job.Version++
	doc, err := json.Marshal(job)
	if err != nil {
		job.Version = loadedVersion
		return fmt.Errorf("encode job: %w", err)
	}

	terminal := "0"
	if job.Terminal() {
		terminal = "1"
	}

	res, err := casScript.Run(ctx, s.client,
		[]string{jobKey(job.ID), activeSet},
		doc,
		strconv.FormatInt(loadedVersion, 10),
		terminal,
		job.ID.String(),
		strconv.FormatInt(job.UpdatedAt.Unix(), 10),
	).Int()
	if err != nil {
		job.Version = loadedVersion
		return fmt.Errorf("update job: %w", err)
	}

	switch res {
	case 1:
		return nil
	case -1:
		job.Version = loadedVersion
		return port.ErrJobNotFound
	default:
		job.Version = loadedVersion
		return port.ErrVersionConflict
	}
}

func (s *JobStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	doc, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, port.ErrJobNotFound
		}
		return nil, fmt.Errorf("find job by id: %w", err)
	}

	job := &entity.Job{}
	if err := json.Unmarshal(doc, job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}

func (s *JobStore) ListStale(ctx context.Context, cutoff time.Time) ([]*entity.Job, error) {
	ids, err := s.client.ZRangeByScore(ctx, activeSet, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list stale jobs: %w", err)
	}

	var jobs []*entity.Job
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		job, err := s.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, port.ErrJobNotFound) {
				// Index entry outlived its document; drop it.
				s.client.ZRem(ctx, activeSet, raw)
				continue
			}
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
