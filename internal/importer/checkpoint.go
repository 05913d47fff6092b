package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	checkpointKeyPrefix = "catalog_import:checkpoint:"
	checkpointTTL       = 24 * time.Hour
)

// Checkpointer remembers which rows of a job are finished so a rerun of the
// same job skips them.
type Checkpointer interface {
	Load(ctx context.Context, jobID string) (map[int]Outcome, error)
	Mark(ctx context.Context, jobID string, row int, outcome Outcome) error
	Clear(ctx context.Context, jobID string) error
}

// OutcomeKind classifies a finished row
type OutcomeKind string

const (
	OutcomeCreated   OutcomeKind = "created"
	OutcomeDuplicate OutcomeKind = "duplicate"
	OutcomeFailed    OutcomeKind = "error"
)

// Outcome is the final state of one row. Detail is the product name for
// duplicates and the row message for failures. Warnings holds the row
// messages for fields that were ignored while the row was normalized.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	Detail   string      `json:"detail,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

func (o Outcome) encode() (string, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeOutcome also accepts the older "kind" and "kind:detail" values
// written before outcomes were stored as JSON.
func decodeOutcome(s string) Outcome {
	if strings.HasPrefix(s, "{") {
		var o Outcome
		if err := json.Unmarshal([]byte(s), &o); err == nil {
			return o
		}
	}
	kind, detail, _ := strings.Cut(s, ":")
	return Outcome{Kind: OutcomeKind(kind), Detail: detail}
}

// RedisCheckpointer keeps one hash per job, field = row number
type RedisCheckpointer struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCheckpointer(client *redis.Client) *RedisCheckpointer {
	return &RedisCheckpointer{client: client, ttl: checkpointTTL}
}

func checkpointKey(jobID string) string {
	return checkpointKeyPrefix + jobID
}

func (c *RedisCheckpointer) Load(ctx context.Context, jobID string) (map[int]Outcome, error) {
	fields, err := c.client.HGetAll(ctx, checkpointKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoints: %w", err)
	}

	done := make(map[int]Outcome, len(fields))
	for field, value := range fields {
		row, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		done[row] = decodeOutcome(value)
	}
	return done, nil
}

func (c *RedisCheckpointer) Mark(ctx context.Context, jobID string, row int, outcome Outcome) error {
	value, err := outcome.encode()
	if err != nil {
		return fmt.Errorf("failed to encode row %d: %w", row, err)
	}

	key := checkpointKey(jobID)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(row), value)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark row %d: %w", row, err)
	}
	return nil
}

func (c *RedisCheckpointer) Clear(ctx context.Context, jobID string) error {
	return c.client.Del(ctx, checkpointKey(jobID)).Err()
}
