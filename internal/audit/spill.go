package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"custodian/internal/domain"
	id "custodian/pkg/domain"
)

// DefaultSpillKey is the Redis list holding parked audit entries.
const DefaultSpillKey = "custodian:audit:spill"

// RedisSpill is a FIFO of audit entries in a Redis list. Entries that cannot
// be decoded are moved to "<key>:dead" instead of blocking the queue.
type RedisSpill struct {
	client redis.Cmdable
	key    string
}

func NewRedisSpill(client redis.Cmdable, key string) *RedisSpill {
	if key == "" {
		key = DefaultSpillKey
	}
	return &RedisSpill{client: client, key: key}
}

type spilledEntry struct {
	ID             id.AuditEntryID   `json:"id"`
	OrganizationID id.OrganizationID `json:"organization_id"`
	ActorID        id.ActorID        `json:"actor_id"`
	Action         string            `json:"action"`
	ResourceType   string            `json:"resource_type"`
	ResourceID     string            `json:"resource_id,omitempty"`
	CaseID         *id.CaseID        `json:"case_id,omitempty"`
	Details        map[string]any    `json:"details,omitempty"`
	IPAddress      string            `json:"ip_address,omitempty"`
	UserAgent      string            `json:"user_agent,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

func toSpilled(e domain.AuditEntry) spilledEntry {
	return spilledEntry{
		ID:             e.ID,
		OrganizationID: e.OrganizationID,
		ActorID:        e.ActorID,
		Action:         e.Action,
		ResourceType:   e.ResourceType,
		ResourceID:     e.ResourceID,
		CaseID:         e.CaseID,
		Details:        e.Details,
		IPAddress:      e.IPAddress,
		UserAgent:      e.UserAgent,
		CreatedAt:      e.CreatedAt,
	}
}

func (s spilledEntry) entry() domain.AuditEntry {
	return domain.AuditEntry{
		ID:             s.ID,
		OrganizationID: s.OrganizationID,
		ActorID:        s.ActorID,
		Action:         s.Action,
		ResourceType:   s.ResourceType,
		ResourceID:     s.ResourceID,
		CaseID:         s.CaseID,
		Details:        s.Details,
		IPAddress:      s.IPAddress,
		UserAgent:      s.UserAgent,
		CreatedAt:      s.CreatedAt,
	}
}

func (r *RedisSpill) Push(ctx context.Context, e domain.AuditEntry) error {
	payload, err := json.Marshal(toSpilled(e))
	if err != nil {
		return fmt.Errorf("marshal spilled audit entry: %w", err)
	}
	if err := r.client.RPush(ctx, r.key, payload).Err(); err != nil {
		return fmt.Errorf("spill audit entry: %w", err)
	}
	return nil
}

// Drain pops up to max entries in FIFO order and hands each to fn. When fn
// fails the entry goes back to the head of the list and Drain stops.
func (r *RedisSpill) Drain(ctx context.Context, max int, fn func(domain.AuditEntry) error) (int, error) {
	done := 0
	for done < max {
		raw, err := r.client.LPop(ctx, r.key).Result()
		if errors.Is(err, redis.Nil) {
			return done, nil
		}
		if err != nil {
			return done, fmt.Errorf("pop spilled audit entry: %w", err)
		}

		var spilled spilledEntry
		if err := json.Unmarshal([]byte(raw), &spilled); err != nil {
			if pushErr := r.client.RPush(ctx, r.key+":dead", raw).Err(); pushErr != nil {
				return done, fmt.Errorf("park undecodable audit entry: %w", pushErr)
			}
			continue
		}

		if err := fn(spilled.entry()); err != nil {
			if pushErr := r.client.LPush(ctx, r.key, raw).Err(); pushErr != nil {
				return done, errors.Join(err, fmt.Errorf("requeue audit entry: %w", pushErr))
			}
			return done, err
		}
		done++
	}
	return done, nil
}

// Len reports how many entries are waiting.
func (r *RedisSpill) Len(ctx context.Context) (int64, error) {
	n, err := r.client.LLen(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("spill length: %w", err)
	}
	return n, nil
}
