// Package events emits best-effort webhook-trigger events onto a Redis
// Stream after a wallet is scored (spec §4.1 step 12). Webhook delivery
// itself is an external, out-of-scope collaborator; this package only
// owns the publish call, grounded on the teacher's
// queue.RedisStreamClient.Publish.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/walletscore/reputation-engine/configs"
)

// ScoreComputedEvent is published after a scoring pass has persisted its
// score, so downstream webhook delivery can react; failed passes publish
// nothing.
// EventID lets a consumer (webhook delivery, an external collaborator)
// de-duplicate redelivered stream entries, grounded on the teacher's
// uuid.UUID-keyed audit/domain records (internal/models/models.go).
type ScoreComputedEvent struct {
	EventID      uuid.UUID `json:"event_id"`
	Wallet       string    `json:"wallet"`
	Score        int       `json:"score"`
	Tier         string    `json:"tier"`
	SybilFlag    bool      `json:"sybil_flag"`
	ComputedAt   time.Time `json:"computed_at"`
	ModelVersion string    `json:"model_version"`
}

// Publisher wraps a Redis Streams client for fire-and-forget event
// publication. A nil Publisher (or a publish failure) never fails scoring.
type Publisher struct {
	client     *redis.Client
	streamName string
}

func NewPublisher(cfg configs.RedisConfig) (*Publisher, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	return &Publisher{client: client, streamName: cfg.EventsKey}, nil
}

// PublishScoreComputed best-effort publishes the event; errors are logged
// and swallowed, never propagated to the caller (spec §4.1 step 12).
func (p *Publisher) PublishScoreComputed(ctx context.Context, event ScoreComputedEvent) {
	if p == nil || p.client == nil {
		return
	}
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Str("wallet", event.Wallet).Msg("events: failed to marshal score event")
		return
	}

	_, err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamName,
		Values: map[string]interface{}{"data": string(payload)},
	}).Result()
	if err != nil {
		log.Warn().Err(err).Str("wallet", event.Wallet).Msg("events: failed to publish score event")
	}
}

func (p *Publisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
