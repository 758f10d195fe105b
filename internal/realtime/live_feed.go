package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go-presence/internal/events"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "attendance:live:"

func ChannelFor(companyID string) string {
	return channelPrefix + companyID
}

type Publisher interface {
	PublishPunched(ctx context.Context, event events.AttendancePunchedEvent) error
}

type redisPublisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisPublisher(rdb *redis.Client, logger ...*zap.Logger) Publisher {
	l := zap.L().Named("realtime.publisher")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("realtime.publisher")
	}
	return &redisPublisher{rdb: rdb, logger: l}
}

func (p *redisPublisher) PublishPunched(ctx context.Context, event events.AttendancePunchedEvent) error {
	if event.CompanyID == "" {
		return errors.New("live feed: company id is required")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("live feed: encode event: %w", err)
	}

	receivers, err := p.rdb.Publish(ctx, ChannelFor(event.CompanyID), payload).Result()
	if err != nil {
		return fmt.Errorf("live feed: publish: %w", err)
	}

	p.logger.Debug("live attendance event published",
		zap.String("event_id", event.EventID),
		zap.String("company_id", event.CompanyID),
		zap.Int64("receivers", receivers),
	)
	return nil
}
