package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go-presence/internal/events"
	"go-presence/internal/realtime"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is satisfied by *kafkago.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

var errUndecodable = errors.New("undecodable attendance event")

// The live feed is best-effort: after the last attempt the message is
// committed anyway so later offsets are not held back.
var (
	maxPublishAttempts = 3
	publishBackoff     = 200 * time.Millisecond
)

func ConsumeAttendancePunched(
	ctx context.Context,
	reader MessageReader,
	publisher realtime.Publisher,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.attendance_punched")
	log.Info("attendance punched consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("attendance punched consumer stopped")
				return
			}
			log.Error("fetch attendance punched message failed", zap.Error(err))
			continue
		}

		if err := handleWithRetry(ctx, msg, publisher, log); err != nil {
			if errors.Is(err, errUndecodable) {
				log.Error("decode attendance punched event failed", zap.Error(err))
			} else {
				log.Error("publish live attendance event failed",
					zap.ByteString("key", msg.Key),
					zap.Int("attempts", maxPublishAttempts),
					zap.Error(err),
				)
			}
			if ctx.Err() != nil {
				log.Info("attendance punched consumer stopped")
				return
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit attendance punched message failed", zap.Error(err))
		}
	}
}

func handleWithRetry(ctx context.Context, msg kafkago.Message, publisher realtime.Publisher, log *zap.Logger) error {
	var err error
	for attempt := 1; attempt <= maxPublishAttempts; attempt++ {
		err = handleAttendancePunched(ctx, msg, publisher)
		if err == nil || errors.Is(err, errUndecodable) || attempt == maxPublishAttempts {
			return err
		}
		log.Warn("retrying live attendance publish",
			zap.ByteString("key", msg.Key),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		timer := time.NewTimer(publishBackoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

func handleAttendancePunched(ctx context.Context, msg kafkago.Message, publisher realtime.Publisher) error {
	var event events.AttendancePunchedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return errors.Join(errUndecodable, err)
	}
	if event.EventType != "" && event.EventType != events.AttendancePunchedEventType {
		return errors.Join(errUndecodable, errors.New("unexpected event type "+event.EventType))
	}
	return publisher.PublishPunched(ctx, event)
}
