package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultStream = "matatu:notifications"

// StreamNotifier appends events to a Redis stream for an external mailer
// to consume.
type StreamNotifier struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

func NewStreamNotifier(client redis.Cmdable, stream string) *StreamNotifier {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamNotifier{client: client, stream: stream, maxLen: 10000}
}

func (s *StreamNotifier) Notify(ctx context.Context, evt Event) error {
	if evt.Recipient == "" {
		return ErrNoRecipient
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event_id": evt.ID,
			"kind":     string(evt.Kind),
			"to":       evt.Recipient,
			"payload":  body,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
