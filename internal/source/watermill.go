package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/bft-labs/udpship/internal/domain"
	"github.com/bft-labs/udpship/internal/ports"
)

// Subscribe consumes topic from sub and pushes each message payload as one
// JSON event. Messages are acked once pushed, including malformed ones and
// those whose batch failed to send. When the pusher is closed the message
// is nacked and Subscribe returns domain.ErrClosed.
func Subscribe(ctx context.Context, sub message.Subscriber, topic string, p Pusher, logger ports.Logger) (Stats, error) {
	var stats Stats

	messages, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return stats, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return stats, nil
			}

			if err := pushJSON(ctx, msg.Payload, p, logger, &stats); err != nil {
				msg.Nack()
				if errors.Is(err, domain.ErrClosed) {
					logger.Info("subscriber stopped, transport closed", ports.String("topic", topic))
				}
				return stats, err
			}
			msg.Ack()
		}
	}
}
