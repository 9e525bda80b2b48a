package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"stock-advisor/internal/logger"
)

// Bus is an in-process publish/subscribe channel for run events. Publishing
// never blocks on slow subscribers; each subscriber gets its own buffered
// output channel.
type Bus struct {
	pubsub *gochannel.GoChannel
}

func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, watermill.NopLogger{}),
	}
}

// Publish marshals the event and sends it on the run topic.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(typeMetadataKey, string(event.EventType()))
	return b.pubsub.Publish(Topic, msg)
}

// Handler consumes one decoded event. Returning an error nacks the message
// so the bus redelivers it.
type Handler func(ctx context.Context, event Event) error

// Subscribe dispatches decoded bus messages to handler on a background
// goroutine until ctx is canceled or the bus closes.
func (b *Bus) Subscribe(ctx context.Context, handler Handler) error {
	messages, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}
	go func() {
		for msg := range messages {
			event, err := decode(msg)
			if err != nil {
				// Undecodable means a publisher bug; drop instead of
				// redelivering forever.
				logger.Warn(ctx, "Dropping undecodable run event", "error", err.Error())
				msg.Ack()
				continue
			}
			if err := handler(ctx, event); err != nil {
				logger.Warn(ctx, "Run event handler failed",
					"event", string(event.EventType()), "error", err.Error())
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}()
	return nil
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

func decode(msg *message.Message) (Event, error) {
	t := Type(msg.Metadata.Get(typeMetadataKey))
	var event Event
	switch t {
	case TypeRunStarted:
		event = &RunStarted{}
	case TypeStageCompleted:
		event = &StageCompleted{}
	case TypeRunCompleted:
		event = &RunCompleted{}
	case TypeRunFailed:
		event = &RunFailed{}
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
	if err := json.Unmarshal(msg.Payload, event); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", t, err)
	}
	return event, nil
}
