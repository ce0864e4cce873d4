// Package kafka adapts a Kafka topic into the live hazard event feed.
package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/accessible-nav/route-engine/internal/config"
	"github.com/accessible-nav/route-engine/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Feed consumes hazard events from the configured topic. It implements
// session.HazardFeed: each Subscribe runs its own reader so a route set owns
// its subscription exclusively.
type Feed struct {
	brokers []string
	topic   string
	groupID string
	logger  *slog.Logger
}

// NewFeed creates a hazard feed over the configured brokers and topic.
func NewFeed(cfg *config.Config, logger *slog.Logger) *Feed {
	return &Feed{
		brokers: cfg.KafkaBrokers,
		topic:   cfg.KafkaHazardTopic,
		groupID: cfg.KafkaGroupID,
		logger:  logger,
	}
}

// Subscribe streams hazard events targeting the given route IDs. Messages for
// other routes, and messages that do not decode, are skipped. The returned
// channel closes when ctx is cancelled.
func (f *Feed) Subscribe(ctx context.Context, routeIDs []string) (<-chan domain.HazardEvent, error) {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  f.brokers,
		Topic:    f.topic,
		GroupID:  f.groupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})

	wanted := make(map[string]struct{}, len(routeIDs))
	for _, id := range routeIDs {
		wanted[id] = struct{}{}
	}

	ch := make(chan domain.HazardEvent)
	go func() {
		defer close(ch)
		defer reader.Close()
		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					f.logger.Warn("hazard feed read failed", "error", err)
				}
				return
			}
			ev, ok := decodeEvent(msg)
			if !ok {
				f.logger.Warn("undecodable hazard message skipped",
					"topic", msg.Topic, "offset", msg.Offset)
				continue
			}
			if _, match := wanted[ev.TargetRouteID]; !match {
				continue
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// decodeEvent unmarshals a hazard message. A valid event names a target
// route.
func decodeEvent(msg kafkago.Message) (domain.HazardEvent, bool) {
	var ev domain.HazardEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return domain.HazardEvent{}, false
	}
	if ev.TargetRouteID == "" {
		return domain.HazardEvent{}, false
	}
	return ev, true
}
