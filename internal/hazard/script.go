package hazard

import (
	"context"
	"time"

	"github.com/accessible-nav/route-engine/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Script maps the subscribed route IDs to the events the feed will deliver,
// in order.
type Script func(routeIDs []string) []domain.HazardEvent

// ScriptedFeed replays a fixed event script against each subscription,
// spacing events by a configurable delay. It stands in for a live hazard
// channel when no broker is configured.
type ScriptedFeed struct {
	clock  clockwork.Clock
	delay  time.Duration
	script Script
}

// NewScriptedFeed creates a feed that delivers script output one event per
// delay interval.
func NewScriptedFeed(clock clockwork.Clock, delay time.Duration, script Script) *ScriptedFeed {
	return &ScriptedFeed{clock: clock, delay: delay, script: script}
}

// DemoScript mirrors the canned live event of the demo UI: a construction
// barrier appears on the last-ranked route a few seconds after scoring.
func DemoScript(routeIDs []string) []domain.HazardEvent {
	if len(routeIDs) == 0 {
		return nil
	}
	return []domain.HazardEvent{{
		TargetRouteID: routeIDs[len(routeIDs)-1],
		SeverityDelta: -25,
		HazardLabel:   "Blocked Sidewalk",
		Message:       "Live Cam: Construction barrier detected on your route.",
	}}
}

// Subscribe starts replaying the script for this route set. The channel
// closes when the script is exhausted or the context is cancelled.
func (f *ScriptedFeed) Subscribe(ctx context.Context, routeIDs []string) (<-chan domain.HazardEvent, error) {
	events := f.script(routeIDs)
	ch := make(chan domain.HazardEvent)

	go func() {
		defer close(ch)
		for _, ev := range events {
			select {
			case <-ctx.Done():
				return
			case <-f.clock.After(f.delay):
			}
			select {
			case <-ctx.Done():
				return
			case ch <- ev:
			}
		}
	}()

	return ch, nil
}
