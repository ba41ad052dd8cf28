package realtime

import "context"

// Sink receives broadcasts.
type Sink interface {
	Broadcast(ctx context.Context, channel string, payload interface{})
}

// Fanout forwards each broadcast to every sink in order.
type Fanout []Sink

func (f Fanout) Broadcast(ctx context.Context, channel string, payload interface{}) {
	for _, s := range f {
		s.Broadcast(ctx, channel, payload)
	}
}
