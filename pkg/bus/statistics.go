package bus

import "sync/atomic"

type statistics struct {
	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

func (s *statistics) snapshot() Statistics {
	return Statistics{
		Published: s.published.Load(),
		Delivered: s.delivered.Load(),
		Dropped:   s.dropped.Load(),
	}
}

// Statistics is a point-in-time snapshot of the bus delivery counters.
// Delivered counts per-subscriber deliveries, so one publish to N
// subscribers adds N.
type Statistics struct {
	Published uint64
	Delivered uint64
	Dropped   uint64
}
