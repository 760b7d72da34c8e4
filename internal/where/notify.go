package where

import (
	"time"

	"github.com/couchcryptid/where/internal/domain"
)

// Change announces a new observation for Source, or its removal when
// Observation is nil.
type Change struct {
	Source      domain.SourceKind
	Observation *Observation
	At          time.Time
}

// Removal reports whether the change cleared the source's slot.
func (c Change) Removal() bool { return c.Observation == nil }

// Subscribe registers a change stream with the given buffer size. Changes
// that do not fit in the buffer are dropped, never blocking the probes. The
// returned function unsubscribes and closes the channel; it is safe to call
// more than once.
func (w *Where) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Change, buffer)

	w.subsMu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch
	w.subsMu.Unlock()

	return ch, func() {
		w.subsMu.Lock()
		defer w.subsMu.Unlock()
		if _, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(ch)
		}
	}
}

func (w *Where) publish(c Change) {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- c:
		default:
			w.metrics.SubscriberDrops.Inc()
		}
	}
}

// Event converts the change to its published form.
func (c Change) Event() domain.ChangeEvent {
	if c.Observation == nil {
		return domain.ChangeEvent{Source: c.Source, Change: domain.ChangeRemoval, ObservedAt: c.At}
	}
	o := c.Observation
	return domain.ChangeEvent{
		Source:     c.Source,
		Change:     domain.ChangeUpdate,
		RegionCode: o.regionCode,
		RegionName: o.regionName,
		Coordinate: o.coordinateOrNil(),
		ObservedAt: o.timestamp,
	}
}
