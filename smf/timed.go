package smf

import (
	"sort"

	"github.com/pkg/errors"
)

// TimedEvent is a message at an absolute tick.
type TimedEvent struct {
	Time    int64
	Message Message
}

// TimedEvents returns the events of t with delta-times accumulated.
func (t *TrackChunk) TimedEvents() []TimedEvent {
	out := make([]TimedEvent, len(t.Events))
	var now int64
	for i, ev := range t.Events {
		now += int64(ev.Delta)
		out[i] = TimedEvent{Time: now, Message: ev.Message}
	}
	return out
}

// EndTime returns the absolute time of the last event.
func (t *TrackChunk) EndTime() int64 {
	var now int64
	for _, ev := range t.Events {
		now += int64(ev.Delta)
	}
	return now
}

// NewTrackChunk builds a track from timed events. Events are stable-sorted
// by time. End-Of-Track events are stripped and a single one is placed at
// the later of the last event and the latest stripped End-Of-Track.
func NewTrackChunk(events []TimedEvent) (*TrackChunk, error) {
	sorted := make([]TimedEvent, 0, len(events))
	var end int64
	for _, ev := range events {
		if ev.Time < 0 {
			return nil, errors.Errorf("smf: event %s at negative time %d", ev.Message, ev.Time)
		}
		if isEndOfTrack(ev.Message) {
			if ev.Time > end {
				end = ev.Time
			}
			continue
		}
		sorted = append(sorted, ev)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	t := &TrackChunk{Events: make([]Event, 0, len(sorted)+1)}
	var prev int64
	for _, ev := range sorted {
		delta := ev.Time - prev
		if delta > MaxVarLen {
			return nil, errors.Wrapf(ErrVarLenOverflow, "delta-time %d", delta)
		}
		t.Events = append(t.Events, Event{Delta: uint32(delta), Message: ev.Message})
		prev = ev.Time
	}
	if end < prev {
		end = prev
	}
	if end-prev > MaxVarLen {
		return nil, errors.Wrapf(ErrVarLenOverflow, "delta-time %d", end-prev)
	}
	t.Events = append(t.Events, Event{Delta: uint32(end - prev), Message: EndOfTrack{}})
	return t, nil
}
