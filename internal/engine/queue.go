package engine

import "eventbacktester/types"

// EventQueue is the FIFO shared by every component of a run. Producers only
// see it as an EventSink; the backtest driver is the single consumer.
type EventQueue struct {
	events []types.Event
	head   int
}

func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

func (q *EventQueue) Put(e types.Event) {
	q.events = append(q.events, e)
}

// Get pops the oldest event. ok is false when the queue is empty.
func (q *EventQueue) Get() (types.Event, bool) {
	if q.head >= len(q.events) {
		return nil, false
	}
	e := q.events[q.head]
	q.events[q.head] = nil
	q.head++
	// Reuse the backing array once everything has been consumed.
	if q.head == len(q.events) {
		q.events = q.events[:0]
		q.head = 0
	}
	return e, true
}

func (q *EventQueue) Len() int {
	return len(q.events) - q.head
}

func (q *EventQueue) Empty() bool {
	return q.Len() == 0
}
