package controller

import (
	"time"

	"github.com/raysh454/scrapeform/internal/logging"
)

type EventType string

const (
	EventState     EventType = "state"
	EventCopyLabel EventType = "copy_label"
	EventFormat    EventType = "format"
)

// Event announces a change visible on the page.
type Event struct {
	Type         EventType `json:"type"`
	State        State     `json:"state"`
	Loading      bool      `json:"loading"`
	SubmissionID string    `json:"submission_id,omitempty"`
	CopyLabel    string    `json:"copy_label,omitempty"`
	Format       string    `json:"format,omitempty"`
	Error        string    `json:"error,omitempty"`
	Time         time.Time `json:"time"`
}

const subscriberBuffer = 32

// Subscribe returns a channel of events and a func that ends the
// subscription. A subscriber that falls behind misses events; the
// controller never blocks on it.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// emitLocked fans ev out to subscribers. c.mu must be held.
func (c *Controller) emitLocked(typ EventType) {
	ev := Event{
		Type:         typ,
		State:        c.state,
		Loading:      c.loading,
		SubmissionID: c.submissionID,
		CopyLabel:    c.copyLabelLocked(),
		Format:       string(c.format),
		Time:         c.now(),
	}
	if c.display.isError {
		ev.Error = c.display.text
	}
	for id, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			c.logger.Debug("dropping event for slow subscriber",
				logging.Field{Key: "subscriber", Value: id},
				logging.Field{Key: "type", Value: string(typ)})
		}
	}
}
