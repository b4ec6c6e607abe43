// Package progress carries (percent, message) updates from a report
// generation to whoever is watching it.
package progress

import (
	"context"
	"sync"
)

// DoneMessage is the message of the final update.
const DoneMessage = "Готово"

// Update is a single progress record.
type Update struct {
	Percent int    `json:"progress"`
	Message string `json:"message"`
}

// Observer receives progress updates. Calls happen synchronously on the
// generating goroutine.
type Observer interface {
	Report(percent int, message string)
}

// Func adapts a function to Observer.
type Func func(percent int, message string)

func (f Func) Report(percent int, message string) {
	f(percent, message)
}

type nop struct{}

func (nop) Report(int, string) {}

// Nop discards updates.
func Nop() Observer {
	return nop{}
}

// Tracker enforces the update contract on top of another observer: percent
// never decreases and stays within [0, 100], and Done always ends with
// (100, DoneMessage).
type Tracker struct {
	mu   sync.Mutex
	next Observer
	last int
	done bool
}

// NewTracker wraps obs; a nil obs discards updates.
func NewTracker(obs Observer) *Tracker {
	if obs == nil {
		obs = Nop()
	}
	return &Tracker{next: obs}
}

// Report forwards an update, raising percent to the last value seen.
// Updates after Done are dropped.
func (t *Tracker) Report(percent int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return
	}
	if percent < t.last {
		percent = t.last
	}
	if percent > 100 {
		percent = 100
	}
	t.last = percent
	t.next.Report(percent, message)
}

// Step reports the fraction step/total of the span [from, to].
func (t *Tracker) Step(from, to, step, total int, message string) {
	if total <= 0 {
		t.Report(from, message)
		return
	}
	t.Report(from+(to-from)*step/total, message)
}

// Done sends the final (100, DoneMessage) update once.
func (t *Tracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return
	}
	t.done = true
	t.last = 100
	t.next.Report(100, DoneMessage)
}

// Last returns the last percent forwarded.
func (t *Tracker) Last() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Recorder keeps every update it receives.
type Recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *Recorder) Report(percent int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, Update{Percent: percent, Message: message})
}

// Updates returns a copy of the recorded updates.
func (r *Recorder) Updates() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Update, len(r.updates))
	copy(out, r.updates)
	return out
}

// Channel writes updates to a channel. Report blocks until the consumer
// receives, so no update is dropped while the bound context is live.
type Channel struct {
	C    chan Update
	done <-chan struct{}
}

// NewChannel creates a channel observer with the given buffer size.
func NewChannel(buffer int) *Channel {
	return &Channel{C: make(chan Update, buffer)}
}

// NewChannelContext is NewChannel whose Report gives up once ctx is done,
// so a consumer that went away never blocks the producer.
func NewChannelContext(ctx context.Context, buffer int) *Channel {
	return &Channel{C: make(chan Update, buffer), done: ctx.Done()}
}

func (c *Channel) Report(percent int, message string) {
	select {
	case c.C <- Update{Percent: percent, Message: message}:
	case <-c.done:
	}
}

// Close closes the channel; call it once the generation has returned.
func (c *Channel) Close() {
	close(c.C)
}
