// Package conversation tracks which prompt, if any, each conversation is
// currently answering.
package conversation

import (
	"sync"
	"time"
)

// State is the step a conversation is on.
type State int

const (
	// Idle means no prompt is pending.
	Idle State = iota
	// AwaitingResearchName means the next input names a new research.
	AwaitingResearchName
	// AwaitingCloseTarget means the next input names the research to close.
	AwaitingCloseTarget
	// AwaitingPrintTarget means the next input names the research to print.
	AwaitingPrintTarget
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingResearchName:
		return "awaiting_research_name"
	case AwaitingCloseTarget:
		return "awaiting_close_target"
	case AwaitingPrintTarget:
		return "awaiting_print_target"
	default:
		return "unknown"
	}
}

// Awaiting reports whether the state expects an answer.
func (s State) Awaiting() bool {
	return s != Idle
}

type entry struct {
	state State
	since time.Time
}

// Tracker holds the state of every conversation. Idle conversations are not
// stored.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the current state of a conversation.
func (t *Tracker) Get(conversationID string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[conversationID].state
}

// Set moves a conversation to a new state.
func (t *Tracker) Set(conversationID string, s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s == Idle {
		delete(t.entries, conversationID)
		return
	}
	t.entries[conversationID] = entry{state: s, since: t.now()}
}

// Reset returns a conversation to Idle.
func (t *Tracker) Reset(conversationID string) {
	t.Set(conversationID, Idle)
}

// Consume returns the pending state and resets the conversation to Idle in
// one step, so a prompt is answered at most once.
func (t *Tracker) Consume(conversationID string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entries[conversationID]
	delete(t.entries, conversationID)
	return e.state
}

// Len returns the number of conversations with a pending prompt.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Sweep drops prompts that have been pending longer than maxAge and returns
// how many were dropped.
func (t *Tracker) Sweep(maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-maxAge)
	dropped := 0
	for id, e := range t.entries {
		if e.since.Before(cutoff) {
			delete(t.entries, id)
			dropped++
		}
	}
	return dropped
}
