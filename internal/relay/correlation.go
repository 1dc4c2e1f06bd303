package relay

import "sync"

// Ref ties a sent notification back to the question it describes.
type Ref struct {
	Store      string
	QuestionID int64
}

// Correlation maps notification message ids to question references. It is
// populated when a notification is sent and consulted when an operator
// replies, replacing any parsing of the notification text itself. In-memory
// only; replies to notifications sent before a restart cannot be resolved.
type Correlation struct {
	mu sync.Mutex
	m  map[int64]Ref
}

// NewCorrelation creates an empty correlation map.
func NewCorrelation() *Correlation {
	return &Correlation{m: make(map[int64]Ref)}
}

// Record associates a sent message id with a question.
func (c *Correlation) Record(messageID int64, ref Ref) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[messageID] = ref
}

// Lookup resolves a message id to its question, if known.
func (c *Correlation) Lookup(messageID int64) (Ref, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref, ok := c.m[messageID]
	return ref, ok
}
