// Package dispatch sends answers and claim approvals to the marketplace at
// most once per identifier for the lifetime of the process.
//
// The handled set is the only duplicate protection: every tick re-fetches
// the same pending items, and without it an already-answered question would
// be re-submitted on the next pass. The set is in-memory by design; a
// restart can cause one duplicate send.
package dispatch

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sellerdesk/internal/knowledge"
	"sellerdesk/internal/marketplace"
)

// Status is the outcome class of a dispatch attempt.
type Status string

const (
	StatusSent           Status = "sent"
	StatusAlreadyHandled Status = "already_handled"
	StatusSkipped        Status = "skipped"
	StatusFailed         Status = "failed"
)

// Outcome is the result of one dispatch attempt. Err is set only for
// StatusFailed and carries the transport failure verbatim.
type Outcome struct {
	Status Status
	Err    error
}

// AnswerSender submits an answer for one seller account.
type AnswerSender interface {
	SendAnswer(ctx context.Context, questionID int64, text string) error
}

// ClaimApprover approves claim line items for one seller account.
type ClaimApprover interface {
	ApproveClaimItems(ctx context.Context, claimID string, itemIDs []string) error
}

// Recorder persists dispatched answers for the audit trail.
type Recorder interface {
	SaveAnswerRecord(r knowledge.AnswerRecord) error
}

// Tracker is the dispatcher plus its handled set. Safe for concurrent use;
// the tick loop, the HTTP API, and the chat relay all dispatch through the
// same Tracker.
type Tracker struct {
	recorder Recorder
	now      func() time.Time
	log      zerolog.Logger

	mu      sync.Mutex
	handled map[string]bool
}

// New creates a Tracker. recorder may be nil to skip audit records; a nil
// clock means time.Now.
func New(recorder Recorder, now func() time.Time, log zerolog.Logger) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		handled:  make(map[string]bool),
		recorder: recorder,
		now:      now,
		log:      log,
	}
}

func questionKey(store string, questionID int64) string {
	return "q/" + store + "/" + strconv.FormatInt(questionID, 10)
}

func claimKey(store, claimID string) string {
	return "c/" + store + "/" + claimID
}

// HandledQuestion reports whether an answer for this question was already
// dispatched in this process lifetime.
func (t *Tracker) HandledQuestion(store string, questionID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handled[questionKey(store, questionID)]
}

// claim marks a key handled if it was not, holding the claim while the send
// is in flight so a concurrent dispatch for the same key sees it as handled.
func (t *Tracker) claim(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handled[key] {
		return false
	}
	t.handled[key] = true
	return true
}

// release undoes a claim after a failed send so the next tick retries it.
func (t *Tracker) release(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.handled, key)
}

// DispatchAnswer sends answer text for a question unless it was already
// handled. A transport failure leaves the identifier unhandled, so the next
// tick retries it naturally.
func (t *Tracker) DispatchAnswer(ctx context.Context, sender AnswerSender, store string, questionID int64, text, origin string) Outcome {
	key := questionKey(store, questionID)
	if !t.claim(key) {
		return Outcome{Status: StatusAlreadyHandled}
	}

	if err := sender.SendAnswer(ctx, questionID, text); err != nil {
		t.release(key)
		return Outcome{Status: StatusFailed, Err: err}
	}

	if t.recorder != nil {
		rec := knowledge.AnswerRecord{
			ID:         uuid.New().String(),
			Store:      store,
			QuestionID: questionID,
			Origin:     origin,
			Body:       text,
			CreatedAt:  t.now(),
		}
		if err := t.recorder.SaveAnswerRecord(rec); err != nil {
			// The answer is already out; a lost audit row is not a failure.
			t.log.Warn().Err(err).Str("store", store).Int64("question_id", questionID).
				Msg("failed to record dispatched answer")
		}
	}

	t.log.Info().Str("store", store).Int64("question_id", questionID).Str("origin", origin).
		Msg("answer dispatched")
	return Outcome{Status: StatusSent}
}

// ApproveClaim approves all line items of a claim unless it was already
// handled. Claims with no line items are skipped without being marked.
func (t *Tracker) ApproveClaim(ctx context.Context, approver ClaimApprover, store string, claim marketplace.Claim) Outcome {
	itemIDs := claim.LineItemIDs()
	if len(itemIDs) == 0 {
		return Outcome{Status: StatusSkipped}
	}

	key := claimKey(store, claim.ID)
	if !t.claim(key) {
		return Outcome{Status: StatusAlreadyHandled}
	}

	if err := approver.ApproveClaimItems(ctx, claim.ID, itemIDs); err != nil {
		t.release(key)
		return Outcome{Status: StatusFailed, Err: err}
	}

	t.log.Info().Str("store", store).Str("claim_id", claim.ID).Int("items", len(itemIDs)).
		Msg("claim approved")
	return Outcome{Status: StatusSent}
}

