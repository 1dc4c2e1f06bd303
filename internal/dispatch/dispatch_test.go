package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sellerdesk/internal/knowledge"
	"sellerdesk/internal/marketplace"
)

type fakeSender struct {
	calls int
	err   error
	last  string
}

func (f *fakeSender) SendAnswer(ctx context.Context, questionID int64, text string) error {
	f.calls++
	f.last = text
	return f.err
}

type fakeApprover struct {
	calls int
	err   error
}

func (f *fakeApprover) ApproveClaimItems(ctx context.Context, claimID string, itemIDs []string) error {
	f.calls++
	return f.err
}

type fakeRecorder struct {
	records []knowledge.AnswerRecord
	err     error
}

func (f *fakeRecorder) SaveAnswerRecord(r knowledge.AnswerRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, r)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestDispatchAnswer_Idempotent(t *testing.T) {
	sender := &fakeSender{}
	rec := &fakeRecorder{}
	tr := New(rec, fixedNow, zerolog.Nop())

	out := tr.DispatchAnswer(context.Background(), sender, "main", 1001, "hello", "auto")
	if out.Status != StatusSent {
		t.Fatalf("first dispatch status = %q, want sent", out.Status)
	}

	out = tr.DispatchAnswer(context.Background(), sender, "main", 1001, "hello again", "auto")
	if out.Status != StatusAlreadyHandled {
		t.Fatalf("second dispatch status = %q, want already_handled", out.Status)
	}
	if sender.calls != 1 {
		t.Errorf("network sends = %d, want exactly 1", sender.calls)
	}
	if len(rec.records) != 1 {
		t.Errorf("audit records = %d, want 1", len(rec.records))
	}
	if rec.records[0].Origin != "auto" || rec.records[0].QuestionID != 1001 {
		t.Errorf("record = %+v", rec.records[0])
	}
}

func TestDispatchAnswer_FailureNotMarked(t *testing.T) {
	sender := &fakeSender{err: errors.New("unexpected status 503: upstream down")}
	tr := New(nil, fixedNow, zerolog.Nop())

	out := tr.DispatchAnswer(context.Background(), sender, "main", 1001, "hello", "auto")
	if out.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", out.Status)
	}
	if out.Err == nil || out.Err.Error() != "unexpected status 503: upstream down" {
		t.Errorf("Err = %v, want the transport error verbatim", out.Err)
	}
	if tr.HandledQuestion("main", 1001) {
		t.Error("failed dispatch marked the question handled")
	}

	// Next tick retries and succeeds.
	sender.err = nil
	out = tr.DispatchAnswer(context.Background(), sender, "main", 1001, "hello", "auto")
	if out.Status != StatusSent {
		t.Fatalf("retry status = %q, want sent", out.Status)
	}
	if !tr.HandledQuestion("main", 1001) {
		t.Error("successful dispatch did not mark the question handled")
	}
}

func TestDispatchAnswer_StoreScoped(t *testing.T) {
	sender := &fakeSender{}
	tr := New(nil, fixedNow, zerolog.Nop())

	tr.DispatchAnswer(context.Background(), sender, "a", 1001, "x", "auto")
	out := tr.DispatchAnswer(context.Background(), sender, "b", 1001, "y", "auto")
	if out.Status != StatusSent {
		t.Fatalf("same id in another store: status = %q, want sent", out.Status)
	}
	if sender.calls != 2 {
		t.Errorf("sends = %d, want 2", sender.calls)
	}
}

func TestDispatchAnswer_RecorderFailureIsNotFatal(t *testing.T) {
	sender := &fakeSender{}
	tr := New(&fakeRecorder{err: errors.New("disk full")}, fixedNow, zerolog.Nop())

	out := tr.DispatchAnswer(context.Background(), sender, "main", 1001, "hello", "manual")
	if out.Status != StatusSent {
		t.Fatalf("status = %q, want sent despite audit failure", out.Status)
	}
	if !tr.HandledQuestion("main", 1001) {
		t.Error("question not marked handled")
	}
}

func TestApproveClaim(t *testing.T) {
	approver := &fakeApprover{}
	tr := New(nil, fixedNow, zerolog.Nop())
	claim := marketplace.Claim{
		ID: "c1",
		Items: []marketplace.ClaimBatch{
			{ClaimItems: []marketplace.ClaimItem{{ID: "li-1"}}},
		},
	}

	if out := tr.ApproveClaim(context.Background(), approver, "main", claim); out.Status != StatusSent {
		t.Fatalf("status = %q, want sent", out.Status)
	}
	if out := tr.ApproveClaim(context.Background(), approver, "main", claim); out.Status != StatusAlreadyHandled {
		t.Fatalf("second approval status = %q, want already_handled", out.Status)
	}
	if approver.calls != 1 {
		t.Errorf("approve calls = %d, want 1", approver.calls)
	}
}

func TestApproveClaim_NoItems(t *testing.T) {
	approver := &fakeApprover{}
	tr := New(nil, fixedNow, zerolog.Nop())

	out := tr.ApproveClaim(context.Background(), approver, "main", marketplace.Claim{ID: "empty"})
	if out.Status != StatusSkipped {
		t.Fatalf("status = %q, want skipped", out.Status)
	}
	if approver.calls != 0 {
		t.Errorf("approve calls = %d, want 0", approver.calls)
	}
}
