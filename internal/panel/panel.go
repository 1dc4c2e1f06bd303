// Package panel runs the per-tick automation pass over every configured
// store: approve pending claims, observe and notify new questions, and
// auto-answer the ones whose grace period has elapsed.
package panel

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sellerdesk/internal/answer"
	"sellerdesk/internal/config"
	"sellerdesk/internal/dispatch"
	"sellerdesk/internal/gate"
	"sellerdesk/internal/marketplace"
)

// StoreClient is the marketplace surface the panel needs per store.
type StoreClient interface {
	PendingClaims(ctx context.Context) ([]marketplace.Claim, error)
	ApproveClaimItems(ctx context.Context, claimID string, itemIDs []string) error
	WaitingQuestions(ctx context.Context) ([]marketplace.Question, error)
	SendAnswer(ctx context.Context, questionID int64, text string) error
}

// Generator produces answer text for a product question.
type Generator interface {
	Generate(ctx context.Context, product, question string) answer.Result
}

// QuestionNotifier announces newly seen questions to the operator chat.
type QuestionNotifier interface {
	NotifyNewQuestion(ctx context.Context, store string, q marketplace.Question)
}

// Store pairs a store's configuration with its API client.
type Store struct {
	Config config.StoreConfig
	Client StoreClient
}

// Panel is the tick orchestrator.
type Panel struct {
	stores    []Store
	gate      *gate.Gate
	tracker   *dispatch.Tracker
	generator Generator
	notifier  QuestionNotifier
	tick      time.Duration
	log       zerolog.Logger

	mu     sync.Mutex
	latest Snapshot
}

// New creates a Panel. notifier may be nil when chat notifications are
// disabled. If tick is <= 0, it defaults to one minute.
func New(stores []Store, g *gate.Gate, tracker *dispatch.Tracker, generator Generator, notifier QuestionNotifier, tick time.Duration, log zerolog.Logger) *Panel {
	if tick <= 0 {
		tick = time.Minute
	}
	return &Panel{
		stores:    stores,
		gate:      g,
		tracker:   tracker,
		generator: generator,
		notifier:  notifier,
		tick:      tick,
		log:       log,
	}
}

// Latest returns the snapshot from the most recent completed pass.
func (p *Panel) Latest() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Run executes passes on a ticker until ctx is cancelled. Ticks never
// overlap; a slow pass simply delays the next one.
func (p *Panel) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	p.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single fetch-decide-dispatch pass over all stores and
// returns the resulting snapshot. Stores are independent credential scopes
// and are processed concurrently; a failure in one never aborts the others.
func (p *Panel) RunOnce(ctx context.Context) Snapshot {
	snap := Snapshot{
		TakenAt: time.Now().UTC(),
		Stores:  make([]StoreSnapshot, len(p.stores)),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, st := range p.stores {
		i, st := i, st
		g.Go(func() error {
			snap.Stores[i] = p.processStore(gCtx, st)
			return nil
		})
	}
	g.Wait()

	p.mu.Lock()
	p.latest = snap
	p.mu.Unlock()
	return snap
}

// processStore runs all sections for one store. Every vendor-call failure is
// captured into the store snapshot instead of propagating.
func (p *Panel) processStore(ctx context.Context, st Store) StoreSnapshot {
	ss := StoreSnapshot{Store: st.Config.Name}
	p.processClaims(ctx, st, &ss)
	p.processQuestions(ctx, st, &ss)
	return ss
}

func (p *Panel) processClaims(ctx context.Context, st Store, ss *StoreSnapshot) {
	claims, err := st.Client.PendingClaims(ctx)
	if err != nil {
		p.log.Warn().Err(err).Str("store", st.Config.Name).Msg("fetching pending claims failed")
		ss.Errors = append(ss.Errors, "fetching claims: "+err.Error())
		return
	}

	for _, claim := range claims {
		cs := ClaimStatus{
			ClaimID:     claim.ID,
			OrderNumber: claim.OrderNumber,
			Items:       len(claim.LineItemIDs()),
		}
		if st.Config.ApproveClaims {
			out := p.tracker.ApproveClaim(ctx, st.Client, st.Config.Name, claim)
			cs.Approval = string(out.Status)
			if out.Status == dispatch.StatusFailed {
				p.log.Warn().Err(out.Err).Str("store", st.Config.Name).Str("claim_id", claim.ID).
					Msg("claim approval failed")
				ss.Errors = append(ss.Errors, "approving claim "+claim.ID+": "+out.Err.Error())
			}
		}
		ss.Claims = append(ss.Claims, cs)
	}
}

func (p *Panel) processQuestions(ctx context.Context, st Store, ss *StoreSnapshot) {
	questions, err := st.Client.WaitingQuestions(ctx)
	if err != nil {
		p.log.Warn().Err(err).Str("store", st.Config.Name).Msg("fetching waiting questions failed")
		ss.Errors = append(ss.Errors, "fetching questions: "+err.Error())
		return
	}

	delay := time.Duration(st.Config.DelayMinutes) * time.Minute
	for _, q := range questions {
		key := gate.Key{Store: st.Config.Name, QuestionID: q.ID}
		_, seen := p.gate.FirstSeen(key)
		p.gate.Observe(key)

		qs := QuestionStatus{
			ID:      q.ID,
			Product: q.ProductName,
			Text:    q.Text,
			Handled: p.tracker.HandledQuestion(st.Config.Name, q.ID),
		}

		if !seen && st.Config.Notify && p.notifier != nil {
			p.notifier.NotifyNewQuestion(ctx, st.Config.Name, q)
		}

		if !qs.Handled {
			p.decideQuestion(ctx, st, key, q, delay, &qs, ss)
		}

		ss.Questions = append(ss.Questions, qs)
	}
}

// decideQuestion applies the delay gate and, when open, generates and
// dispatches an answer for a not-yet-handled question.
func (p *Panel) decideQuestion(ctx context.Context, st Store, key gate.Key, q marketplace.Question, delay time.Duration, qs *QuestionStatus, ss *StoreSnapshot) {
	if !st.Config.AutoAnswer {
		return
	}

	open, remaining := p.gate.ShouldAnswer(key, delay)
	if !open {
		qs.RemainingDelay = remaining.Round(time.Second).String()
		return
	}

	res := p.generator.Generate(ctx, q.ProductName, q.Text)
	if !res.OK() {
		qs.Refusal = string(res.Reason)
		qs.RefusalDetail = res.Detail
		if res.Reason == answer.ReasonServiceError {
			ss.Errors = append(ss.Errors, "generating answer for question "+key.String()+": "+res.Detail)
		}
		p.log.Info().Str("store", st.Config.Name).Int64("question_id", q.ID).
			Str("reason", string(res.Reason)).Msg("no auto-answer produced")
		return
	}

	out := p.tracker.DispatchAnswer(ctx, st.Client, st.Config.Name, q.ID, res.Text, "auto")
	qs.Dispatch = string(out.Status)
	qs.Handled = out.Status == dispatch.StatusSent || out.Status == dispatch.StatusAlreadyHandled
	if out.Status == dispatch.StatusFailed {
		ss.Errors = append(ss.Errors, "sending answer for question "+key.String()+": "+out.Err.Error())
	}
}
