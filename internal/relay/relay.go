package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sellerdesk/internal/dispatch"
	"sellerdesk/internal/filter"
	"sellerdesk/internal/knowledge"
)

// templateSigil marks a reply body as a template keyword instead of free
// text.
const templateSigil = "#"

// listCommand asks the relay to print the template keyword list.
const listCommand = "/templates"

// BotAPI is the full bot surface the relay needs.
type BotAPI interface {
	MessageSender
	GetUpdates(ctx context.Context, offset int64) ([]Update, error)
}

// TemplateSource abstracts the template table.
type TemplateSource interface {
	GetTemplate(keyword string) (knowledge.Template, error)
	ListTemplates() ([]knowledge.Template, error)
}

// DispatchFunc sends answer text for a question in a named store.
type DispatchFunc func(ctx context.Context, store string, questionID int64, text, origin string) dispatch.Outcome

// Relay polls the bot for operator replies and turns them into dispatched
// answers.
type Relay struct {
	bot        BotAPI
	authorized map[string]bool
	templates  TemplateSource
	dispatch   DispatchFunc
	corr       *Correlation
	poll       time.Duration
	log        zerolog.Logger

	lastUpdateID int64
}

// New creates a Relay. If pollInterval is <= 0, it defaults to 5s.
func New(bot BotAPI, chatIDs []string, templates TemplateSource, dispatchFn DispatchFunc, corr *Correlation, pollInterval time.Duration, log zerolog.Logger) *Relay {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	authorized := make(map[string]bool, len(chatIDs))
	for _, id := range chatIDs {
		authorized[id] = true
	}
	return &Relay{
		bot:        bot,
		authorized: authorized,
		templates:  templates,
		dispatch:   dispatchFn,
		corr:       corr,
		poll:       pollInterval,
		log:        log,
	}
}

// Run polls for updates until ctx is cancelled. Poll failures are logged and
// the loop resumes at the next tick with the same offset, so updates are
// redelivered rather than lost.
func (r *Relay) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if err := r.RunOnce(ctx); err != nil {
			r.log.Warn().Err(err).Msg("relay poll failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.poll):
		}
	}
}

// RunOnce performs a single poll-and-process pass.
func (r *Relay) RunOnce(ctx context.Context) error {
	updates, err := r.bot.GetUpdates(ctx, r.lastUpdateID+1)
	if err != nil {
		return err
	}

	for _, u := range updates {
		// Advance past the update once we have attempted to process it;
		// a failure inside processUpdate must not wedge the loop on one
		// poisoned update forever.
		r.lastUpdateID = u.UpdateID
		r.processUpdate(ctx, u)
	}
	return nil
}

func (r *Relay) processUpdate(ctx context.Context, u Update) {
	if u.Message == nil {
		return
	}
	msg := u.Message

	// Unauthorized senders are dropped without any reply, so the relay's
	// existence is not confirmed to strangers.
	if !r.authorized[msg.SenderID()] {
		r.log.Debug().Str("sender", msg.SenderID()).Msg("ignoring update from unauthorized sender")
		return
	}

	text := strings.TrimSpace(msg.Text)

	if text == listCommand {
		r.sendTemplateList(ctx, msg.SenderID())
		return
	}

	if msg.ReplyTo == nil {
		return
	}

	ref, ok := r.corr.Lookup(msg.ReplyTo.MessageID)
	if !ok {
		r.log.Debug().Int64("message_id", msg.ReplyTo.MessageID).
			Msg("reply does not correlate with a sent notification")
		return
	}

	answer, ok := r.resolveAnswer(ctx, msg.SenderID(), ref, text)
	if !ok {
		return
	}

	if safe, why := filter.Check(answer); !safe {
		r.reply(ctx, msg.SenderID(), fmt.Sprintf("‼️ Answer for question %d (`%s`) was not sent: %s", ref.QuestionID, ref.Store, why))
		return
	}

	out := r.dispatch(ctx, ref.Store, ref.QuestionID, answer, "relay")
	switch out.Status {
	case dispatch.StatusSent:
		r.broadcast(ctx, fmt.Sprintf("✅ Your answer for question %d (`%s`) was sent.", ref.QuestionID, ref.Store))
	case dispatch.StatusAlreadyHandled:
		r.reply(ctx, msg.SenderID(), fmt.Sprintf("ℹ️ Question %d (`%s`) was already answered.", ref.QuestionID, ref.Store))
	default:
		r.reply(ctx, msg.SenderID(), fmt.Sprintf("❌ Answer for question %d (`%s`) could not be sent: %v", ref.QuestionID, ref.Store, out.Err))
	}
}

// resolveAnswer turns a reply body into final answer text: a template lookup
// when the body starts with the keyword sigil, the body itself otherwise.
func (r *Relay) resolveAnswer(ctx context.Context, senderID string, ref Ref, text string) (string, bool) {
	if !strings.HasPrefix(text, templateSigil) {
		return text, true
	}

	keyword := strings.ToLower(strings.TrimPrefix(text, templateSigil))
	tpl, err := r.templates.GetTemplate(keyword)
	if err == knowledge.ErrNotFound {
		r.reply(ctx, senderID, fmt.Sprintf("‼️ No template named `#%s` exists. Send /templates to list them.", keyword))
		return "", false
	}
	if err != nil {
		r.log.Warn().Err(err).Str("keyword", keyword).Msg("template lookup failed")
		r.reply(ctx, senderID, fmt.Sprintf("❌ Could not load template `#%s`: %v", keyword, err))
		return "", false
	}
	return tpl.Body, true
}

func (r *Relay) sendTemplateList(ctx context.Context, senderID string) {
	templates, err := r.templates.ListTemplates()
	if err != nil {
		r.log.Warn().Err(err).Msg("listing templates failed")
		return
	}

	var sb strings.Builder
	if len(templates) == 0 {
		sb.WriteString("❌ No answer templates are loaded. Import a template file first.")
	} else {
		sb.WriteString("📋 *Available answer templates:*\n\n")
		for _, t := range templates {
			fmt.Fprintf(&sb, "`#%s`\n", t.Keyword)
		}
		sb.WriteString("\n_(Use these keywords when replying to a question.)_")
	}
	r.reply(ctx, senderID, sb.String())
}

func (r *Relay) reply(ctx context.Context, chatID, text string) {
	if _, err := r.bot.SendMessage(ctx, chatID, text); err != nil {
		r.log.Warn().Err(err).Str("chat_id", chatID).Msg("failed to send relay reply")
	}
}

func (r *Relay) broadcast(ctx context.Context, text string) {
	for id := range r.authorized {
		r.reply(ctx, id, text)
	}
}
