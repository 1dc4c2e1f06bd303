package relay

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"sellerdesk/internal/marketplace"
)

// MessageSender abstracts the outbound half of the bot API.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID, text string) (int64, error)
}

// Notifier pushes new-question notifications to all authorized chats and
// records each sent message in the correlation map so replies can be routed
// back to the right question.
type Notifier struct {
	bot     MessageSender
	chatIDs []string
	corr    *Correlation
	log     zerolog.Logger
}

// NewNotifier creates a Notifier. bot may be nil when notifications are
// disabled; all methods then no-op.
func NewNotifier(bot MessageSender, chatIDs []string, corr *Correlation, log zerolog.Logger) *Notifier {
	return &Notifier{bot: bot, chatIDs: chatIDs, corr: corr, log: log}
}

// NotifyNewQuestion announces a question to every authorized chat.
func (n *Notifier) NotifyNewQuestion(ctx context.Context, store string, q marketplace.Question) {
	if n.bot == nil {
		return
	}

	text := fmt.Sprintf(
		"🔔 *New question!*\n\n"+
			"🏪 Store: *%s*\n"+
			"📦 Product: %s\n"+
			"❓ Question: %s\n"+
			"(Question ID: %d)\n\n"+
			"👇 *Reply to this message to answer, or use `#keyword`. Send /templates to list all templates.*",
		store, q.ProductName, q.Text, q.ID,
	)

	for _, chatID := range n.chatIDs {
		msgID, err := n.bot.SendMessage(ctx, chatID, text)
		if err != nil {
			n.log.Warn().Err(err).Str("chat_id", chatID).Int64("question_id", q.ID).
				Msg("failed to send question notification")
			continue
		}
		n.corr.Record(msgID, Ref{Store: store, QuestionID: q.ID})
	}
}

// Broadcast sends text to every authorized chat.
func (n *Notifier) Broadcast(ctx context.Context, text string) {
	if n.bot == nil {
		return
	}
	for _, chatID := range n.chatIDs {
		if _, err := n.bot.SendMessage(ctx, chatID, text); err != nil {
			n.log.Warn().Err(err).Str("chat_id", chatID).Msg("failed to broadcast")
		}
	}
}
