// Package answer generates customer-question answers from historical
// examples via a chat-completions model, with a safety filter between the
// model and the marketplace.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"sellerdesk/internal/completion"
	"sellerdesk/internal/filter"
	"sellerdesk/internal/knowledge"
)

// Reason classifies why no answer text was produced.
type Reason string

const (
	// ReasonNone means an answer was produced.
	ReasonNone Reason = ""
	// ReasonInsufficientEvidence is a designed refusal: too few matching
	// historical examples to answer responsibly. No model call is made.
	ReasonInsufficientEvidence Reason = "insufficient_evidence"
	// ReasonUnsafe means every generation attempt failed the content filter.
	ReasonUnsafe Reason = "unsafe"
	// ReasonServiceError covers transport, authentication, and rate-limit
	// failures from the completion service or the example store.
	ReasonServiceError Reason = "service_error"
)

// Result is the outcome of one Generate call. Either Text is non-empty and
// passes the content filter, or Reason and Detail say why it is absent.
type Result struct {
	Text   string
	Reason Reason
	Detail string
}

// OK reports whether the result carries usable answer text.
func (r Result) OK() bool { return r.Reason == ReasonNone }

// Completer abstracts the chat-completions client.
type Completer interface {
	Complete(ctx context.Context, req completion.ChatRequest) (string, error)
}

// ExampleSource abstracts the historical example corpus.
type ExampleSource interface {
	ExamplesForProduct(product string) ([]knowledge.Example, error)
}

// Options configures generation.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// MinExamples is the minimum number of matching historical examples
	// required before a model call is made. Zero disables the check.
	MinExamples int
	// MaxAttempts bounds filter-failure retries. Each attempt is a fresh,
	// independent completion call with the identical prompt.
	MaxAttempts int
}

// Generator is the answer generation adapter.
type Generator struct {
	completer Completer
	examples  ExampleSource
	opts      Options
	log       zerolog.Logger
}

// maxPromptExamples caps how many example pairs are embedded in the prompt.
const maxPromptExamples = 5

// NewGenerator creates a Generator. MaxAttempts below 1 is raised to 1.
func NewGenerator(completer Completer, examples ExampleSource, opts Options, log zerolog.Logger) *Generator {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Generator{completer: completer, examples: examples, opts: opts, log: log}
}

// Generate produces an answer for the given product question. The returned
// text, when present, is guaranteed to pass the content filter.
func (g *Generator) Generate(ctx context.Context, product, question string) Result {
	matches, err := g.examples.ExamplesForProduct(product)
	if err != nil {
		return Result{Reason: ReasonServiceError, Detail: fmt.Sprintf("loading examples: %v", err)}
	}

	if g.opts.MinExamples > 0 && len(matches) < g.opts.MinExamples {
		return Result{
			Reason: ReasonInsufficientEvidence,
			Detail: fmt.Sprintf("found %d matching examples, need %d", len(matches), g.opts.MinExamples),
		}
	}

	req := completion.ChatRequest{
		Model:       g.opts.Model,
		Messages:    []completion.Message{{Role: "user", Content: buildPrompt(product, question, matches)}},
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	}

	var lastReason string
	for attempt := 1; attempt <= g.opts.MaxAttempts; attempt++ {
		text, err := g.completer.Complete(ctx, req)
		if err != nil {
			// Transport-level failures terminate immediately; they do not
			// consume the filter-retry budget.
			return Result{Reason: ReasonServiceError, Detail: err.Error()}
		}

		ok, why := filter.Check(text)
		if ok {
			return Result{Text: text}
		}
		lastReason = why
		g.log.Debug().Int("attempt", attempt).Str("reason", why).Msg("generated answer rejected by filter")
	}

	return Result{
		Reason: ReasonUnsafe,
		Detail: fmt.Sprintf("could not produce a safe answer in %d attempts (last: %s)", g.opts.MaxAttempts, lastReason),
	}
}

func buildPrompt(product, question string, examples []knowledge.Example) string {
	var sb strings.Builder
	sb.WriteString("You are a marketplace customer service representative. ")
	sb.WriteString("Answer the customer question below briefly, politely, and clearly, ")
	sb.WriteString("using only the knowledge in the example answers and general marketplace policy. ")
	sb.WriteString("NEVER direct the customer to an external website, a link, social media, or any off-platform channel. ")
	sb.WriteString("If the examples do not contain the answer, do not invent one.\n\n")

	fmt.Fprintf(&sb, "Product: %s\nCustomer question: %s\n\n", product, question)
	sb.WriteString("--- Past approved answers ---\n")
	for i, ex := range examples {
		if i == maxPromptExamples {
			break
		}
		fmt.Fprintf(&sb, "Q: %s\nA: %s\n---\n", ex.Question, ex.Answer)
	}
	sb.WriteString("Answer (external redirection is forbidden):")
	return sb.String()
}
