// Package relay connects the panel to a Telegram-style bot API: it notifies
// operators about new questions and turns their chat replies into dispatched
// answers.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBotBaseURL  = "https://api.telegram.org"
	defaultPollTimeout = 10 // seconds, long-poll window on getUpdates
)

// Update is one inbound bot update.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is a chat message, possibly a reply to an earlier one.
type Message struct {
	MessageID int64    `json:"message_id"`
	Chat      Chat     `json:"chat"`
	Text      string   `json:"text"`
	ReplyTo   *Message `json:"reply_to_message"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// SenderID returns the chat id as a string, matching the config allow-list
// format.
func (m *Message) SenderID() string {
	return strconv.FormatInt(m.Chat.ID, 10)
}

type updatesResponse struct {
	OK     bool     `json:"ok"`
	Result []Update `json:"result"`
}

type sendResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Bot communicates with the chat-bot HTTP API.
type Bot struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewBot creates a Bot for the given token.
func NewBot(token string) *Bot {
	return &Bot{
		token:   token,
		baseURL: defaultBotBaseURL,
		httpClient: &http.Client{
			// Must exceed the long-poll window.
			Timeout: (defaultPollTimeout + 5) * time.Second,
		},
	}
}

// NewBotWithBaseURL creates a bot pointing at a custom base URL (for
// testing).
func NewBotWithBaseURL(token, baseURL string) *Bot {
	b := NewBot(token)
	b.baseURL = strings.TrimRight(baseURL, "/")
	return b
}

// GetUpdates long-polls for updates with ids >= offset. Pass offset 0 on the
// first call to receive whatever is pending.
func (b *Bot) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	q := url.Values{}
	if offset > 0 {
		q.Set("offset", strconv.FormatInt(offset, 10))
	}
	q.Set("timeout", strconv.Itoa(defaultPollTimeout))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/bot%s/getUpdates?%s", b.baseURL, b.token, q.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polling updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed updatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding updates: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("bot API returned ok=false")
	}
	return parsed.Result, nil
}

// SendMessage sends markdown text to a chat and returns the sent message id,
// which callers use to correlate future replies.
func (b *Bot) SendMessage(ctx context.Context, chatID, text string) (int64, error) {
	payload, err := json.Marshal(map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return 0, fmt.Errorf("marshaling message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/bot%s/sendMessage", b.baseURL, b.token), strings.NewReader(string(payload)))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return 0, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decoding send response: %w", err)
	}
	return parsed.Result.MessageID, nil
}
