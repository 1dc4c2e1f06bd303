package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/getUpdates" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("offset"); got != "42" {
			t.Errorf("offset = %q, want 42", got)
		}
		io.WriteString(w, `{"ok":true,"result":[
			{"update_id":42,"message":{"message_id":7,"chat":{"id":111},"text":"hello"}}
		]}`)
	}))
	defer srv.Close()

	b := NewBotWithBaseURL("test-token", srv.URL)
	updates, err := b.GetUpdates(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetUpdates error: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("len = %d, want 1", len(updates))
	}
	if updates[0].Message.SenderID() != "111" {
		t.Errorf("SenderID = %q, want 111", updates[0].Message.SenderID())
	}
}

func TestGetUpdates_OmitsZeroOffset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("offset") {
			t.Error("offset param present on first poll")
		}
		io.WriteString(w, `{"ok":true,"result":[]}`)
	}))
	defer srv.Close()

	b := NewBotWithBaseURL("test-token", srv.URL)
	if _, err := b.GetUpdates(context.Background(), 0); err != nil {
		t.Fatalf("GetUpdates error: %v", err)
	}
}

func TestSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/sendMessage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body["chat_id"] != "111" || body["parse_mode"] != "Markdown" {
			t.Errorf("payload = %v", body)
		}
		io.WriteString(w, `{"ok":true,"result":{"message_id":99}}`)
	}))
	defer srv.Close()

	b := NewBotWithBaseURL("test-token", srv.URL)
	msgID, err := b.SendMessage(context.Background(), "111", "hi there")
	if err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if msgID != 99 {
		t.Errorf("message id = %d, want 99", msgID)
	}
}
