package marketplace

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

var testCreds = Credentials{SellerID: "4242", APIKey: "key", APISecret: "secret"}

func TestPendingClaims(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/order/sellers/4242/claims" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("claimItemStatus"); got != "WaitingInAction" {
			t.Errorf("claimItemStatus = %q", got)
		}
		// Basic auth is base64("key:secret").
		if got := r.Header.Get("Authorization"); got != "Basic a2V5OnNlY3JldA==" {
			t.Errorf("Authorization = %q", got)
		}
		io.WriteString(w, `{"content":[
			{"id":"c1","orderNumber":"o-77","status":"WaitingInAction",
			 "claimType":{"name":"defective"},
			 "items":[{"claimItems":[{"id":"li-1"},{"id":"li-2"}]}]}
		]}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(testCreds, srv.URL)
	claims, err := c.PendingClaims(context.Background())
	if err != nil {
		t.Fatalf("PendingClaims error: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("len = %d, want 1", len(claims))
	}
	if claims[0].OrderNumber != "o-77" {
		t.Errorf("OrderNumber = %q", claims[0].OrderNumber)
	}
	ids := claims[0].LineItemIDs()
	if len(ids) != 2 || ids[0] != "li-1" || ids[1] != "li-2" {
		t.Errorf("LineItemIDs = %v", ids)
	}
}

func TestApproveClaimItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %q, want PUT", r.Method)
		}
		if r.URL.Path != "/order/sellers/4242/claims/c1/items/approve" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body struct {
			ClaimLineItemIDList []string          `json:"claimLineItemIdList"`
			Params              map[string]string `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if len(body.ClaimLineItemIDList) != 2 {
			t.Errorf("claimLineItemIdList = %v", body.ClaimLineItemIDList)
		}
		if body.Params == nil {
			t.Error("params missing from approve payload")
		}
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(testCreds, srv.URL)
	if err := c.ApproveClaimItems(context.Background(), "c1", []string{"li-1", "li-2"}); err != nil {
		t.Fatalf("ApproveClaimItems error: %v", err)
	}
}

func TestWaitingQuestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/qna/sellers/4242/questions/filter" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("status"); got != "WAITING_FOR_ANSWER" {
			t.Errorf("status = %q", got)
		}
		io.WriteString(w, `{"content":[{"id":1001,"productName":"Wool Coat","text":"Is it warm?"}]}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(testCreds, srv.URL)
	questions, err := c.WaitingQuestions(context.Background())
	if err != nil {
		t.Fatalf("WaitingQuestions error: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("len = %d, want 1", len(questions))
	}
	if questions[0].ID != 1001 || questions[0].ProductName != "Wool Coat" {
		t.Errorf("question = %+v", questions[0])
	}
}

func TestSendAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/qna/sellers/4242/questions/1001/answers" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body.Text != "Yes, very warm." {
			t.Errorf("text = %q", body.Text)
		}
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(testCreds, srv.URL)
	if err := c.SendAnswer(context.Background(), 1001, "Yes, very warm."); err != nil {
		t.Fatalf("SendAnswer error: %v", err)
	}
}

func TestSendAnswer_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"errors":[{"message":"question already answered"}]}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(testCreds, srv.URL)
	err := c.SendAnswer(context.Background(), 1001, "hello")
	if err == nil {
		t.Fatal("expected error on 400")
	}
}
