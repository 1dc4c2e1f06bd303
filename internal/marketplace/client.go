// Package marketplace talks to the seller-side order and Q&A endpoints of
// the marketplace gateway. One Client is scoped to one seller account.
package marketplace

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://apigw.trendyol.com/integration"
	defaultTimeout = 15 * time.Second
	defaultAgent   = "sellerdesk/1.0"

	claimPageSize = 50
)

// Credentials is one seller account's API key/secret pair.
type Credentials struct {
	SellerID  string
	APIKey    string
	APISecret string
}

// Client communicates with the marketplace gateway for a single seller.
type Client struct {
	creds      Credentials
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the given seller credentials.
func NewClient(creds Credentials) *Client {
	return &Client{
		creds:   creds,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for
// testing).
func NewClientWithBaseURL(creds Credentials, baseURL string) *Client {
	c := NewClient(creds)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// PendingClaims fetches claims waiting for seller action.
func (c *Client) PendingClaims(ctx context.Context) ([]Claim, error) {
	path := fmt.Sprintf("/order/sellers/%s/claims?claimItemStatus=WaitingInAction&size=%d&page=0",
		c.creds.SellerID, claimPageSize)

	var out claimsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching pending claims: %w", err)
	}
	return out.Content, nil
}

// ApproveClaimItems approves the given line items of a claim.
func (c *Client) ApproveClaimItems(ctx context.Context, claimID string, itemIDs []string) error {
	path := fmt.Sprintf("/order/sellers/%s/claims/%s/items/approve", c.creds.SellerID, claimID)
	body := approveRequest{ClaimLineItemIDList: itemIDs, Params: map[string]string{}}

	if err := c.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("approving claim %s: %w", claimID, err)
	}
	return nil
}

// WaitingQuestions fetches customer questions waiting for an answer.
func (c *Client) WaitingQuestions(ctx context.Context) ([]Question, error) {
	path := fmt.Sprintf("/qna/sellers/%s/questions/filter?status=WAITING_FOR_ANSWER", c.creds.SellerID)

	var out questionsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching waiting questions: %w", err)
	}
	return out.Content, nil
}

// SendAnswer submits an answer to a customer question.
func (c *Client) SendAnswer(ctx context.Context, questionID int64, text string) error {
	path := fmt.Sprintf("/qna/sellers/%s/questions/%d/answers", c.creds.SellerID, questionID)

	if err := c.do(ctx, http.MethodPost, path, answerRequest{Text: text}, nil); err != nil {
		return fmt.Errorf("sending answer for question %d: %w", questionID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	credentials := c.creds.APIKey + ":" + c.creds.APISecret
	encoded := base64.StdEncoding.EncodeToString([]byte(credentials))
	req.Header.Set("Authorization", "Basic "+encoded)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.creds.SellerID+" - "+defaultAgent)
}
