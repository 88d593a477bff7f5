// Package chat is the client for the team-chat platform REST API: direct
// conversations, text posts and adaptive cards.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Card is an adaptive-card payload.
type Card map[string]interface{}

// Conversation is a chat conversation created or found for a member set.
type Conversation struct {
	ID string `json:"id"`
}

// Client talks to the chat platform on behalf of a bot installation.
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// NewClient creates a chat client rooted at serverURL.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, accessToken, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chat: %s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// CreateConversation creates (or finds) the direct conversation with the
// given chat users.
func (c *Client) CreateConversation(ctx context.Context, accessToken string, memberIDs []string) (*Conversation, error) {
	members := make([]map[string]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		members = append(members, map[string]string{"id": id})
	}
	payload := map[string]interface{}{"members": members}

	var conversation Conversation
	if err := c.do(ctx, accessToken, http.MethodPost, "/restapi/v1.0/glip/conversations", payload, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

// SendText posts a plain text message into a conversation.
func (c *Client) SendText(ctx context.Context, accessToken, groupID, text string) error {
	payload := map[string]string{"text": text}
	return c.do(ctx, accessToken, http.MethodPost, "/restapi/v1.0/glip/chats/"+groupID+"/posts", payload, nil)
}

// SendCard posts an adaptive card into a conversation.
func (c *Client) SendCard(ctx context.Context, accessToken, groupID string, card Card) error {
	return c.do(ctx, accessToken, http.MethodPost, "/restapi/v1.0/glip/chats/"+groupID+"/adaptive-cards", card, nil)
}

// UpdateCard replaces a previously posted adaptive card in place.
func (c *Client) UpdateCard(ctx context.Context, accessToken, cardID string, card Card) error {
	return c.do(ctx, accessToken, http.MethodPut, "/restapi/v1.0/glip/adaptive-cards/"+cardID, card, nil)
}
