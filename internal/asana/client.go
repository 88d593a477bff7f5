// Package asana is a typed client for the slice of the Asana REST API the
// service consumes: profile and workspace reads, personal task list
// resolution, task and story reads, comment creation, and webhook
// registration management.
package asana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RemoteError is a non-2xx response from the Asana API.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("asana: status %d: %s", e.Status, e.Body)
}

// Client talks to the Asana REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an Asana API client rooted at baseURL
// (normally https://app.asana.com/api/1.0).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, accessToken, method, path string, query url.Values, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(map[string]interface{}{"data": payload})
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	// The new-style personal task list ids are only served with this opt-in.
	req.Header.Set("Asana-Enable", "new_user_task_lists")
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
		return &RemoteError{Status: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("asana: decode envelope: %w", err)
	}
	return json.Unmarshal(envelope.Data, out)
}

// Me returns the profile of the token's owner.
func (c *Client) Me(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.do(ctx, accessToken, http.MethodGet, "/users/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser returns the profile of another user by gid.
func (c *Client) GetUser(ctx context.Context, accessToken, userGID string) (*User, error) {
	var user User
	if err := c.do(ctx, accessToken, http.MethodGet, "/users/"+userGID, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Workspaces lists workspaces visible to the token's owner.
func (c *Client) Workspaces(ctx context.Context, accessToken string) ([]Workspace, error) {
	var workspaces []Workspace
	if err := c.do(ctx, accessToken, http.MethodGet, "/workspaces", nil, nil, &workspaces); err != nil {
		return nil, err
	}
	return workspaces, nil
}

// UserTaskList resolves the "My Tasks" list of the token's owner in the
// given workspace.
func (c *Client) UserTaskList(ctx context.Context, accessToken, workspaceGID string) (*UserTaskList, error) {
	query := url.Values{"workspace": {workspaceGID}}
	var list UserTaskList
	if err := c.do(ctx, accessToken, http.MethodGet, "/users/me/user_task_list", query, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// UserTaskListForUser resolves another user's personal task list through
// their workspace membership. Needed for @-mention links, which Asana
// renders from task-list URLs.
func (c *Client) UserTaskListForUser(ctx context.Context, accessToken, userGID string) (string, error) {
	var memberships []WorkspaceMembership
	if err := c.do(ctx, accessToken, http.MethodGet, "/users/"+userGID+"/workspace_memberships", nil, nil, &memberships); err != nil {
		return "", err
	}
	if len(memberships) == 0 {
		return "", fmt.Errorf("asana: user %s has no workspace memberships", userGID)
	}

	query := url.Values{"opt_fields": {"user_task_list"}}
	var full WorkspaceMembership
	if err := c.do(ctx, accessToken, http.MethodGet, "/workspace_memberships/"+memberships[0].GID, query, nil, &full); err != nil {
		return "", err
	}
	if full.UserTaskList == nil {
		return "", fmt.Errorf("asana: membership %s has no user task list", memberships[0].GID)
	}
	return full.UserTaskList.GID, nil
}

// Task returns a full task read including the fields rendered in cards.
func (c *Client) Task(ctx context.Context, accessToken, taskGID string) (*Task, error) {
	query := url.Values{"opt_fields": {"name,notes,due_on,permalink_url,projects.name,custom_fields.name,custom_fields.display_value,followers"}}
	var task Task
	if err := c.do(ctx, accessToken, http.MethodGet, "/tasks/"+taskGID, query, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// TasksInUserTaskList lists the tasks in a personal task list.
func (c *Client) TasksInUserTaskList(ctx context.Context, accessToken, userTaskListGID string) ([]TaskRef, error) {
	var tasks []TaskRef
	if err := c.do(ctx, accessToken, http.MethodGet, "/user_task_lists/"+userTaskListGID+"/tasks", nil, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Story returns one story; for comment stories Text carries the body.
func (c *Client) Story(ctx context.Context, accessToken, storyGID string) (*Story, error) {
	var story Story
	if err := c.do(ctx, accessToken, http.MethodGet, "/stories/"+storyGID, nil, nil, &story); err != nil {
		return nil, err
	}
	return &story, nil
}

// CreateStoryOnTask posts a comment on a task.
func (c *Client) CreateStoryOnTask(ctx context.Context, accessToken, taskGID, text string) error {
	payload := map[string]string{"text": text}
	return c.do(ctx, accessToken, http.MethodPost, "/tasks/"+taskGID+"/stories", nil, payload, nil)
}

// CreateWebhook registers a webhook on the resource. Asana performs a
// synchronous handshake against target before this call returns, so the
// receiving endpoint must already be able to answer it.
func (c *Client) CreateWebhook(ctx context.Context, accessToken, resourceGID, target string, filters []WebhookFilter) (*Webhook, error) {
	payload := map[string]interface{}{
		"resource": resourceGID,
		"target":   target,
		"filters":  filters,
	}
	var webhook Webhook
	if err := c.do(ctx, accessToken, http.MethodPost, "/webhooks", nil, payload, &webhook); err != nil {
		return nil, err
	}
	return &webhook, nil
}

// DeleteWebhook removes a webhook registration by gid.
func (c *Client) DeleteWebhook(ctx context.Context, accessToken, webhookGID string) error {
	return c.do(ctx, accessToken, http.MethodDelete, "/webhooks/"+webhookGID, nil, nil, nil)
}
