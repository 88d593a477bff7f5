// Package subscription keeps local subscription rows and remote Asana
// webhook registrations consistent with each other.
package subscription

import (
	"context"
	"fmt"

	"github.com/taskbridge/taskbridge/internal/asana"
	"go.uber.org/zap"
)

// Registrar creates and deletes webhook registrations on the Asana side.
type Registrar struct {
	client      *asana.Client
	callbackURL string // public base URL for webhook targets
	log         *zap.Logger
}

// NewRegistrar creates a Registrar whose webhook targets are rooted at
// publicURL.
func NewRegistrar(client *asana.Client, publicURL string, log *zap.Logger) *Registrar {
	return &Registrar{client: client, callbackURL: publicURL, log: log}
}

// PersonalListFilters is the filter set registered for a personal task list:
// new comments, newly added tasks, and due-date changes. The due-date shape
// is registered but not routed to any notification.
func PersonalListFilters() []asana.WebhookFilter {
	return []asana.WebhookFilter{
		{ResourceType: "story", ResourceSubtype: "comment_added"},
		{ResourceType: "task", Action: "added"},
		{ResourceType: "task", Action: "changed", Fields: []string{"due_on"}},
	}
}

// Target returns the webhook callback URL correlating deliveries back to a
// local subscription id.
func (r *Registrar) Target(subscriptionID string) string {
	return fmt.Sprintf("%s/notification?subscriptionId=%s", r.callbackURL, subscriptionID)
}

// Create registers a webhook on the resource and returns the remote handle.
// Asana sends a synchronous handshake to the target before this returns, so
// the local subscription row must already exist.
func (r *Registrar) Create(ctx context.Context, accessToken, resourceGID, subscriptionID string, filters []asana.WebhookFilter) (string, error) {
	webhook, err := r.client.CreateWebhook(ctx, accessToken, resourceGID, r.Target(subscriptionID), filters)
	if err != nil {
		return "", fmt.Errorf("create webhook for %s: %w", resourceGID, err)
	}
	return webhook.GID, nil
}

// Delete removes a webhook registration. Failures are logged and swallowed
// so local cleanup always proceeds; a dead remote registration just stops
// delivering.
func (r *Registrar) Delete(ctx context.Context, accessToken, webhookGID string) {
	if webhookGID == "" {
		return
	}
	if err := r.client.DeleteWebhook(ctx, accessToken, webhookGID); err != nil {
		r.log.Warn("webhook delete failed, continuing local cleanup",
			zap.String("webhook", webhookGID),
			zap.Error(err))
	}
}
