package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskbridge/taskbridge/internal/asana"
	"github.com/taskbridge/taskbridge/internal/auth"
	"github.com/taskbridge/taskbridge/internal/db/models"
	"github.com/taskbridge/taskbridge/internal/store"
	"go.uber.org/zap"
)

// Manager orchestrates the token guard, registrar and store to keep local
// subscription state 1:1 with remote webhook registrations.
type Manager struct {
	store     *store.Store
	guard     *auth.Guard
	client    *asana.Client
	registrar *Registrar
	log       *zap.Logger
}

// NewManager creates a subscription manager.
func NewManager(st *store.Store, guard *auth.Guard, client *asana.Client, registrar *Registrar, log *zap.Logger) *Manager {
	return &Manager{store: st, guard: guard, client: client, registrar: registrar, log: log}
}

// Subscribe creates a subscription for the user's personal task list in the
// workspace, delivering into groupID. The local row is inserted before the
// registrar call: Asana's handshake can reach the webhook endpoint before
// CreateWebhook returns, and the inbound handler must find a record to
// correlate against. If the registrar call fails, the handle-less row stays
// behind (recoverable via ReconcileOrphans).
func (m *Manager) Subscribe(ctx context.Context, user *models.User, workspace asana.Workspace, groupID string) (*models.Subscription, error) {
	if err := m.guard.EnsureFresh(ctx, user); err != nil {
		return nil, err
	}

	taskList, err := m.client.UserTaskList(ctx, user.AccessToken, workspace.GID)
	if err != nil {
		return nil, fmt.Errorf("resolve personal task list: %w", err)
	}
	user.UserTaskListGID = taskList.GID
	user.WorkspaceID = workspace.GID
	user.WorkspaceName = workspace.Name
	if err := m.store.SaveUser(user); err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		WorkspaceID:   workspace.GID,
		WorkspaceName: workspace.Name,
		GroupID:       groupID,
	}
	if err := m.store.CreateSubscription(sub); err != nil {
		return nil, err
	}

	handle, err := m.registrar.Create(ctx, user.AccessToken, taskList.GID, sub.ID, PersonalListFilters())
	if err != nil {
		return nil, err
	}

	sub.WebhookGID = handle
	if err := m.store.SaveSubscription(sub); err != nil {
		return nil, err
	}

	m.log.Info("subscribed",
		zap.String("user", user.ID),
		zap.String("subscription", sub.ID),
		zap.String("webhook", handle))
	return sub, nil
}

// Unsubscribe tears one subscription down: remote registration first
// (best effort), then the local row. The local delete always runs.
func (m *Manager) Unsubscribe(ctx context.Context, user *models.User, sub *models.Subscription) error {
	m.registrar.Delete(ctx, user.AccessToken, sub.WebhookGID)
	if err := m.store.DeleteSubscription(sub.ID); err != nil {
		return err
	}
	m.log.Info("unsubscribed", zap.String("user", user.ID), zap.String("subscription", sub.ID))
	return nil
}

// UnsubscribeAll tears down every subscription the user owns. Each is torn
// down independently; one failure does not block the others.
func (m *Manager) UnsubscribeAll(ctx context.Context, user *models.User) error {
	subs, err := m.store.ListSubscriptions(user.ID)
	if err != nil {
		return err
	}
	for i := range subs {
		if err := m.Unsubscribe(ctx, user, &subs[i]); err != nil {
			m.log.Error("unsubscribe failed", zap.String("subscription", subs[i].ID), zap.Error(err))
		}
	}
	return nil
}

// SwitchWorkspace moves the user to a different workspace: all existing
// subscriptions are torn down, then a fresh one is created. Two-phase and
// not atomic; a crash between phases leaves the user unsubscribed until they
// resubmit.
func (m *Manager) SwitchWorkspace(ctx context.Context, user *models.User, workspace asana.Workspace, groupID string) (*models.Subscription, error) {
	if err := m.UnsubscribeAll(ctx, user); err != nil {
		return nil, err
	}
	return m.Subscribe(ctx, user, workspace, groupID)
}

// ReconcileOrphans handles subscription rows that never received a remote
// handle: for each row older than the cutoff, the webhook create is retried
// once; if it still fails the row is deleted. Returns repaired and removed
// counts. Operator-triggered.
func (m *Manager) ReconcileOrphans(ctx context.Context, olderThan time.Duration) (repaired, removed int, err error) {
	orphans, err := m.store.ListOrphanSubscriptions(time.Now().Add(-olderThan))
	if err != nil {
		return 0, 0, err
	}

	for i := range orphans {
		sub := &orphans[i]
		user, err := m.store.GetUser(sub.UserID)
		if err != nil {
			m.log.Warn("orphan subscription without owner, removing", zap.String("subscription", sub.ID))
			if err := m.store.DeleteSubscription(sub.ID); err == nil {
				removed++
			}
			continue
		}
		if err := m.guard.EnsureFresh(ctx, user); err != nil {
			m.log.Error("orphan reconcile: refresh failed", zap.String("user", user.ID), zap.Error(err))
			continue
		}

		handle, err := m.registrar.Create(ctx, user.AccessToken, user.UserTaskListGID, sub.ID, PersonalListFilters())
		if err != nil {
			m.log.Warn("orphan reconcile: retry-create failed, removing row",
				zap.String("subscription", sub.ID),
				zap.Error(err))
			if err := m.store.DeleteSubscription(sub.ID); err == nil {
				removed++
			}
			continue
		}
		sub.WebhookGID = handle
		if err := m.store.SaveSubscription(sub); err != nil {
			return repaired, removed, err
		}
		repaired++
	}
	return repaired, removed, nil
}
