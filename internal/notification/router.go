// Package notification maps inbound Asana webhook deliveries to user-visible
// chat notifications: dedupe by delivery id, per-subscription serialization,
// event filtering and classification.
package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/taskbridge/taskbridge/internal/asana"
	"github.com/taskbridge/taskbridge/internal/auth"
	"github.com/taskbridge/taskbridge/internal/db/models"
	"github.com/taskbridge/taskbridge/internal/logging"
	"github.com/taskbridge/taskbridge/internal/store"
	"go.uber.org/zap"
)

const maxTaskDescLength = 200

// Field is one custom field rendered into a notification card.
type Field struct {
	Title string
	Value string
}

// TaskNotification carries everything rendered into a "new task assigned"
// card.
type TaskNotification struct {
	TaskName     string
	Description  string
	ProjectNames string
	DueDate      string
	ActorName    string
	ActorEmail   string
	Link         string
	CustomFields []Field
}

// CommentNotification carries everything rendered into a "new comment" card.
// TaskGID and CommenterGID ride along so the reply action can route back.
type CommentNotification struct {
	TaskName     string
	Link         string
	CommentText  string
	ActorName    string
	ActorEmail   string
	TaskGID      string
	CommenterGID string
}

// Renderer hands classified notifications to the card-rendering collaborator.
type Renderer interface {
	RenderNewTask(ctx context.Context, botID, groupID string, n TaskNotification) error
	RenderNewComment(ctx context.Context, botID, groupID string, n CommentNotification) error
}

// Router processes inbound webhook deliveries.
type Router struct {
	store    *store.Store
	guard    *auth.Guard
	client   *asana.Client
	renderer Renderer
	dedupe   *Dedupe
	locks    *keyMutex
	log      *zap.Logger
}

// NewRouter creates a Router. The dedupe window absorbs Asana's own
// redelivery cadence.
func NewRouter(st *store.Store, guard *auth.Guard, client *asana.Client, renderer Renderer, log *zap.Logger) *Router {
	return &Router{
		store:    st,
		guard:    guard,
		client:   client,
		renderer: renderer,
		dedupe:   NewDedupe(4096, time.Hour),
		locks:    newKeyMutex(),
		log:      log,
	}
}

// Handle processes one webhook delivery. The delivery id is taken from the
// context the HTTP layer prepared. Unknown subscriptions and duplicate
// deliveries are dropped silently; per-event failures are logged and do not
// stop the rest of the batch. The HTTP layer always acknowledges the
// delivery regardless of the returned error.
func (r *Router) Handle(ctx context.Context, subscriptionID string, events []asana.Event) error {
	deliveryID := logging.GetDeliveryID(ctx)
	if deliveryID != "" && r.dedupe.Seen(deliveryID) {
		r.log.Debug("duplicate delivery dropped", zap.String("delivery", deliveryID))
		return nil
	}
	if len(events) == 0 {
		return nil
	}

	unlock := r.locks.Lock(subscriptionID)
	defer unlock()

	sub, err := r.store.GetSubscription(subscriptionID)
	if errors.Is(err, store.ErrNotFound) {
		// Registration outliving its local row, or a handshake-only
		// delivery racing the subscribe call.
		r.log.Info("delivery for unknown subscription dropped", zap.String("subscription", subscriptionID))
		return nil
	}
	if err != nil {
		return err
	}

	user, err := r.store.GetUser(sub.UserID)
	if err != nil {
		return err
	}
	bot, err := r.store.GetBot(user.BotID)
	if err != nil {
		return err
	}

	// One refresh per batch, not per event.
	if err := r.guard.EnsureFresh(ctx, user); err != nil {
		return err
	}

	for i, event := range events {
		if event.User != nil && event.User.GID == user.ID {
			continue // no self-notifications
		}
		if err := r.routeEvent(ctx, bot.ID, sub.GroupID, user, event); err != nil {
			r.log.Error("event processing failed",
				zap.String("delivery", deliveryID),
				zap.Int("event", i),
				zap.Error(err))
		}
	}
	return nil
}

func (r *Router) routeEvent(ctx context.Context, botID, groupID string, user *models.User, event asana.Event) error {
	if event.User == nil {
		return nil // system events carry no actor and render nothing
	}
	switch {
	case event.Resource.ResourceType == "task":
		// New task assigned: added directly under the personal task list.
		if event.Parent == nil || event.Parent.GID != user.UserTaskListGID || event.Action != "added" {
			// The due-date change shape (action "changed", change field
			// "due_on") is registered but deliberately not routed anywhere.
			return nil
		}
		actor, task, err := r.resolve(ctx, user.AccessToken, event, event.Resource.GID)
		if err != nil {
			return err
		}
		n := TaskNotification{
			TaskName:     task.Name,
			Description:  TruncateDescription(task.Notes),
			ProjectNames: joinProjectNames(task.Projects),
			DueDate:      task.DueOn,
			ActorName:    actor.Name,
			ActorEmail:   actor.Email,
			Link:         task.PermalinkURL,
			CustomFields: customFields(task),
		}
		return r.renderer.RenderNewTask(ctx, botID, groupID, n)

	case event.Resource.ResourceType == "story" && event.Resource.ResourceSubtype == "comment_added":
		if event.Parent == nil {
			return nil
		}
		actor, task, err := r.resolve(ctx, user.AccessToken, event, event.Parent.GID)
		if err != nil {
			return err
		}
		story, err := r.client.Story(ctx, user.AccessToken, event.Resource.GID)
		if err != nil {
			return err
		}
		n := CommentNotification{
			TaskName:     task.Name,
			Link:         task.PermalinkURL,
			CommentText:  story.Text,
			ActorName:    actor.Name,
			ActorEmail:   actor.Email,
			TaskGID:      task.GID,
			CommenterGID: event.User.GID,
		}
		return r.renderer.RenderNewComment(ctx, botID, groupID, n)
	}
	return nil
}

func (r *Router) resolve(ctx context.Context, accessToken string, event asana.Event, taskGID string) (*asana.User, *asana.Task, error) {
	actor, err := r.client.GetUser(ctx, accessToken, event.User.GID)
	if err != nil {
		return nil, nil, err
	}
	task, err := r.client.Task(ctx, accessToken, taskGID)
	if err != nil {
		return nil, nil, err
	}
	return actor, task, nil
}

// TruncateDescription caps a task description for card rendering.
func TruncateDescription(notes string) string {
	runes := []rune(notes)
	if len(runes) <= maxTaskDescLength {
		return notes
	}
	return string(runes[:maxTaskDescLength]) + "..."
}

func joinProjectNames(projects []asana.Project) string {
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.Name)
	}
	return strings.Join(names, ",")
}

func customFields(task *asana.Task) []Field {
	fields := make([]Field, 0, len(task.CustomFields))
	for _, cf := range task.CustomFields {
		value := cf.DisplayValue
		if value == "" {
			value = "Null"
		}
		fields = append(fields, Field{Title: cf.Name, Value: value})
	}
	return fields
}
