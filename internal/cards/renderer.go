package cards

import (
	"context"

	"github.com/taskbridge/taskbridge/internal/chat"
	"github.com/taskbridge/taskbridge/internal/notification"
	"github.com/taskbridge/taskbridge/internal/store"
)

// Renderer sends classified notifications into chat as adaptive cards.
// It implements notification.Renderer.
type Renderer struct {
	store *store.Store
	chat  *chat.Client
}

// NewRenderer creates a card renderer over the chat client.
func NewRenderer(st *store.Store, chatClient *chat.Client) *Renderer {
	return &Renderer{store: st, chat: chatClient}
}

func (r *Renderer) send(ctx context.Context, botID, groupID string, card chat.Card) error {
	bot, err := r.store.GetBot(botID)
	if err != nil {
		return err
	}
	return r.chat.SendCard(ctx, bot.AccessToken, groupID, card)
}

// RenderNewTask delivers a "new task assigned" card.
func (r *Renderer) RenderNewTask(ctx context.Context, botID, groupID string, n notification.TaskNotification) error {
	return r.send(ctx, botID, groupID, NewTaskAssignedCard(n))
}

// RenderNewComment delivers a "new comment" card.
func (r *Renderer) RenderNewComment(ctx context.Context, botID, groupID string, n notification.CommentNotification) error {
	return r.send(ctx, botID, groupID, NewCommentCard(botID, n))
}
