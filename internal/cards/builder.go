package cards

import (
	"fmt"

	"github.com/taskbridge/taskbridge/internal/asana"
	"github.com/taskbridge/taskbridge/internal/chat"
	"github.com/taskbridge/taskbridge/internal/db/models"
	"github.com/taskbridge/taskbridge/internal/notification"
)

func baseCard(body, actions []map[string]interface{}) chat.Card {
	card := chat.Card{
		"type":    "AdaptiveCard",
		"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
		"version": "1.3",
		"body":    body,
	}
	if len(actions) > 0 {
		card["actions"] = actions
	}
	return card
}

func textBlock(text string, opts map[string]interface{}) map[string]interface{} {
	block := map[string]interface{}{"type": "TextBlock", "text": text, "wrap": true}
	for k, v := range opts {
		block[k] = v
	}
	return block
}

func titleBlock(text string) map[string]interface{} {
	return textBlock(text, map[string]interface{}{"weight": "Bolder", "size": "Medium"})
}

func factSet(facts []map[string]string) map[string]interface{} {
	return map[string]interface{}{"type": "FactSet", "facts": facts}
}

// ReminderIntervalText renders the stored interval for display.
func ReminderIntervalText(interval string) string {
	switch interval {
	case "", "off":
		return "OFF"
	case "1":
		return "1 day ahead"
	default:
		return interval + " days ahead"
	}
}

// TimezoneText renders a signed hour offset as ±hh:00.
func TimezoneText(offset int) string {
	return fmt.Sprintf("%+03d:00", offset)
}

// AuthCard prompts the user to start the OAuth flow.
func AuthCard(authLink string) chat.Card {
	tpl := template("auth")
	return baseCard(
		[]map[string]interface{}{
			titleBlock(tpl.Title),
			textBlock(tpl.Body, nil),
		},
		[]map[string]interface{}{
			{"type": "Action.OpenUrl", "title": tpl.Action, "url": authLink},
		},
	)
}

// ConfigCard shows the user's current workspace and preferences.
func ConfigCard(botID string, user *models.User) chat.Card {
	tpl := template("config")
	return baseCard(
		[]map[string]interface{}{
			titleBlock(tpl.Title),
			factSet([]map[string]string{
				{"title": tpl.Labels["workspace"], "value": user.WorkspaceName},
				{"title": tpl.Labels["reminder"], "value": ReminderIntervalText(user.ReminderInterval)},
				{"title": tpl.Labels["timezone"], "value": TimezoneText(user.TimezoneOffset)},
			}),
		},
		[]map[string]interface{}{
			{
				"type":  "Action.Submit",
				"title": tpl.Action,
				"data":  map[string]interface{}{"actionType": "configEdit", "botId": botID},
			},
		},
	)
}

// EditConfigCard is the dialog body for changing workspace and preferences.
func EditConfigCard(botID string, workspaces []asana.Workspace, user *models.User) chat.Card {
	tpl := template("edit_config")
	choices := make([]map[string]string, 0, len(workspaces))
	for _, w := range workspaces {
		choices = append(choices, map[string]string{"title": w.Name, "value": w.GID})
	}
	return baseCard(
		[]map[string]interface{}{
			titleBlock(tpl.Title),
			textBlock(tpl.Labels["workspace"], nil),
			{
				"type":    "Input.ChoiceSet",
				"id":      "workspace",
				"choices": choices,
				"value":   user.WorkspaceID,
			},
			textBlock(tpl.Labels["reminder"], nil),
			{
				"type": "Input.ChoiceSet",
				"id":   "taskDueReminderInterval",
				"choices": []map[string]string{
					{"title": "OFF", "value": "off"},
					{"title": "1 day ahead", "value": "1"},
					{"title": "2 days ahead", "value": "2"},
					{"title": "3 days ahead", "value": "3"},
				},
				"value": user.ReminderInterval,
			},
			textBlock(tpl.Labels["timezone"], nil),
			{
				"type":  "Input.Text",
				"id":    "timezoneOffset",
				"value": fmt.Sprintf("%d", user.TimezoneOffset),
			},
		},
		[]map[string]interface{}{
			{
				"type":  "Action.Submit",
				"title": tpl.Action,
				"data":  map[string]interface{}{"actionType": "submitConfig", "botId": botID},
			},
		},
	)
}

func taskFacts(labels map[string]string, projectNames, dueDate string) []map[string]string {
	return []map[string]string{
		{"title": labels["project"], "value": projectNames},
		{"title": labels["due"], "value": dueDate},
	}
}

// NewTaskAssignedCard renders a "new task assigned" notification.
func NewTaskAssignedCard(n notification.TaskNotification) chat.Card {
	tpl := template("new_task")
	facts := taskFacts(tpl.Labels, n.ProjectNames, n.DueDate)
	facts = append(facts, map[string]string{
		"title": tpl.Labels["by"],
		"value": fmt.Sprintf("%s (%s)", n.ActorName, n.ActorEmail),
	})
	for _, field := range n.CustomFields {
		facts = append(facts, map[string]string{"title": field.Title, "value": field.Value})
	}
	return baseCard(
		[]map[string]interface{}{
			titleBlock(tpl.Title),
			textBlock(n.TaskName, map[string]interface{}{"weight": "Bolder"}),
			textBlock(n.Description, nil),
			factSet(facts),
		},
		[]map[string]interface{}{
			{"type": "Action.OpenUrl", "title": tpl.Action, "url": n.Link},
		},
	)
}

// NewCommentCard renders a "new comment" notification with an inline reply
// action carrying the task and commenter ids for reply routing.
func NewCommentCard(botID string, n notification.CommentNotification) chat.Card {
	tpl := template("new_comment")
	return baseCard(
		[]map[string]interface{}{
			titleBlock(tpl.Title),
			factSet([]map[string]string{
				{"title": tpl.Labels["task"], "value": n.TaskName},
				{"title": tpl.Labels["by"], "value": fmt.Sprintf("%s (%s)", n.ActorName, n.ActorEmail)},
			}),
			textBlock(n.CommentText, nil),
			{"type": "Input.Text", "id": "reply", "placeholder": "Write a reply...", "isMultiline": true},
			{"type": "Input.Toggle", "id": "mentionCollaborators", "title": tpl.Labels["mention_collaborators"], "value": "false"},
			{"type": "Input.Toggle", "id": "mentionCommenter", "title": tpl.Labels["mention_commenter"], "value": "false"},
		},
		[]map[string]interface{}{
			{
				"type":  "Action.Submit",
				"title": tpl.Action,
				"data": map[string]interface{}{
					"actionType":  "replyComment",
					"botId":       botID,
					"taskId":      n.TaskGID,
					"commenterId": n.CommenterGID,
				},
			},
		},
	)
}

// TaskDueReminderCard renders the daily due-task digest.
func TaskDueReminderCard(interval string, tasks []notification.TaskNotification) chat.Card {
	tpl := template("due_reminder")
	body := []map[string]interface{}{
		titleBlock(fmt.Sprintf("%s (%s)", tpl.Title, ReminderIntervalText(interval))),
	}
	for _, task := range tasks {
		body = append(body,
			textBlock(fmt.Sprintf("[%s](%s)", task.TaskName, task.Link), map[string]interface{}{"weight": "Bolder"}),
			textBlock(task.Description, nil),
			factSet(taskFacts(tpl.Labels, task.ProjectNames, task.DueDate)),
		)
	}
	return baseCard(body, nil)
}
