package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/taskbridge/taskbridge/internal/auth"
	"github.com/taskbridge/taskbridge/internal/cards"
	"github.com/taskbridge/taskbridge/internal/chat"
	"github.com/taskbridge/taskbridge/internal/db/models"
	"github.com/taskbridge/taskbridge/internal/store"
	"go.uber.org/zap"
)

const signatureHeader = "X-Glip-Signature"

type interactiveBody struct {
	UUID string `json:"uuid"`
	Data struct {
		BotID      string `json:"botId"`
		ActionType string `json:"actionType"`

		// submitConfig
		Workspace               string `json:"workspace"`
		TaskDueReminderInterval string `json:"taskDueReminderInterval"`
		TimezoneOffset          string `json:"timezoneOffset"`

		// replyComment
		Reply                string `json:"reply"`
		TaskID               string `json:"taskId"`
		CommenterID          string `json:"commenterId"`
		MentionCollaborators string `json:"mentionCollaborators"`
		MentionCommenter     string `json:"mentionCommenter"`
	} `json:"data"`
	User struct {
		ExtID string `json:"extId"`
	} `json:"user"`
	Conversation struct {
		ID string `json:"id"`
	} `json:"conversation"`
	Card struct {
		ID string `json:"id"`
	} `json:"card"`
}

// handleInteractive processes card submissions: signature check, uuid
// dedupe, then dispatch on the action type. Processing errors are converted
// to a 200 OK so the chat platform does not redeliver.
func (s *Server) handleInteractive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Params error", http.StatusBadRequest)
		return
	}
	if !chat.VerifySignature(s.sharedSecret, rawBody, r.Header.Get(signatureHeader)) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var body interactiveBody
	if err := json.Unmarshal(rawBody, &body); err != nil {
		http.Error(w, "Params error", http.StatusBadRequest)
		return
	}
	if s.uuids.Seen(body.UUID) {
		writeJSON(w, http.StatusOK, map[string]string{"result": "OK"})
		return
	}
	if body.Data.BotID == "" || body.User.ExtID == "" {
		http.Error(w, "Params error", http.StatusBadRequest)
		return
	}

	bot, err := s.store.GetBot(body.Data.BotID)
	if err != nil {
		s.log.Error("interactive message for unknown bot", zap.String("bot", body.Data.BotID))
		http.Error(w, "Bot not found", http.StatusBadRequest)
		return
	}

	groupID := body.Conversation.ID
	user, err := s.store.GetUserByChatID(body.User.ExtID)
	if errors.Is(err, store.ErrNotFound) {
		s.sendText(ctx, bot, groupID, "Asana account not found. Please use command `login` to login.")
		writeJSON(w, http.StatusOK, map[string]string{"result": "OK"})
		return
	}
	if err != nil {
		http.Error(w, "Internal error.", http.StatusInternalServerError)
		return
	}

	dialog, err := s.dispatchAction(ctx, bot, user, groupID, body)
	if err != nil {
		s.log.Error("interactive action failed",
			zap.String("action", body.Data.ActionType),
			zap.String("user", user.ID),
			zap.Error(err))
		s.sendText(ctx, bot, groupID, "Something went wrong. Please try again later.")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
		return
	}

	if dialog != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"type":   "dialog",
			"dialog": dialog,
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) dispatchAction(ctx context.Context, bot *models.Bot, user *models.User, groupID string, body interactiveBody) (map[string]interface{}, error) {
	if err := s.guard.EnsureFresh(ctx, user); err != nil {
		return nil, err
	}

	switch body.Data.ActionType {
	case "logout":
		if err := s.logout(ctx, user); err != nil {
			return nil, err
		}
		s.sendText(ctx, bot, groupID, "successfully logged out.")
		return nil, nil

	case "configEdit":
		workspaces, err := s.asana.Workspaces(ctx, user.AccessToken)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"title": "Edit Config",
			"card":  cards.EditConfigCard(bot.ID, workspaces, user),
		}, nil

	case "submitConfig":
		return nil, s.submitConfig(ctx, bot, user, groupID, body)

	case "replyComment":
		return nil, s.replyComment(ctx, bot, user, groupID, body)
	}
	return nil, nil
}

func (s *Server) submitConfig(ctx context.Context, bot *models.Bot, user *models.User, groupID string, body interactiveBody) error {
	offset, err := strconv.Atoi(strings.TrimSpace(body.Data.TimezoneOffset))
	if err != nil {
		offset = 0
	}

	if body.Data.Workspace != user.WorkspaceID {
		workspaces, err := s.asana.Workspaces(ctx, user.AccessToken)
		if err != nil {
			return err
		}
		found := false
		for _, w := range workspaces {
			if w.GID == body.Data.Workspace {
				if _, err := s.manager.SwitchWorkspace(ctx, user, w, groupID); err != nil {
					return err
				}
				found = true
				break
			}
		}
		if !found {
			s.sendText(ctx, bot, groupID, "Workspace not found.")
			return nil
		}
	}

	user.ReminderInterval = body.Data.TaskDueReminderInterval
	user.TimezoneOffset = offset
	if err := s.store.SaveUser(user); err != nil {
		return err
	}

	if body.Card.ID != "" {
		return s.chat.UpdateCard(ctx, bot.AccessToken, body.Card.ID, cards.ConfigCard(bot.ID, user))
	}
	return nil
}

// replyComment posts the reply as a task comment. Mentions are expressed as
// personal-task-list links, which Asana renders as @-mentions.
func (s *Server) replyComment(ctx context.Context, bot *models.Bot, user *models.User, groupID string, body interactiveBody) error {
	reply := body.Data.Reply

	if body.Data.MentionCollaborators == "true" {
		task, err := s.asana.Task(ctx, user.AccessToken, body.Data.TaskID)
		if err != nil {
			return err
		}
		commenterFollows := false
		for _, follower := range task.Followers {
			listID, err := s.asana.UserTaskListForUser(ctx, user.AccessToken, follower.GID)
			if err != nil {
				return err
			}
			reply = mentionLink(listID) + " " + reply
			if follower.GID == body.Data.CommenterID {
				commenterFollows = true
			}
		}
		if body.Data.MentionCommenter == "true" && !commenterFollows {
			listID, err := s.asana.UserTaskListForUser(ctx, user.AccessToken, body.Data.CommenterID)
			if err != nil {
				return err
			}
			reply = mentionLink(listID) + " " + reply
		}
	} else if body.Data.MentionCommenter == "true" {
		listID, err := s.asana.UserTaskListForUser(ctx, user.AccessToken, body.Data.CommenterID)
		if err != nil {
			return err
		}
		reply = mentionLink(listID) + " " + reply
	}

	if err := s.asana.CreateStoryOnTask(ctx, user.AccessToken, body.Data.TaskID, reply); err != nil {
		return err
	}
	s.sendText(ctx, bot, groupID, "Comment replied.")
	return nil
}

// logout cascades: all subscriptions torn down, the credential revoked
// remotely, then the local user row removed.
func (s *Server) logout(ctx context.Context, user *models.User) error {
	if err := s.manager.UnsubscribeAll(ctx, user); err != nil {
		return err
	}
	if err := auth.RevokeToken(ctx, s.oauthCfg, user.RefreshToken); err != nil {
		s.log.Warn("remote token revoke failed", zap.String("user", user.ID), zap.Error(err))
	}
	return s.store.DeleteUser(user.ID)
}

func (s *Server) sendText(ctx context.Context, bot *models.Bot, groupID, text string) {
	if err := s.chat.SendText(ctx, bot.AccessToken, groupID, text); err != nil {
		s.log.Error("send failed", zap.String("group", groupID), zap.Error(err))
	}
}

func mentionLink(userTaskListID string) string {
	return "https://app.asana.com/0/" + userTaskListID + "/list"
}
