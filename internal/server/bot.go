package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/taskbridge/taskbridge/internal/auth"
	"github.com/taskbridge/taskbridge/internal/cards"
	"github.com/taskbridge/taskbridge/internal/db/models"
	"github.com/taskbridge/taskbridge/internal/store"
	"go.uber.org/zap"
)

type botEvent struct {
	Type string `json:"type"` // BotAdded | BotJoinGroup | Message4Bot
	Bot  struct {
		ID          string `json:"id"`
		AccessToken string `json:"accessToken"`
	} `json:"bot"`
	Group struct {
		ID string `json:"id"`
	} `json:"group"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Text string `json:"text"`
}

// handleBotEvent processes chat-platform bot events: installation, group
// joins and direct commands. Command failures answer with a generic message;
// the platform always gets a 200.
func (s *Server) handleBotEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var event botEvent
	if err := decodeJSONBody(r, &event); err != nil || event.Bot.ID == "" {
		http.Error(w, "Params error", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "BotAdded":
		if err := s.store.SaveBot(&models.Bot{ID: event.Bot.ID, AccessToken: event.Bot.AccessToken}); err != nil {
			s.log.Error("bot installation save failed", zap.String("bot", event.Bot.ID), zap.Error(err))
			http.Error(w, "Internal error.", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"result": "OK"})
		return

	case "BotJoinGroup":
		bot, err := s.store.GetBot(event.Bot.ID)
		if err != nil {
			http.Error(w, "Bot not found", http.StatusBadRequest)
			return
		}
		s.sendText(ctx, bot, event.Group.ID, cards.HelpText())
		writeJSON(w, http.StatusOK, map[string]string{"result": "OK"})
		return

	case "Message4Bot":
		bot, err := s.store.GetBot(event.Bot.ID)
		if err != nil {
			http.Error(w, "Bot not found", http.StatusBadRequest)
			return
		}
		s.handleCommand(w, r, bot, event)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"result": "OK"})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request, bot *models.Bot, event botEvent) {
	ctx := r.Context()
	command := strings.ToLower(strings.TrimSpace(event.Text))

	user, err := s.store.GetUserByChatID(event.User.ID)
	known := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Internal error.", http.StatusInternalServerError)
		return
	}

	switch command {
	case "login":
		if known {
			s.sendText(ctx, bot, event.Group.ID, "You have already logged in.")
			break
		}
		conversation, err := s.chat.CreateConversation(ctx, bot.AccessToken, []string{event.User.ID})
		if err != nil {
			s.log.Error("conversation create failed", zap.Error(err))
			s.sendText(ctx, bot, event.Group.ID, "Something went wrong. Please try again later.")
			break
		}
		link := auth.AuthLink(s.oauthCfg, bot.ID, event.User.ID)
		if err := s.chat.SendCard(ctx, bot.AccessToken, conversation.ID, cards.AuthCard(link)); err != nil {
			s.log.Error("auth card send failed", zap.Error(err))
		}

	case "logout":
		if !known {
			s.sendText(ctx, bot, event.Group.ID, "Asana account not found. Please type `login` to authorize your account.")
			break
		}
		if err := s.guard.EnsureFresh(ctx, user); err != nil {
			s.log.Error("logout refresh failed", zap.String("user", user.ID), zap.Error(err))
			s.sendText(ctx, bot, event.Group.ID, "Something went wrong. Please try again later.")
			break
		}
		if err := s.logout(ctx, user); err != nil {
			s.log.Error("logout failed", zap.String("user", user.ID), zap.Error(err))
			s.sendText(ctx, bot, event.Group.ID, "Something went wrong. Please try again later.")
			break
		}
		s.sendText(ctx, bot, user.DMGroupID, "successfully logged out.")

	case "config":
		if !known {
			s.sendText(ctx, bot, event.Group.ID, "Asana account not found. Please type `login` to authorize your account.")
			break
		}
		if err := s.chat.SendCard(ctx, bot.AccessToken, user.DMGroupID, cards.ConfigCard(bot.ID, user)); err != nil {
			s.log.Error("config card send failed", zap.Error(err))
		}

	default: // help and plain-text fallback
		s.sendText(ctx, bot, event.Group.ID, cards.HelpText())
	}

	writeJSON(w, http.StatusOK, map[string]string{"result": "OK"})
}
