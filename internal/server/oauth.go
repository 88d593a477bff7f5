package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/taskbridge/taskbridge/internal/cards"
	"github.com/taskbridge/taskbridge/internal/db/models"
	"github.com/taskbridge/taskbridge/internal/store"
	"go.uber.org/zap"
)

const successPage = `<!doctype html><html><body>Successfully authorized. Please close this page.<script>window.close()</script></body></html>`

// handleOAuthCallback exchanges the authorization code, creates the user on
// first login, opens their DM conversation and creates the initial
// subscription into their default workspace.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state, err := url.ParseQuery(r.URL.Query().Get("state"))
	if err != nil {
		http.Error(w, "Params error", http.StatusBadRequest)
		return
	}
	botID := state.Get("botId")
	chatUserID := state.Get("chatUserId")

	bot, err := s.store.GetBot(botID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Error("oauth callback for unknown bot", zap.String("bot", botID))
		http.Error(w, "Bot not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Internal error.", http.StatusInternalServerError)
		return
	}

	token, err := s.oauthCfg.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		s.log.Error("code exchange failed", zap.Error(err))
		http.Error(w, "Internal error.", http.StatusInternalServerError)
		return
	}
	if token.AccessToken == "" {
		http.Error(w, "Params error", http.StatusForbidden)
		return
	}

	profile, err := s.asana.Me(ctx, token.AccessToken)
	if err != nil {
		s.log.Error("profile lookup failed", zap.Error(err))
		http.Error(w, "Internal error.", http.StatusInternalServerError)
		return
	}

	existing, err := s.store.GetUser(profile.GID)
	if err == nil {
		// Re-login of a known account changes nothing.
		if sendErr := s.chat.SendText(ctx, bot.AccessToken, existing.DMGroupID,
			fmt.Sprintf("Asana account %s already exists.", profile.Email)); sendErr != nil {
			s.log.Error("send failed", zap.Error(sendErr))
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(successPage))
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Internal error.", http.StatusInternalServerError)
		return
	}

	conversation, err := s.chat.CreateConversation(ctx, bot.AccessToken, []string{chatUserID})
	if err != nil {
		s.log.Error("conversation create failed", zap.Error(err))
		http.Error(w, "Internal error.", http.StatusInternalServerError)
		return
	}

	workspaces, err := s.asana.Workspaces(ctx, token.AccessToken)
	if err != nil || len(workspaces) == 0 {
		s.log.Error("workspace listing failed", zap.Error(err))
		http.Error(w, "Internal error.", http.StatusInternalServerError)
		return
	}

	user := &models.User{
		ID:               profile.GID,
		Name:             profile.Name,
		Email:            profile.Email,
		BotID:            botID,
		ChatUserID:       chatUserID,
		DMGroupID:        conversation.ID,
		AccessToken:      token.AccessToken,
		RefreshToken:     token.RefreshToken,
		TokenExpiredAt:   token.Expiry,
		WorkspaceID:      workspaces[0].GID,
		WorkspaceName:    workspaces[0].Name,
		ReminderInterval: "off",
		TimezoneOffset:   0,
	}
	if err := s.store.CreateUser(user); err != nil {
		s.log.Error("user create failed", zap.Error(err))
		http.Error(w, "Internal error.", http.StatusInternalServerError)
		return
	}

	if _, err := s.manager.Subscribe(ctx, user, workspaces[0], user.DMGroupID); err != nil {
		s.log.Error("initial subscribe failed", zap.String("user", user.ID), zap.Error(err))
		http.Error(w, "Internal error.", http.StatusInternalServerError)
		return
	}

	if err := s.chat.SendText(ctx, bot.AccessToken, user.DMGroupID, "Successfully logged in."); err != nil {
		s.log.Error("send failed", zap.Error(err))
	}
	if err := s.chat.SendCard(ctx, bot.AccessToken, user.DMGroupID, cards.ConfigCard(botID, user)); err != nil {
		s.log.Error("config card send failed", zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(successPage))
}
