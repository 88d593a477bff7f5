package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func callbackURL(botID, chatUserID string) string {
	state := url.Values{"botId": {botID}, "chatUserId": {chatUserID}}
	query := url.Values{"code": {"auth-code"}, "state": {state.Encode()}}
	return "/oauth-callback?" + query.Encode()
}

func TestOAuthCallback_NewUserEndToEnd(t *testing.T) {
	f := newFixture(t, "")
	f.seedBot(t)

	req := httptest.NewRequest(http.MethodGet, callbackURL("bot-1", "rc-77"), nil)
	rec := httptest.NewRecorder()
	f.srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body.String())
	}

	user, err := f.store.GetUser("1200001")
	if err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if user.ChatUserID != "rc-77" || user.BotID != "bot-1" {
		t.Fatalf("ownership wrong: %+v", user)
	}
	if user.DMGroupID != "dm-1" {
		t.Fatalf("DM conversation not bound: %q", user.DMGroupID)
	}
	if user.WorkspaceID != "ws-1" {
		t.Fatalf("default workspace not bound: %q", user.WorkspaceID)
	}

	subs, err := f.store.ListSubscriptions(user.ID)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 1 || subs[0].WebhookGID == "" {
		t.Fatalf("expected one subscription with a remote handle, got %+v", subs)
	}

	if !f.chat.sentText("Successfully logged in.") {
		t.Fatalf("login confirmation not sent, texts: %v", f.chat.texts)
	}
	if len(f.chat.cards) == 0 {
		t.Fatal("config card not rendered")
	}
}

func TestOAuthCallback_UnknownBotIs404(t *testing.T) {
	f := newFixture(t, "")

	req := httptest.NewRequest(http.MethodGet, callbackURL("ghost", "rc-77"), nil)
	rec := httptest.NewRecorder()
	f.srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestOAuthCallback_ExistingUserIsIdempotent(t *testing.T) {
	f := newFixture(t, "")
	f.seedBot(t)
	f.seedUser(t)

	req := httptest.NewRequest(http.MethodGet, callbackURL("bot-1", "rc-77"), nil)
	rec := httptest.NewRecorder()
	f.srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	subs, err := f.store.ListSubscriptions("1200001")
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("re-login must not create subscriptions, got %+v", subs)
	}
	if !f.chat.sentText("Asana account alex@example.com already exists.") {
		t.Fatalf("already-exists notice not sent, texts: %v", f.chat.texts)
	}
}
