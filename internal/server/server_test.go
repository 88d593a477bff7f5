package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/taskbridge/taskbridge/internal/asana"
	"github.com/taskbridge/taskbridge/internal/auth"
	"github.com/taskbridge/taskbridge/internal/cards"
	"github.com/taskbridge/taskbridge/internal/chat"
	"github.com/taskbridge/taskbridge/internal/config"
	"github.com/taskbridge/taskbridge/internal/db/models"
	"github.com/taskbridge/taskbridge/internal/notification"
	"github.com/taskbridge/taskbridge/internal/store"
	"github.com/taskbridge/taskbridge/internal/subscription"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// chatRecorder captures outbound chat traffic.
type chatRecorder struct {
	mu    sync.Mutex
	texts []string
	cards []chat.Card
}

func (c *chatRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /restapi/v1.0/glip/conversations", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "dm-1"})
	})
	mux.HandleFunc("POST /restapi/v1.0/glip/chats/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		defer c.mu.Unlock()
		if strings.HasSuffix(r.URL.Path, "/posts") {
			var post struct {
				Text string `json:"text"`
			}
			json.Unmarshal(body, &post)
			c.texts = append(c.texts, post.Text)
		} else {
			var card chat.Card
			json.Unmarshal(body, &card)
			c.cards = append(c.cards, card)
		}
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("PUT /restapi/v1.0/glip/adaptive-cards/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var card chat.Card
		json.Unmarshal(body, &card)
		c.mu.Lock()
		c.cards = append(c.cards, card)
		c.mu.Unlock()
		w.Write([]byte(`{}`))
	})
	return httptest.NewServer(mux)
}

func (c *chatRecorder) sentText(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sent := range c.texts {
		if sent == text {
			return true
		}
	}
	return false
}

func newAsanaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]string{"gid": "1200001", "name": "Alex Doe", "email": "alex@example.com"})
	})
	mux.HandleFunc("GET /workspaces", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, []map[string]string{{"gid": "ws-1", "name": "Acme"}})
	})
	mux.HandleFunc("GET /users/me/user_task_list", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]string{"gid": "utl-100"})
	})
	mux.HandleFunc("POST /webhooks", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]interface{}{"gid": "wh-1", "active": true})
	})
	mux.HandleFunc("DELETE /webhooks/", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]string{})
	})
	return httptest.NewServer(mux)
}

func writeData(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fresh-access","refresh_token":"fresh-refresh","token_type":"bearer","expires_in":3600}`)
	}))
}

type fixture struct {
	srv   *Server
	store *store.Store
	chat  *chatRecorder
}

func newFixture(t *testing.T, sharedSecret string) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := database.AutoMigrate(&models.User{}, &models.Subscription{}, &models.Bot{}, &models.Setting{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	st := store.New(database)

	asanaSrv := newAsanaServer(t)
	t.Cleanup(asanaSrv.Close)
	tokenSrv := newTokenServer(t)
	t.Cleanup(tokenSrv.Close)
	recorder := &chatRecorder{}
	chatSrv := recorder.server(t)
	t.Cleanup(chatSrv.Close)

	oauthCfg := &oauth2.Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: tokenSrv.URL, TokenURL: tokenSrv.URL},
	}
	guard := auth.NewGuard(st, oauthCfg, zap.NewNop())
	asanaClient := asana.NewClient(asanaSrv.URL)
	chatClient := chat.NewClient(chatSrv.URL)
	registrar := subscription.NewRegistrar(asanaClient, "https://bridge.example.com", zap.NewNop())
	manager := subscription.NewManager(st, guard, asanaClient, registrar, zap.NewNop())
	renderer := cards.NewRenderer(st, chatClient)
	router := notification.NewRouter(st, guard, asanaClient, renderer, zap.NewNop())

	srv := New(config.Config{PublicURL: "https://bridge.example.com"}, st, oauthCfg, guard,
		asanaClient, chatClient, manager, router, sharedSecret, zap.NewNop())

	return &fixture{srv: srv, store: st, chat: recorder}
}

func (f *fixture) seedBot(t *testing.T) {
	t.Helper()
	if err := f.store.SaveBot(&models.Bot{ID: "bot-1", AccessToken: "bot-token"}); err != nil {
		t.Fatalf("save bot: %v", err)
	}
}

func (f *fixture) seedUser(t *testing.T) *models.User {
	t.Helper()
	user := &models.User{
		ID:              "1200001",
		BotID:           "bot-1",
		ChatUserID:      "rc-77",
		DMGroupID:       "dm-1",
		AccessToken:     "access",
		TokenExpiredAt:  time.Now().Add(time.Hour),
		WorkspaceID:     "ws-1",
		WorkspaceName:   "Acme",
		UserTaskListGID: "utl-100",
	}
	if err := f.store.CreateUser(user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}
