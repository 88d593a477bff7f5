package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/taskbridge/taskbridge/internal/asana"
	"github.com/taskbridge/taskbridge/internal/auth"
	"github.com/taskbridge/taskbridge/internal/db/models"
	"github.com/taskbridge/taskbridge/internal/store"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Subscription{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store.New(db)
}

// fakeAsana emulates the API slice the manager touches. Behavior toggles let
// tests inject remote failures.
type fakeAsana struct {
	failWebhookCreate bool
	failWebhookDelete bool
	webhookCreates    int
	webhookDeletes    []string
}

func (f *fakeAsana) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me/user_task_list", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]string{"gid": "utl-100"})
	})
	mux.HandleFunc("POST /webhooks", func(w http.ResponseWriter, r *http.Request) {
		f.webhookCreates++
		if f.failWebhookCreate {
			http.Error(w, `{"errors":[{"message":"server error"}]}`, http.StatusInternalServerError)
			return
		}
		writeData(w, map[string]interface{}{"gid": fmt.Sprintf("wh-%d", f.webhookCreates), "active": true})
	})
	mux.HandleFunc("DELETE /webhooks/", func(w http.ResponseWriter, r *http.Request) {
		gid := strings.TrimPrefix(r.URL.Path, "/webhooks/")
		f.webhookDeletes = append(f.webhookDeletes, gid)
		if f.failWebhookDelete {
			http.Error(w, `{"errors":[{"message":"gone"}]}`, http.StatusNotFound)
			return
		}
		writeData(w, map[string]string{})
	})
	return httptest.NewServer(mux)
}

func writeData(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func newTestManager(t *testing.T, st *store.Store, srv *httptest.Server) *Manager {
	t.Helper()
	client := asana.NewClient(srv.URL)
	guard := auth.NewGuard(st, &oauth2.Config{}, zap.NewNop())
	registrar := NewRegistrar(client, "https://bridge.example.com", zap.NewNop())
	return NewManager(st, guard, client, registrar, zap.NewNop())
}

func seedUser(t *testing.T, st *store.Store) *models.User {
	t.Helper()
	user := &models.User{
		ID:             "1200001",
		AccessToken:    "access",
		TokenExpiredAt: time.Now().Add(time.Hour),
	}
	if err := st.CreateUser(user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestSubscribe_AttachesRemoteHandle(t *testing.T) {
	st := newTestStore(t)
	fake := &fakeAsana{}
	srv := fake.server(t)
	defer srv.Close()

	mgr := newTestManager(t, st, srv)
	user := seedUser(t, st)

	sub, err := mgr.Subscribe(context.Background(), user, asana.Workspace{GID: "ws-1", Name: "Acme"}, "grp-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if sub.WebhookGID == "" {
		t.Fatal("subscription returned without remote handle")
	}

	stored, err := st.GetSubscription(sub.ID)
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	if stored.WebhookGID != sub.WebhookGID {
		t.Fatalf("handle not persisted: %q != %q", stored.WebhookGID, sub.WebhookGID)
	}
	if stored.WorkspaceID != "ws-1" || stored.GroupID != "grp-1" {
		t.Fatalf("scope not persisted: %+v", stored)
	}

	updated, err := st.GetUser(user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if updated.UserTaskListGID != "utl-100" {
		t.Fatalf("personal task list not resolved: %q", updated.UserTaskListGID)
	}
}

func TestSubscribe_RegistrarFailureLeavesOrphanRow(t *testing.T) {
	st := newTestStore(t)
	fake := &fakeAsana{failWebhookCreate: true}
	srv := fake.server(t)
	defer srv.Close()

	mgr := newTestManager(t, st, srv)
	user := seedUser(t, st)

	_, err := mgr.Subscribe(context.Background(), user, asana.Workspace{GID: "ws-1", Name: "Acme"}, "grp-1")
	if err == nil {
		t.Fatal("expected error from registrar failure")
	}

	subs, err := st.ListSubscriptions(user.ID)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 orphan row, got %d", len(subs))
	}
	if subs[0].WebhookGID != "" {
		t.Fatalf("orphan row unexpectedly has a handle: %q", subs[0].WebhookGID)
	}
}

func TestUnsubscribe_RemovesRowEvenWhenRemoteDeleteFails(t *testing.T) {
	st := newTestStore(t)
	fake := &fakeAsana{failWebhookDelete: true}
	srv := fake.server(t)
	defer srv.Close()

	mgr := newTestManager(t, st, srv)
	user := seedUser(t, st)

	sub, err := mgr.Subscribe(context.Background(), user, asana.Workspace{GID: "ws-1", Name: "Acme"}, "grp-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := mgr.Unsubscribe(context.Background(), user, sub); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if len(fake.webhookDeletes) != 1 {
		t.Fatalf("expected 1 delete attempt, got %d", len(fake.webhookDeletes))
	}

	if _, err := st.GetSubscription(sub.ID); err != store.ErrNotFound {
		t.Fatalf("expected local row removed, got %v", err)
	}
}

func TestSwitchWorkspace_ReplacesAllSubscriptions(t *testing.T) {
	st := newTestStore(t)
	fake := &fakeAsana{}
	srv := fake.server(t)
	defer srv.Close()

	mgr := newTestManager(t, st, srv)
	user := seedUser(t, st)

	if _, err := mgr.Subscribe(context.Background(), user, asana.Workspace{GID: "ws-old", Name: "Old"}, "grp-1"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if _, err := mgr.SwitchWorkspace(context.Background(), user, asana.Workspace{GID: "ws-new", Name: "New"}, "grp-1"); err != nil {
		t.Fatalf("SwitchWorkspace: %v", err)
	}

	subs, err := st.ListSubscriptions(user.ID)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	for _, sub := range subs {
		if sub.WorkspaceID == "ws-old" {
			t.Fatalf("old workspace subscription survived: %+v", sub)
		}
	}
	if len(subs) != 1 || subs[0].WorkspaceID != "ws-new" {
		t.Fatalf("expected exactly one subscription in the new workspace, got %+v", subs)
	}
}

func TestReconcileOrphans_RepairsAndRemoves(t *testing.T) {
	st := newTestStore(t)
	fake := &fakeAsana{}
	srv := fake.server(t)
	defer srv.Close()

	mgr := newTestManager(t, st, srv)
	user := seedUser(t, st)
	user.UserTaskListGID = "utl-100"
	if err := st.SaveUser(user); err != nil {
		t.Fatalf("save user: %v", err)
	}

	orphan := &models.Subscription{ID: "orphan-1", UserID: user.ID, WorkspaceID: "ws-1", GroupID: "grp-1"}
	if err := st.CreateSubscription(orphan); err != nil {
		t.Fatalf("create orphan: %v", err)
	}
	// Backdate past the cutoff.
	if err := st.DB().Model(&models.Subscription{}).Where("id = ?", orphan.ID).
		Update("created_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("backdate orphan: %v", err)
	}

	repaired, removed, err := mgr.ReconcileOrphans(context.Background(), 30*time.Minute)
	if err != nil {
		t.Fatalf("ReconcileOrphans: %v", err)
	}
	if repaired != 1 || removed != 0 {
		t.Fatalf("expected 1 repaired / 0 removed, got %d / %d", repaired, removed)
	}

	fixed, err := st.GetSubscription(orphan.ID)
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	if fixed.WebhookGID == "" {
		t.Fatal("orphan not repaired with a handle")
	}
}
