package asana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_DecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("authorization header: %q", got)
		}
		if got := r.Header.Get("Asana-Enable"); got != "new_user_task_lists" {
			t.Fatalf("Asana-Enable header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"gid": "42", "name": "Alex Doe", "email": "alex@example.com"},
		})
	}))
	t.Cleanup(srv.Close)

	me, err := NewClient(srv.URL).Me(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.GID != "42" || me.Email != "alex@example.com" {
		t.Fatalf("decoded user: %+v", me)
	}
}

func TestClient_WrapsRequestPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var envelope struct {
			Data struct {
				Text string `json:"text"`
			} `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			t.Fatalf("request body: %v", err)
		}
		if envelope.Data.Text != "hello" {
			t.Fatalf("payload not wrapped in data envelope: %+v", envelope)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"gid": "story-1", "text": "hello"},
		})
	}))
	t.Cleanup(srv.Close)

	if err := NewClient(srv.URL).CreateStoryOnTask(context.Background(), "tok", "task-1", "hello"); err != nil {
		t.Fatalf("CreateStoryOnTask: %v", err)
	}
}

func TestClient_RemoteErrorCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"Not Found"}]}`, http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).Task(context.Background(), "tok", "missing")
	if err == nil {
		t.Fatal("expected an error")
	}
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected *RemoteError, got %T: %v", err, err)
	}
	if remote.Status != http.StatusNotFound {
		t.Fatalf("status: %d", remote.Status)
	}
}
