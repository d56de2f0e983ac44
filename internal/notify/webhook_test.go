package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestWebhookNotifierPostsContent(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(WebhookParams{Log: zap.NewNop()})
	err := notifier.Send(context.Background(), Target{ChannelID: "chan-1", WebhookURL: srv.URL}, "Buddy was adopted")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["content"] != "Buddy was adopted" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestWebhookNotifierRejectsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(WebhookParams{Log: zap.NewNop()})
	if err := notifier.Send(context.Background(), Target{WebhookURL: srv.URL}, "hello"); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestWebhookNotifierRequiresURL(t *testing.T) {
	notifier := NewWebhookNotifier(WebhookParams{Log: zap.NewNop()})
	err := notifier.Send(context.Background(), Target{ChannelID: "chan-1"}, "hello")
	if !errors.Is(err, ErrMissingWebhook) {
		t.Fatalf("expected missing webhook error, got %v", err)
	}
}
