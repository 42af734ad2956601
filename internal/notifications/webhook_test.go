package notifications

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"numerusx/internal/config"
)

func TestNotifyNoWebhookIsLogOnly(t *testing.T) {
	s := NewSender(config.NotificationsConfig{BotName: "TestBot"}, nil)
	if s.Enabled() {
		t.Fatal("should not be enabled with empty URL")
	}
	if err := s.Notify(context.Background(), "trade", "hello"); err != nil {
		t.Fatalf("log-only notify: %v", err)
	}
}

func TestNotifySlackFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(config.NotificationsConfig{WebhookURL: srv.URL, BotName: "TestBot"}, nil)
	if !s.Enabled() {
		t.Fatal("should be enabled")
	}
	if err := s.Notify(context.Background(), "trade executed", "BUY 100 USD"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if received["username"] != "TestBot" {
		t.Fatalf("username = %s", received["username"])
	}
	if received["text"] == "" {
		t.Fatal("slack payload missing text")
	}
}

func TestNotifyDiscordFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(config.NotificationsConfig{WebhookURL: srv.URL + "/discord/webhook", BotName: "Bot"}, nil)
	if err := s.Notify(context.Background(), "trade executed", "SELL closed MintA"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if received["content"] == "" {
		t.Fatal("discord payload missing content")
	}
}

func TestNotifyReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewSender(config.NotificationsConfig{WebhookURL: srv.URL}, nil)
	if err := s.Notify(context.Background(), "t", "m"); err == nil {
		t.Fatal("expected error on 403")
	}
}
