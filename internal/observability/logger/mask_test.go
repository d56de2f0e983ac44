package logger

import "testing"

func TestMaskAuthorization(t *testing.T) {
	got := MaskAuthorization("Bearer abcdef1234")
	want := "Bearer ****1234"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMaskWebhookURL(t *testing.T) {
	got := MaskWebhookURL("https://discord.com/api/webhooks/123456789/AbCdEfGh_secret-token-1234")
	want := "https://discord.com/api/webhooks/123456789/****1234"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMaskWebhookURLNotAURL(t *testing.T) {
	got := MaskWebhookURL("raw-secret-value")
	if got != "****alue" {
		t.Fatalf("expected masked raw value, got %q", got)
	}
}

func TestMaskWebhookURLEmpty(t *testing.T) {
	if got := MaskWebhookURL("  "); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
