package logger

import (
	"net/url"
	"strings"
)

// MaskAuthorization masks bearer tokens, preserving the scheme.
func MaskAuthorization(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parts := strings.Fields(value)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return "Bearer " + maskLast4(parts[1])
	}
	return maskLast4(value)
}

// MaskWebhookURL hides the secret token segment of a chat webhook URL.
// Discord-style webhooks carry the token as the final path segment; a
// leaked token lets anyone post to the channel.
func MaskWebhookURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return maskLast4(raw)
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) == 0 || segments[len(segments)-1] == "" {
		return parsed.Scheme + "://" + parsed.Host + parsed.Path
	}
	segments[len(segments)-1] = maskLast4(segments[len(segments)-1])
	parsed.RawQuery = ""
	parsed.Path = "/" + strings.Join(segments, "/")
	return parsed.String()
}

func maskLast4(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****" + value
	}
	return "****" + value[len(value)-4:]
}
