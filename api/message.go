package api

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	maxMessageLength = 300
	truncationMarker = "…"
)

// ExtractMessage derives a human readable message from an error response body.
// It prefers the payload message, then the collapsed and truncated body, then fallback.
func ExtractMessage(body []byte, fallback string) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fallback
	}

	var payload ErrorPayload
	if err := json.Unmarshal(trimmed, &payload); err == nil {
		if msg := payload.Text(); msg != "" {
			return msg
		}
	}

	collapsed := strings.Join(strings.Fields(string(trimmed)), " ")
	runes := []rune(collapsed)
	if len(runes) > maxMessageLength {
		return string(runes[:maxMessageLength]) + truncationMarker
	}
	return collapsed
}
