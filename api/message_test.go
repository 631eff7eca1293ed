package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMessage(t *testing.T) {
	long := strings.Repeat("x", 400)

	tests := []struct {
		name     string
		body     string
		fallback string
		expected string
	}{
		{
			name:     "payload message",
			body:     `{"message":"X"}`,
			fallback: "fallback",
			expected: "X",
		},
		{
			name:     "payload message is trimmed",
			body:     `{"message":"  Book not found  "}`,
			expected: "Book not found",
		},
		{
			name:     "error key used when message missing",
			body:     `{"error":"Invalid username or password"}`,
			expected: "Invalid username or password",
		},
		{
			name:     "blank message falls back to body",
			body:     `{"message":"   "}`,
			expected: `{"message":" "}`,
		},
		{
			name:     "plain text body collapses whitespace",
			body:     "Internal\n\n  Server\tError",
			expected: "Internal Server Error",
		},
		{
			name:     "long body is truncated",
			body:     long,
			expected: strings.Repeat("x", 300) + "…",
		},
		{
			name:     "exactly 300 characters is kept",
			body:     long[:300],
			expected: long[:300],
		},
		{
			name:     "empty body uses fallback",
			body:     "",
			fallback: "Could not list books.",
			expected: "Could not list books.",
		},
		{
			name:     "whitespace body uses fallback",
			body:     " \n\t ",
			fallback: "Login failed.",
			expected: "Login failed.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractMessage([]byte(tt.body), tt.fallback))
		})
	}
}

func TestExtractMessageCountsRunes(t *testing.T) {
	body := strings.Repeat("é", 301)
	msg := ExtractMessage([]byte(body), "")

	assert.Equal(t, strings.Repeat("é", 300)+"…", msg)
}
