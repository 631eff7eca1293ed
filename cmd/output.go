package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/s0up4200/librarian/api"
	"github.com/s0up4200/librarian/pool"
	"github.com/s0up4200/librarian/session"
)

// describeError turns an error into the line shown to the user
func describeError(err error) string {
	switch {
	case errors.Is(err, pool.ErrRejected):
		return "Too many requests are in flight, try again shortly."
	case errors.Is(err, api.ErrNoToken):
		return "Not logged in."
	}

	switch api.KindOf(err) {
	case api.KindServerError:
		return "✗ " + err.Error()
	case api.KindValidationFailure:
		return "✗ Invalid input: " + err.Error()
	default:
		var transportErr *api.TransportError
		if errors.As(err, &transportErr) {
			return "✗ Communication error: " + err.Error()
		}
		return "✗ " + err.Error()
	}
}

func roleName(role int) string {
	if role == session.RoleAdmin {
		return "admin"
	}
	return "user"
}

func dateOrDash(d *api.Date) string {
	if d == nil || d.IsZero() {
		return "-"
	}
	return d.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// truncate shortens s to n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func plural(n int, singular, many string) string {
	if n == 1 {
		return singular
	}
	return many
}

func printHeader(format string, columns ...any) {
	line := fmt.Sprintf(format, columns...)
	width := len([]rune(line))
	fmt.Println(strings.Repeat("━", width))
	fmt.Println(line)
	fmt.Println(strings.Repeat("━", width))
}
