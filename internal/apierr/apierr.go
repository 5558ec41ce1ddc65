// Package apierr defines the error type surfaced by every HTTP client
// in notetrack. Callers decide whether to retry, fall back, or report.
package apierr

import "fmt"

// Error carries the HTTP status and response body of a failed API call.
type Error struct {
	Service    string // "jira", "lark", "lark-workhour", "host"
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("%s API returned %d: %s", e.Service, e.StatusCode, body)
}

// IsNotFound reports whether err is an API error with status 404.
func IsNotFound(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.StatusCode == 404
	}
	return false
}
